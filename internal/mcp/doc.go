// Package mcp implements a Model Context Protocol (MCP) server for
// openroute-mcp.  It exposes OpenRouteService routing, geocoding, POI and
// isochrone operations as MCP tools that AI agents can call, generated GPX
// routes as MCP resources, and a pair of route-planning prompts.
//
// Routes generated by the create_route_from_to tool are embedded in the tool
// response and, unless saving is disabled, written to the configured storage
// together with a rendered PNG map (and optionally a self-contained HTML
// map), from where the route:// resources read them back.
//
// Transport: the server supports two transports selectable at runtime:
//   - stdio  – standard MCP stdio transport (default); suitable for local
//     agent integration (e.g. Claude Desktop, VS Code Copilot).
//   - http   – Streamable HTTP transport; suitable for remote agents or when
//     multiple concurrent clients are needed.  The HTTP transport also serves
//     a health endpoint and direct downloads of generated route files.
package mcp
