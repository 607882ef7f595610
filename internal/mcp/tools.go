package mcp

// In this file: MCP tool definitions and handler implementations.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/vemonet/openroute-mcp/internal/ors"
	"github.com/vemonet/openroute-mcp/internal/routemap"
	"github.com/vemonet/openroute-mcp/internal/swissgeo"
)

// routeTypeDescription documents the route_type argument shared by several
// tools.
var routeTypeDescription = fmt.Sprintf(
	"Transport profile used for routing. One of: %s.", profileList())

func profileList() string {
	names := make([]string, len(ors.Profiles))
	for i, p := range ors.Profiles {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// coordPairSchema is the JSON schema of a [longitude, latitude] array
// argument.
var coordPairSchema = map[string]any{"type": "number"}

// ─── search_location_coordinates ──────────────────────────────────────────────

func (s *Server) toolSearchLocationCoordinates() mcpsrv.ServerTool {
	tool := mcplib.NewTool("search_location_coordinates",
		mcplib.WithDescription(`Search the geographic coordinates of a named location (geocoding).

Returns a ranked JSON list of matches, best match first.  Each match has the
location name, full address label, [longitude, latitude] coordinates, a
confidence score and the layer the match came from (venue, street, locality,
and so on).`),
		mcplib.WithString("location",
			mcplib.Description("Free-text location to search for, e.g. \"Rochers de Naye\" or \"Bahnhofstrasse 1, Zurich\"."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearchLocationCoordinates}
}

func (s *Server) handleSearchLocationCoordinates(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	location, ok := stringArg(req, "location")
	if !ok || location == "" {
		return resultErr(errors.New("search_location_coordinates: location is required")), nil
	}

	s.logger.InfoContext(ctx, "mcp: search_location_coordinates", "location", location)

	locations, err := s.ors.GeocodeSearch(ctx, location, 0)
	if err != nil {
		if errors.Is(err, ors.ErrNoResults) {
			return resultText(fmt.Sprintf("No coordinates found for %q. Try a more specific or differently spelled location name.", location)), nil
		}
		return resultErr(fmt.Errorf("search_location_coordinates: %w", err)), nil
	}
	return resultJSON(locations)
}

// ─── get_coordinates_object ───────────────────────────────────────────────────

func (s *Server) toolGetCoordinatesObject() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_coordinates_object",
		mcplib.WithDescription(`Describe what is located at the given coordinates (reverse geocoding).

Returns a ranked JSON list of the places nearest to the coordinate, each with
its name, address and layer.`),
		mcplib.WithNumber("longitude",
			mcplib.Description("Longitude in WGS84 decimal degrees."),
			mcplib.Required(),
		),
		mcplib.WithNumber("latitude",
			mcplib.Description("Latitude in WGS84 decimal degrees."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetCoordinatesObject}
}

func (s *Server) handleGetCoordinatesObject(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	lon, ok := floatArg(req, "longitude")
	if !ok {
		return resultErr(errors.New("get_coordinates_object: longitude is required")), nil
	}
	lat, ok := floatArg(req, "latitude")
	if !ok {
		return resultErr(errors.New("get_coordinates_object: latitude is required")), nil
	}

	s.logger.InfoContext(ctx, "mcp: get_coordinates_object", "longitude", lon, "latitude", lat)

	locations, err := s.ors.GeocodeReverse(ctx, lon, lat)
	if err != nil {
		if errors.Is(err, ors.ErrNoResults) {
			return resultText(fmt.Sprintf("Nothing found at [%v, %v].", lon, lat)), nil
		}
		return resultErr(fmt.Errorf("get_coordinates_object: %w", err)), nil
	}
	return resultJSON(locations)
}

// ─── create_route_from_to ─────────────────────────────────────────────────────

func (s *Server) toolCreateRouteFromTo() mcpsrv.ServerTool {
	tool := mcplib.NewTool("create_route_from_to",
		mcplib.WithDescription(`Create a route between two coordinates for the given transport profile.

Returns the route as a GPX document embedded as a route:// resource.  Unless
saving is disabled the GPX file and a PNG map preview are also written to the
server's data directory and can be downloaded later.

Use search_location_coordinates first to resolve location names into
[longitude, latitude] pairs.`),
		mcplib.WithString("route_type",
			mcplib.Description(routeTypeDescription),
			mcplib.Required(),
		),
		mcplib.WithArray("from_coordinates",
			mcplib.Description("Start of the route as a [longitude, latitude] pair."),
			mcplib.Items(coordPairSchema),
			mcplib.Required(),
		),
		mcplib.WithArray("to_coordinates",
			mcplib.Description("End of the route as a [longitude, latitude] pair."),
			mcplib.Items(coordPairSchema),
			mcplib.Required(),
		),
		mcplib.WithArray("waypoints",
			mcplib.Description("Optional intermediate stops, each a [longitude, latitude] pair, visited in order."),
			mcplib.Items(map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number"},
			}),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleCreateRouteFromTo}
}

func (s *Server) handleCreateRouteFromTo(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	routeType, ok := stringArg(req, "route_type")
	if !ok || routeType == "" {
		return resultErr(errors.New("create_route_from_to: route_type is required")), nil
	}
	profile := ors.Profile(routeType)
	if err := profile.Validate(); err != nil {
		return resultErr(fmt.Errorf("create_route_from_to: %w", err)), nil
	}
	from, err := coordArg(req, "from_coordinates")
	if err != nil {
		return resultErr(fmt.Errorf("create_route_from_to: %w", err)), nil
	}
	to, err := coordArg(req, "to_coordinates")
	if err != nil {
		return resultErr(fmt.Errorf("create_route_from_to: %w", err)), nil
	}
	waypoints, err := coordListArg(req, "waypoints")
	if err != nil {
		return resultErr(fmt.Errorf("create_route_from_to: %w", err)), nil
	}

	coords := make([][]float64, 0, len(waypoints)+2)
	coords = append(coords, from)
	coords = append(coords, waypoints...)
	coords = append(coords, to)

	s.logger.InfoContext(ctx, "mcp: create_route_from_to", "route_type", profile, "from", from, "to", to, "waypoints", len(waypoints))

	gpxData, err := s.ors.Directions(ctx, profile, coords)
	if err != nil {
		return resultErr(fmt.Errorf("create_route_from_to: %w", err)), nil
	}
	gpxData = routemap.IndentXML(gpxData)

	filename := fmt.Sprintf("%s-%s.gpx", profile, uuid.New())
	uri := routeURIPrefix + filename

	content := []mcplib.Content{
		mcplib.NewTextContent(s.routeSummary(profile, filename)),
		mcplib.NewEmbeddedResource(mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: mimeGPX,
			Text:     string(gpxData),
		}),
	}

	if s.fs != nil {
		extra := s.saveRoute(ctx, filename, gpxData)
		content = append(content, extra...)
	}
	s.notifyResourceUpdate(ctx, uri)

	return &mcplib.CallToolResult{Content: content}, nil
}

// routeSummary builds the instruction text that accompanies a generated
// route.
func (s *Server) routeSummary(profile ors.Profile, filename string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Created a %s route. The GPX document is embedded below and available as resource %s%s.", profile, routeURIPrefix, filename)
	if s.fs == nil {
		sb.WriteString(" Saving is disabled on this server, so the route exists only in this response.")
		return sb.String()
	}
	fmt.Fprintf(&sb, " The route was saved as %s", filename)
	if !s.noImg {
		sb.WriteString(" together with a PNG map preview")
	}
	if s.addHTML {
		sb.WriteString(" and an interactive HTML map")
	}
	sb.WriteString(".")
	return sb.String()
}

// saveRoute persists the GPX document and its rendered map artifacts, and
// returns the additional resource contents to embed in the tool result.
// Failures to render or write artifacts are logged but never fail the tool:
// the route itself has already been generated.
func (s *Server) saveRoute(ctx context.Context, filename string, gpxData []byte) []mcplib.Content {
	if err := s.fs.WriteFile(filename, gpxData, 0o644); err != nil {
		s.logger.WarnContext(ctx, "failed to save route", "filename", filename, "error", err)
		return nil
	}
	s.logger.InfoContext(ctx, "route saved", "filename", filename)

	if s.noImg && !s.addHTML {
		return nil
	}

	points, err := routemap.Points(gpxData)
	if err != nil {
		s.logger.WarnContext(ctx, "no map rendered for route", "filename", filename, "error", err)
		return nil
	}

	base := strings.TrimSuffix(filename, ".gpx")
	var content []mcplib.Content

	if !s.noImg {
		if png, err := routemap.RenderPNG(points); err != nil {
			s.logger.WarnContext(ctx, "failed to render route map", "filename", filename, "error", err)
		} else if err := s.fs.WriteFile(base+".png", png, 0o644); err != nil {
			s.logger.WarnContext(ctx, "failed to save route map", "filename", base+".png", "error", err)
		} else {
			content = append(content, mcplib.NewEmbeddedResource(mcplib.BlobResourceContents{
				URI:      routeURIPrefix + base + ".png",
				MIMEType: mimePNG,
				Blob:     base64Encode(png),
			}))
		}
	}

	if s.addHTML {
		if html, err := routemap.RenderHTML(points); err != nil {
			s.logger.WarnContext(ctx, "failed to render html map", "filename", filename, "error", err)
		} else if err := s.fs.WriteFile(base+".html", html, 0o644); err != nil {
			s.logger.WarnContext(ctx, "failed to save html map", "filename", base+".html", "error", err)
		} else {
			content = append(content, mcplib.NewEmbeddedResource(mcplib.TextResourceContents{
				URI:      routeURIPrefix + base + ".html",
				MIMEType: mimeHTML,
				Text:     string(html),
			}))
		}
	}

	return content
}

// notifyResourceUpdate tells the connected client that the resource list has
// changed.  Notification delivery is best effort: stdio clients that have not
// subscribed, or test harnesses without a session, make SendNotificationToClient
// return an error, which is not a tool failure.
func (s *Server) notifyResourceUpdate(ctx context.Context, uri string) {
	if err := s.mcp.SendNotificationToClient(ctx, "notifications/resources/updated", map[string]any{"uri": uri}); err != nil {
		s.logger.DebugContext(ctx, "resource update notification not delivered", "uri", uri, "error", err)
	}
	if err := s.mcp.SendNotificationToClient(ctx, "notifications/resources/list_changed", nil); err != nil {
		s.logger.DebugContext(ctx, "resource list notification not delivered", "error", err)
	}
}

// ─── search_pois ──────────────────────────────────────────────────────────────

func (s *Server) toolSearchPOIs() mcpsrv.ServerTool {
	tool := mcplib.NewTool("search_pois",
		mcplib.WithDescription(`Search points of interest within a bounding box.

The bounding box is given as two [longitude, latitude] pairs: the south-west
and the north-east corner.  Results are returned as a GeoJSON feature
collection.  Keep the box small (roughly a neighbourhood): the number of
results is capped.`),
		mcplib.WithArray("bounding_box_coordinates",
			mcplib.Description("Bounding box as [[min_lon, min_lat], [max_lon, max_lat]]."),
			mcplib.Items(map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number"},
			}),
			mcplib.Required(),
		),
		mcplib.WithArray("filters_name",
			mcplib.Description("Optional POI names to filter by, e.g. [\"fountain\"]."),
			mcplib.Items(map[string]any{"type": "string"}),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearchPOIs}
}

func (s *Server) handleSearchPOIs(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	bbox, err := coordListArg(req, "bounding_box_coordinates")
	if err != nil {
		return resultErr(fmt.Errorf("search_pois: %w", err)), nil
	}
	if len(bbox) != 2 {
		return resultErr(errors.New("search_pois: bounding_box_coordinates must be [[min_lon, min_lat], [max_lon, max_lat]]")), nil
	}
	filters, err := stringSliceArg(req, "filters_name")
	if err != nil {
		return resultErr(fmt.Errorf("search_pois: %w", err)), nil
	}

	s.logger.InfoContext(ctx, "mcp: search_pois", "bbox", bbox, "filters", filters)

	fc, err := s.ors.POIs(ctx, bbox, filters)
	if err != nil {
		return resultErr(fmt.Errorf("search_pois: %w", err)), nil
	}
	if len(fc.Features) == 0 {
		return resultText("No points of interest found in the given bounding box."), nil
	}
	return resultJSON(fc)
}

// ─── search_known_routes ──────────────────────────────────────────────────────

func (s *Server) toolSearchKnownRoutes() mcpsrv.ServerTool {
	tool := mcplib.NewTool("search_known_routes",
		mcplib.WithDescription(`Search officially signposted Swiss routes (hiking trails, Veloland cycling
routes, Mountainbikeland routes) near the start and end coordinates.

Only available for coordinates within Switzerland and for foot and cycling
route types.  Returns the candidate routes found near each of the two
points as GeoJSON features from the Swiss federal geoportal.`),
		mcplib.WithString("route_type",
			mcplib.Description(routeTypeDescription),
			mcplib.Required(),
		),
		mcplib.WithArray("from_coordinates",
			mcplib.Description("Start point as a [longitude, latitude] pair."),
			mcplib.Items(coordPairSchema),
			mcplib.Required(),
		),
		mcplib.WithArray("to_coordinates",
			mcplib.Description("End point as a [longitude, latitude] pair."),
			mcplib.Items(coordPairSchema),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearchKnownRoutes}
}

// knownRoutes is the search_known_routes JSON result.
type knownRoutes struct {
	Layer     swissgeo.Layer    `json:"layer"`
	NearStart []json.RawMessage `json:"near_start"`
	NearEnd   []json.RawMessage `json:"near_end"`
}

func (s *Server) handleSearchKnownRoutes(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	routeType, ok := stringArg(req, "route_type")
	if !ok || routeType == "" {
		return resultErr(errors.New("search_known_routes: route_type is required")), nil
	}
	profile := ors.Profile(routeType)
	if err := profile.Validate(); err != nil {
		return resultErr(fmt.Errorf("search_known_routes: %w", err)), nil
	}
	from, err := coordArg(req, "from_coordinates")
	if err != nil {
		return resultErr(fmt.Errorf("search_known_routes: %w", err)), nil
	}
	to, err := coordArg(req, "to_coordinates")
	if err != nil {
		return resultErr(fmt.Errorf("search_known_routes: %w", err)), nil
	}

	layer, ok := swissgeo.LayerFor(profile)
	if !ok {
		return resultText(fmt.Sprintf("No known route network exists for route type %q. Known routes cover foot and cycling profiles only.", profile)), nil
	}
	for _, pt := range [][]float64{from, to} {
		if !swissgeo.InSwitzerland(pt[0], pt[1]) {
			return resultText(fmt.Sprintf("Coordinate [%v, %v] is outside Switzerland. Known route search is only available within Switzerland.", pt[0], pt[1])), nil
		}
	}

	s.logger.InfoContext(ctx, "mcp: search_known_routes", "route_type", profile, "layer", layer, "from", from, "to", to)

	var nearStart, nearEnd *swissgeo.Trails
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		nearStart, err = s.swiss.Identify(egctx, from[0], from[1], layer)
		return err
	})
	eg.Go(func() error {
		var err error
		nearEnd, err = s.swiss.Identify(egctx, to[0], to[1], layer)
		return err
	})
	if err := eg.Wait(); err != nil {
		return resultErr(fmt.Errorf("search_known_routes: %w", err)), nil
	}

	if len(nearStart.Results) == 0 && len(nearEnd.Results) == 0 {
		return resultText("No known routes found near the given coordinates."), nil
	}
	return resultJSON(knownRoutes{
		Layer:     layer,
		NearStart: nearStart.Results,
		NearEnd:   nearEnd.Results,
	})
}

// ─── get_reachable_area ───────────────────────────────────────────────────────

func (s *Server) toolGetReachableArea() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_reachable_area",
		mcplib.WithDescription(`Compute the area reachable from one or more starting points within a given
travel time or distance (isochrones).

Returns a GeoJSON feature collection with one polygon per start point and
range value.  The default range is 300 for time (seconds) and 200 for
distance (metres).`),
		mcplib.WithArray("coordinates_list",
			mcplib.Description("Starting points, each a [longitude, latitude] pair."),
			mcplib.Items(map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number"},
			}),
			mcplib.Required(),
		),
		mcplib.WithString("route_type",
			mcplib.Description(routeTypeDescription),
			mcplib.Required(),
		),
		mcplib.WithString("range_type",
			mcplib.Description("Unit of the range: \"time\" (seconds) or \"distance\" (metres)."),
			mcplib.Required(),
		),
		mcplib.WithArray("area_range",
			mcplib.Description("Range values in the range_type unit, e.g. [300, 200] for 5-minute and ~3-minute contours."),
			mcplib.Items(map[string]any{"type": "number"}),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetReachableArea}
}

func (s *Server) handleGetReachableArea(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	locations, err := coordListArg(req, "coordinates_list")
	if err != nil {
		return resultErr(fmt.Errorf("get_reachable_area: %w", err)), nil
	}
	if len(locations) == 0 {
		return resultErr(errors.New("get_reachable_area: coordinates_list is required")), nil
	}
	routeType, ok := stringArg(req, "route_type")
	if !ok || routeType == "" {
		return resultErr(errors.New("get_reachable_area: route_type is required")), nil
	}
	profile := ors.Profile(routeType)
	if err := profile.Validate(); err != nil {
		return resultErr(fmt.Errorf("get_reachable_area: %w", err)), nil
	}
	rt, ok := stringArg(req, "range_type")
	if !ok || rt == "" {
		return resultErr(errors.New("get_reachable_area: range_type is required")), nil
	}
	rangeType := ors.RangeType(rt)
	if err := rangeType.Validate(); err != nil {
		return resultErr(fmt.Errorf("get_reachable_area: %w", err)), nil
	}
	ranges, err := intSliceArg(req, "area_range")
	if err != nil {
		return resultErr(fmt.Errorf("get_reachable_area: %w", err)), nil
	}

	s.logger.InfoContext(ctx, "mcp: get_reachable_area", "route_type", profile, "range_type", rangeType, "locations", len(locations))

	fc, err := s.ors.Isochrones(ctx, locations, profile, rangeType, ranges)
	if err != nil {
		return resultErr(fmt.Errorf("get_reachable_area: %w", err)), nil
	}
	return resultJSON(fc)
}
