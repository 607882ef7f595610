package mcp

// In this file: route:// resource template and artifact read-back.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// routeURIPrefix is the URI scheme prefix of generated route resources.
const routeURIPrefix = "route:///"

const (
	mimeGPX  = "application/gpx+xml"
	mimePNG  = "image/png"
	mimeHTML = "text/html"
)

// errNoDataDir is returned when artifacts cannot be read back, either because
// saving is disabled or because the storage target is a ZIP file, which is
// write-only.
var errNoDataDir = errors.New("generated routes are not readable on this server (saving disabled or ZIP storage)")

// registerResources registers the route://{filename} resource template that
// serves previously generated route files.
func (s *Server) registerResources() {
	tmpl := mcplib.NewResourceTemplate(
		routeURIPrefix+"{filename}",
		"Generated route",
		mcplib.WithTemplateDescription("A route file generated by the create_route_from_to tool: the GPX document, its PNG map preview or its HTML map."),
		mcplib.WithTemplateMIMEType(mimeGPX),
	)
	s.mcp.AddResourceTemplate(tmpl, s.handleRouteResource)
}

func (s *Server) handleRouteResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	filename := strings.TrimPrefix(req.Params.URI, routeURIPrefix)
	data, mime, err := s.readArtifact(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Params.URI, err)
	}

	s.logger.DebugContext(ctx, "resource read", "uri", req.Params.URI, "size", len(data))

	if mime == mimePNG {
		return []mcplib.ResourceContents{mcplib.BlobResourceContents{
			URI:      req.Params.URI,
			MIMEType: mime,
			Blob:     base64Encode(data),
		}}, nil
	}
	return []mcplib.ResourceContents{mcplib.TextResourceContents{
		URI:      req.Params.URI,
		MIMEType: mime,
		Text:     string(data),
	}}, nil
}

// readArtifact reads a generated route file from the data directory.  The
// filename is reduced to its base name so that resource URIs cannot escape
// the directory.
func (s *Server) readArtifact(filename string) (data []byte, mime string, err error) {
	if s.dataDir == "" {
		return nil, "", errNoDataDir
	}
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) {
		return nil, "", errors.New("empty filename")
	}
	data, err = os.ReadFile(filepath.Join(s.dataDir, filename))
	if err != nil {
		return nil, "", err
	}
	return data, mimeFor(filename), nil
}

// mimeFor returns the MIME type of a route artifact by its extension.
func mimeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gpx":
		return mimeGPX
	case ".png":
		return mimePNG
	case ".html":
		return mimeHTML
	}
	return "application/octet-stream"
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
