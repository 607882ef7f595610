package mcp

// In this file: MCP server construction and transport management.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
	"github.com/rusq/fsadapter"

	"github.com/vemonet/openroute-mcp/internal/ors"
	"github.com/vemonet/openroute-mcp/internal/swissgeo"
)

const (
	serverName    = "openroute-mcp"
	serverVersion = "1.0.0"
)

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	// TransportStdio uses stdin/stdout for communication (default, suitable
	// for local agent integrations such as Claude Desktop).
	TransportStdio Transport = "stdio"
	// TransportHTTP uses Streamable HTTP transport (suitable for remote
	// agents or when multiple concurrent clients are needed).
	TransportHTTP Transport = "http"
)

// Server wraps an MCP server together with the OpenRouteService client and
// the storage for generated route artifacts.
type Server struct {
	mcp   *mcpsrv.MCPServer
	ors   *ors.Client
	swiss *swissgeo.Client

	fs      fsadapter.FS // artifact writes, nil disables saving
	dataDir string       // artifact reads, empty when storage is not a plain directory

	noImg   bool
	addHTML bool

	logger *slog.Logger
}

// Option is a functional option for New.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(lg *slog.Logger) Option {
	return func(s *Server) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// WithSwissClient overrides the geo.admin.ch client used by the
// search_known_routes tool.
func WithSwissClient(cl *swissgeo.Client) Option {
	return func(s *Server) {
		s.swiss = cl
	}
}

// WithStorage sets the storage for generated route artifacts.  fs receives
// all writes; dataDir, when not empty, is the directory the artifacts can be
// read back from by the route:// resource and the download endpoint.  A nil
// fs disables saving altogether.
func WithStorage(fs fsadapter.FS, dataDir string) Option {
	return func(s *Server) {
		s.fs = fs
		s.dataDir = dataDir
	}
}

// WithNoImages disables PNG map rendering for saved routes.
func WithNoImages(b bool) Option {
	return func(s *Server) {
		s.noImg = b
	}
}

// WithHTMLMaps enables rendering an additional interactive HTML map for each
// saved route.
func WithHTMLMaps(b bool) Option {
	return func(s *Server) {
		s.addHTML = b
	}
}

// New creates a new MCP server backed by the given OpenRouteService client.
// The server is populated with all tools, resources and prompts but does not
// start listening until one of the Serve* methods is called.
func New(client *ors.Client, opt ...Option) (*Server, error) {
	if client == nil {
		return nil, errors.New("mcp: nil openrouteservice client")
	}
	s := &Server{
		ors:    client,
		swiss:  &swissgeo.Client{},
		logger: slog.Default(),
	}
	for _, fn := range opt {
		fn(s)
	}

	mcpServer := mcpsrv.NewMCPServer(
		serverName,
		serverVersion,
		mcpsrv.WithInstructions(instructions()),
		mcpsrv.WithResourceCapabilities(false, true),
		mcpsrv.WithPromptCapabilities(false),
	)

	// Register all tools.
	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}

	s.mcp = mcpServer
	s.registerResources()
	s.registerPrompts()
	return s, nil
}

// instructions returns the server instructions that describe the service to
// the connecting agent.
func instructions() string {
	return `You are connected to an OpenRouteService MCP server.

Available tools allow you to:
- Search coordinates for a named location (geocoding)
- Describe what is at a given pair of coordinates (reverse geocoding)
- Create a route between two points for a given transport profile
- Search points of interest inside a bounding box
- Look up official Swiss hiking/biking routes near two points
- Compute the area reachable from given points within a time or distance

Coordinates are always [longitude, latitude] pairs in WGS84 decimal degrees.
Generated routes are returned as GPX documents and exposed as resources with
the route:// URI scheme.
`
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
// This is the standard transport used by local agent integrations.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until ctx
// is cancelled.  The MCP endpoint is mounted at /mcp; the server additionally
// exposes GET /health and GET /routes/{filename} for direct downloads of
// generated route files.  addr should be a host:port string such as
// "localhost:8888".
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: middleware.Logger(s.router()),
	}

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr, "endpoint", "/mcp")

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Serve runs the MCP server on the selected transport until ctx is
// cancelled.  addr is only used by TransportHTTP.
func (s *Server) Serve(ctx context.Context, t Transport, addr string) error {
	switch t {
	case TransportStdio, "":
		return s.ServeStdio(ctx)
	case TransportHTTP:
		return s.ServeHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport %q (use %q or %q)", t, TransportStdio, TransportHTTP)
	}
}

// router builds the HTTP routing table for the Streamable HTTP transport.
func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/routes/{filename}", s.handleDownload)
	r.Mount("/mcp", mcpsrv.NewStreamableHTTPServer(s.mcp))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","server":%q,"version":%q}`, serverName, serverVersion)
}

// handleDownload serves a previously generated route artifact from the data
// directory.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	data, mime, err := s.readArtifact(filename)
	if err != nil {
		s.logger.WarnContext(r.Context(), "route download failed", "filename", filename, "error", err)
		status := http.StatusNotFound
		if errors.Is(err, errNoDataDir) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// tools returns all MCP tools that this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolSearchLocationCoordinates(),
		s.toolGetCoordinatesObject(),
		s.toolCreateRouteFromTo(),
		s.toolSearchPOIs(),
		s.toolSearchKnownRoutes(),
		s.toolGetReachableArea(),
	}
}

// resultText is a helper that wraps text in a successful CallToolResult.
func resultText(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}

// resultErr is a helper that wraps an error in a CallToolResult with IsError=true.
func resultErr(err error) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(err.Error())},
		IsError: true,
	}
}

// resultJSON is a helper that serialises v to JSON and returns a CallToolResult.
func resultJSON(v any) (*mcplib.CallToolResult, error) {
	return mcplib.NewToolResultJSON(v)
}

// stringArg extracts a named string argument from a tool call request.
// Returns ("", false) if the argument is absent or not a string.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// floatArg extracts a named numeric argument.  JSON numbers always arrive as
// float64.
func floatArg(req mcplib.CallToolRequest, name string) (float64, bool) {
	args := req.GetArguments()
	if args == nil {
		return 0, false
	}
	v, ok := args[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// coordArg extracts a [longitude, latitude] pair from a tool call request.
func coordArg(req mcplib.CallToolRequest, name string) ([]float64, error) {
	args := req.GetArguments()
	if args == nil {
		return nil, fmt.Errorf("%s is required", name)
	}
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%s is required", name)
	}
	pair, err := toCoord(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return pair, nil
}

// coordListArg extracts a list of [longitude, latitude] pairs.  A missing
// argument returns (nil, nil); callers that require the argument check for an
// empty result.
func coordListArg(req mcplib.CallToolRequest, name string) ([][]float64, error) {
	args := req.GetArguments()
	if args == nil {
		return nil, nil
	}
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of [longitude, latitude] pairs", name)
	}
	coords := make([][]float64, 0, len(list))
	for i, el := range list {
		pair, err := toCoord(el)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		coords = append(coords, pair)
	}
	return coords, nil
}

// toCoord converts a decoded JSON value into a [longitude, latitude] pair.
func toCoord(v any) ([]float64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errors.New("must be a [longitude, latitude] pair")
	}
	if len(list) != 2 {
		return nil, fmt.Errorf("must have exactly 2 elements, got %d", len(list))
	}
	pair := make([]float64, 2)
	for i, el := range list {
		f, ok := el.(float64)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		pair[i] = f
	}
	return pair, nil
}

// stringSliceArg extracts an optional list of strings.  A missing argument
// returns (nil, nil).
func stringSliceArg(req mcplib.CallToolRequest, name string) ([]string, error) {
	args := req.GetArguments()
	if args == nil {
		return nil, nil
	}
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", name)
	}
	out := make([]string, 0, len(list))
	for i, el := range list {
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a string", name, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// intSliceArg extracts an optional list of integers.  A missing argument
// returns (nil, nil).
func intSliceArg(req mcplib.CallToolRequest, name string) ([]int, error) {
	args := req.GetArguments()
	if args == nil {
		return nil, nil
	}
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of numbers", name)
	}
	out := make([]int, 0, len(list))
	for i, el := range list {
		f, ok := el.(float64)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not a number", name, i)
		}
		out = append(out, int(f))
	}
	return out, nil
}
