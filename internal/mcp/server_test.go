package mcp

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/rusq/fsadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vemonet/openroute-mcp/internal/ors"
)

// newTestServer creates a *Server whose OpenRouteService client is pointed at
// an httptest server running h.  Rate limits are set high enough to never
// throttle a test.
func newTestServer(t *testing.T, h http.HandlerFunc, opt ...Option) *Server {
	t.Helper()
	upstream := httptest.NewServer(h)
	t.Cleanup(upstream.Close)

	cl, err := ors.New("test-key",
		ors.WithBaseURL(upstream.URL),
		ors.WithLimits(ors.Limits{PerMinute: 60000, Burst: 100, Retries: 1}),
	)
	require.NoError(t, err)

	opts := append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opt...)
	srv, err := New(cl, opts...)
	require.NoError(t, err)
	return srv
}

// noCallHandler fails the test if the upstream is contacted.
func noCallHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream request: %s %s", r.Method, r.URL)
		http.Error(w, "unexpected request", http.StatusTeapot)
	}
}

// serveJSON responds with the given body and a JSON content type.
func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

// serveStatus responds with the given status code and body.
func serveStatus(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, status)
	}
}

func readBody(t *testing.T, r *http.Request) string {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	return string(data)
}

// toolReq builds a CallToolRequest with the given argument map.
func toolReq(args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult returns true when the result carries IsError=true.
func isErrorResult(r *mcplib.CallToolResult) bool {
	return r != nil && r.IsError
}

// firstText returns the text of the first TextContent in the result.
func firstText(t *testing.T, r *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content, "result has no content")
	txt, ok := r.Content[0].(mcplib.TextContent)
	require.True(t, ok, "first content item is not TextContent")
	return txt.Text
}

// ─── New / options ────────────────────────────────────────────────────────────

func TestNew(t *testing.T) {
	t.Run("nil client is an error", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})
	t.Run("defaults", func(t *testing.T) {
		srv := newTestServer(t, noCallHandler(t))
		assert.NotNil(t, srv.mcp)
		assert.NotNil(t, srv.swiss)
		assert.NotNil(t, srv.logger)
		assert.Nil(t, srv.fs)
		assert.Empty(t, srv.dataDir)
	})
	t.Run("nil logger option does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			srv := newTestServer(t, noCallHandler(t), WithLogger(nil))
			assert.NotNil(t, srv.logger)
		})
	})
	t.Run("storage option", func(t *testing.T) {
		dir := t.TempDir()
		fsa, err := fsadapter.New(dir)
		require.NoError(t, err)
		t.Cleanup(func() { fsa.Close() })

		srv := newTestServer(t, noCallHandler(t), WithStorage(fsa, dir))
		assert.NotNil(t, srv.fs)
		assert.Equal(t, dir, srv.dataDir)
	})
}

func TestServe_unknownTransport(t *testing.T) {
	srv := newTestServer(t, noCallHandler(t))
	err := srv.Serve(t.Context(), Transport("carrier-pigeon"), "localhost:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestInstructions(t *testing.T) {
	got := instructions()
	assert.Contains(t, got, "OpenRouteService")
	assert.Contains(t, got, "[longitude, latitude]")
	assert.Contains(t, got, "route://")
}

// ─── argument helpers ─────────────────────────────────────────────────────────

func TestToCoord(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []float64
		wantErr bool
	}{
		{name: "valid pair", in: []any{6.631, 46.52}, want: []float64{6.631, 46.52}},
		{name: "not an array", in: "6.631,46.52", wantErr: true},
		{name: "wrong length", in: []any{6.631}, wantErr: true},
		{name: "non-numeric element", in: []any{6.631, "north"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toCoord(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoordListArg(t *testing.T) {
	t.Run("missing returns nil without error", func(t *testing.T) {
		got, err := coordListArg(toolReq(nil), "waypoints")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
	t.Run("parses pairs", func(t *testing.T) {
		got, err := coordListArg(toolReq(map[string]any{
			"waypoints": []any{[]any{6.8, 46.4}, []any{6.9, 46.5}},
		}), "waypoints")
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{6.8, 46.4}, {6.9, 46.5}}, got)
	})
	t.Run("reports the offending element", func(t *testing.T) {
		_, err := coordListArg(toolReq(map[string]any{
			"waypoints": []any{[]any{6.8, 46.4}, []any{6.9}},
		}), "waypoints")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "waypoints[1]")
	})
}

func TestSliceArgs(t *testing.T) {
	t.Run("string slice", func(t *testing.T) {
		got, err := stringSliceArg(toolReq(map[string]any{"f": []any{"a", "b"}}), "f")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	})
	t.Run("string slice with non-string element", func(t *testing.T) {
		_, err := stringSliceArg(toolReq(map[string]any{"f": []any{"a", 1.0}}), "f")
		assert.Error(t, err)
	})
	t.Run("int slice truncates floats", func(t *testing.T) {
		got, err := intSliceArg(toolReq(map[string]any{"r": []any{300.0, 200.0}}), "r")
		require.NoError(t, err)
		assert.Equal(t, []int{300, 200}, got)
	})
	t.Run("missing slices are nil", func(t *testing.T) {
		ss, err := stringSliceArg(toolReq(nil), "f")
		require.NoError(t, err)
		assert.Nil(t, ss)
		is, err := intSliceArg(toolReq(nil), "r")
		require.NoError(t, err)
		assert.Nil(t, is)
	})
}

// ─── artifact read-back ───────────────────────────────────────────────────────

func TestReadArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foot-hiking-x.gpx"), []byte("<gpx/>"), 0o644))

	fsa, err := fsadapter.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { fsa.Close() })

	srv := newTestServer(t, noCallHandler(t), WithStorage(fsa, dir))

	t.Run("reads a saved file", func(t *testing.T) {
		data, mime, err := srv.readArtifact("foot-hiking-x.gpx")
		require.NoError(t, err)
		assert.Equal(t, "<gpx/>", string(data))
		assert.Equal(t, "application/gpx+xml", mime)
	})
	t.Run("path components are stripped", func(t *testing.T) {
		data, _, err := srv.readArtifact("../../foot-hiking-x.gpx")
		require.NoError(t, err)
		assert.Equal(t, "<gpx/>", string(data))
	})
	t.Run("missing file", func(t *testing.T) {
		_, _, err := srv.readArtifact("nonexistent.gpx")
		assert.Error(t, err)
	})
	t.Run("no data dir", func(t *testing.T) {
		srv := newTestServer(t, noCallHandler(t))
		_, _, err := srv.readArtifact("foot-hiking-x.gpx")
		assert.ErrorIs(t, err, errNoDataDir)
	})
}

func TestMimeFor(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"route.gpx", "application/gpx+xml"},
		{"route.PNG", "image/png"},
		{"route.html", "text/html"},
		{"route.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mimeFor(tt.filename), tt.filename)
	}
}

func TestHandleRouteResource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.gpx"), []byte("<gpx/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	fsa, err := fsadapter.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { fsa.Close() })

	srv := newTestServer(t, noCallHandler(t), WithStorage(fsa, dir))

	readReq := func(uri string) mcplib.ReadResourceRequest {
		req := mcplib.ReadResourceRequest{}
		req.Params.URI = uri
		return req
	}

	t.Run("gpx is served as text", func(t *testing.T) {
		contents, err := srv.handleRouteResource(t.Context(), readReq("route:///r.gpx"))
		require.NoError(t, err)
		require.Len(t, contents, 1)
		txt, ok := contents[0].(mcplib.TextResourceContents)
		require.True(t, ok)
		assert.Equal(t, "route:///r.gpx", txt.URI)
		assert.Equal(t, "application/gpx+xml", txt.MIMEType)
		assert.Equal(t, "<gpx/>", txt.Text)
	})
	t.Run("png is served as blob", func(t *testing.T) {
		contents, err := srv.handleRouteResource(t.Context(), readReq("route:///r.png"))
		require.NoError(t, err)
		require.Len(t, contents, 1)
		blob, ok := contents[0].(mcplib.BlobResourceContents)
		require.True(t, ok)
		assert.Equal(t, "image/png", blob.MIMEType)
		assert.NotEmpty(t, blob.Blob)
	})
	t.Run("unknown file is an error", func(t *testing.T) {
		_, err := srv.handleRouteResource(t.Context(), readReq("route:///nope.gpx"))
		assert.Error(t, err)
	})
}

// ─── HTTP transport ───────────────────────────────────────────────────────────

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.gpx"), []byte("<gpx/>"), 0o644))

	fsa, err := fsadapter.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { fsa.Close() })

	srv := newTestServer(t, noCallHandler(t), WithStorage(fsa, dir))
	web := httptest.NewServer(srv.router())
	t.Cleanup(web.Close)

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(web.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"status":"ok"`)
	})

	t.Run("route download", func(t *testing.T) {
		resp, err := http.Get(web.URL + "/routes/r.gpx")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/gpx+xml", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "r.gpx")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "<gpx/>", string(body))
	})

	t.Run("route download of missing file", func(t *testing.T) {
		resp, err := http.Get(web.URL + "/routes/nope.gpx")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("route download without data dir", func(t *testing.T) {
		srv := newTestServer(t, noCallHandler(t))
		web := httptest.NewServer(srv.router())
		t.Cleanup(web.Close)

		resp, err := http.Get(web.URL + "/routes/r.gpx")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("mcp endpoint answers initialize", func(t *testing.T) {
		initReq := `{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": {"protocolVersion": "2025-03-26", "capabilities": {}, "clientInfo": {"name": "test", "version": "0.0.1"}}}`
		req, err := http.NewRequest(http.MethodPost, web.URL+"/mcp", strings.NewReader(initReq))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), serverName)
	})
}

// ─── prompts ──────────────────────────────────────────────────────────────────

func TestPromptHandler(t *testing.T) {
	promptReq := func(args map[string]string) mcplib.GetPromptRequest {
		req := mcplib.GetPromptRequest{}
		req.Params.Arguments = args
		return req
	}

	t.Run("renders hiking instructions", func(t *testing.T) {
		h := promptHandler("hiking", "foot-hiking")
		res, err := h(t.Context(), promptReq(map[string]string{
			"from_location": "Montreux",
			"to_location":   "Rochers de Naye",
		}))
		require.NoError(t, err)
		require.Len(t, res.Messages, 1)
		txt, ok := res.Messages[0].Content.(mcplib.TextContent)
		require.True(t, ok)
		assert.Contains(t, txt.Text, "Montreux")
		assert.Contains(t, txt.Text, `"foot-hiking"`)
		assert.Contains(t, res.Description, "Rochers de Naye")
	})

	t.Run("missing arguments", func(t *testing.T) {
		h := promptHandler("biking", "cycling-regular")
		_, err := h(t.Context(), promptReq(map[string]string{"from_location": "Bern"}))
		assert.Error(t, err)
	})
}
