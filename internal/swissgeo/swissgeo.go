// Package swissgeo provides a limited client for the public Swiss
// geo-information API (https://api3.geo.admin.ch).  It is used to discover
// known hiking and cycling trails near a coordinate, which only works for
// locations within Switzerland.
package swissgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vemonet/openroute-mcp/internal/ors"
)

// DefBaseURL is the public Swiss geo API endpoint.
const DefBaseURL = "https://api3.geo.admin.ch"

const identifyPath = "/rest/services/all/MapServer/identify"

// extentDelta is the half-width of the map extent around the queried
// coordinate, in degrees.  0.02 is approximately 2 km.
const extentDelta = 0.02

// Layer is a Swiss geo API map layer.
type Layer string

const (
	// LayerHiking is the Swiss hiking trail network.
	LayerHiking Layer = "all:ch.swisstopo.swisstlm3d-wanderwege"
	// LayerCycling is the "Veloland" cycling route network.
	LayerCycling Layer = "all:ch.astra.veloland"
	// LayerMountainBike is the "Mountainbikeland" route network.
	LayerMountainBike Layer = "all:ch.astra.mountainbikeland"
)

// LayerFor maps a routing profile to the Swiss layer holding the known
// routes for that activity.  It returns ok=false for profiles that have no
// trail data (driving, wheelchair).
func LayerFor(p ors.Profile) (Layer, bool) {
	switch p {
	case ors.FootWalking, ors.FootHiking:
		return LayerHiking, true
	case ors.CyclingRegular, ors.CyclingRoad, ors.CyclingElectric:
		return LayerCycling, true
	case ors.CyclingMountain:
		return LayerMountainBike, true
	}
	return "", false
}

// InSwitzerland reports whether the coordinate is approximately within
// Switzerland's boundaries (longitude 5.96–10.49 East, latitude 45.82–47.81
// North).
func InSwitzerland(lon, lat float64) bool {
	return 5.96 <= lon && lon <= 10.49 && 45.82 <= lat && lat <= 47.81
}

// Trails is the identify endpoint response.
type Trails struct {
	Results []json.RawMessage `json:"results"`
}

// Client is the Swiss geo API client.  The zero value uses the public
// endpoint and http.DefaultClient.
type Client struct {
	// BaseURL overrides the API endpoint; empty means DefBaseURL.
	BaseURL string
	// HTTPClient overrides the HTTP client; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Identify returns the known trails of the given layer near the coordinate.
func (c Client) Identify(ctx context.Context, lon, lat float64, layer Layer) (*Trails, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefBaseURL
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	params := url.Values{
		"geometry":       []string{fmt.Sprintf("%v,%v", lon, lat)},
		"geometryFormat": []string{"geojson"},
		"geometryType":   []string{"esriGeometryPoint"},
		"sr":             []string{"4326"},
		"layers":         []string{string(layer)},
		"tolerance":      []string{"500"},
		"mapExtent": []string{fmt.Sprintf("%v,%v,%v,%v",
			lon-extentDelta, lat-extentDelta, lon+extentDelta, lat+extentDelta)},
		"imageDisplay": []string{"600,400,96"},
	}
	uri := baseURL + identifyPath + "?" + params.Encode()
	slog.DebugContext(ctx, "swissgeo: identify", "uri", uri)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to issue Swiss geo API request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.WarnContext(ctx, "swissgeo: failed to close response body", "err", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("swissgeo: invalid API status code (%d) for layer %s", resp.StatusCode, strconv.Quote(string(layer)))
	}

	var trails Trails
	if err := json.NewDecoder(resp.Body).Decode(&trails); err != nil {
		return nil, fmt.Errorf("swissgeo: parse identify response: %w", err)
	}
	return &trails, nil
}
