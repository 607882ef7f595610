package ors

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// poiBuffer is the buffer around the request geometry, in metres.
	poiBuffer = 200
	// poiLimit is the maximum number of POIs requested.
	poiLimit = 100
)

// poisRequest is the POST body of the POI endpoint.
type poisRequest struct {
	Request  string       `json:"request"`
	Geometry poisGeometry `json:"geometry"`
	Limit    int          `json:"limit"`
	Filters  *poisFilters `json:"filters,omitempty"`
}

type poisGeometry struct {
	BBox    [][]float64 `json:"bbox"`
	GeoJSON poisPoint   `json:"geojson"`
	Buffer  int         `json:"buffer"`
}

type poisPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type poisFilters struct {
	Name []string `json:"name,omitempty"`
}

// POIs searches for points of interest within the bounding box given as
// [[min_lon, min_lat], [max_lon, max_lat]].  nameFilters optionally restricts
// the results to POIs with the given names.
func (c *Client) POIs(ctx context.Context, bbox [][]float64, nameFilters []string) (*FeatureCollection, error) {
	if len(bbox) != 2 || len(bbox[0]) != 2 || len(bbox[1]) != 2 {
		return nil, fmt.Errorf("pois: bounding box must be [[min_lon, min_lat], [max_lon, max_lat]]")
	}
	req := poisRequest{
		Request: "pois",
		Geometry: poisGeometry{
			BBox:    bbox,
			GeoJSON: poisPoint{Type: "Point", Coordinates: bbox[0]},
			Buffer:  poiBuffer,
		},
		Limit: poiLimit,
	}
	if len(nameFilters) > 0 {
		req.Filters = &poisFilters{Name: nameFilters}
	}

	body, err := c.post(ctx, "/pois", req)
	if err != nil {
		return nil, fmt.Errorf("pois: %w", err)
	}
	var fc FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("pois: parse response: %w", err)
	}
	return &fc, nil
}
