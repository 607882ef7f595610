package ors

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefIsochroneRange is the default isochrone range: seconds for RangeTime,
// metres for RangeDistance.
var DefIsochroneRange = []int{300, 200}

// isochronesRequest is the POST body of the isochrones endpoint.
type isochronesRequest struct {
	Locations [][]float64 `json:"locations"`
	Range     []int       `json:"range"`
	RangeType RangeType   `json:"range_type"`
}

// Isochrones computes the area that can be reached within the given time or
// distance ranges from one or more starting [lon, lat] coordinates.  An empty
// ranges slice falls back to DefIsochroneRange.
func (c *Client) Isochrones(ctx context.Context, locations [][]float64, profile Profile, rangeType RangeType, ranges []int) (*FeatureCollection, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("isochrones: %w", err)
	}
	if err := rangeType.Validate(); err != nil {
		return nil, fmt.Errorf("isochrones: %w", err)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("isochrones: at least one location is required")
	}
	for i, pt := range locations {
		if len(pt) != 2 {
			return nil, fmt.Errorf("isochrones: location %d must be a [longitude, latitude] pair", i)
		}
	}
	if len(ranges) == 0 {
		ranges = DefIsochroneRange
	}

	body, err := c.post(ctx, "/v2/isochrones/"+profile.String(), isochronesRequest{
		Locations: locations,
		Range:     ranges,
		RangeType: rangeType,
	})
	if err != nil {
		return nil, fmt.Errorf("isochrones %s: %w", profile, err)
	}
	var fc FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("isochrones: parse response: %w", err)
	}
	return &fc, nil
}
