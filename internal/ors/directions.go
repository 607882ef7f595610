package ors

import (
	"context"
	"fmt"
)

// directionsRequest is the POST body of the directions endpoint.
type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// Directions creates a route through the given [lon, lat] coordinates (at
// least two: start and destination, optionally waypoints in between) and
// returns it in the GPX representation as produced by the upstream service.
func (c *Client) Directions(ctx context.Context, profile Profile, coordinates [][]float64) ([]byte, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	if len(coordinates) < 2 {
		return nil, fmt.Errorf("directions: need at least 2 coordinate pairs, got %d", len(coordinates))
	}
	for i, pt := range coordinates {
		if len(pt) != 2 {
			return nil, fmt.Errorf("directions: coordinate %d must be a [longitude, latitude] pair", i)
		}
	}
	body, err := c.post(ctx, "/v2/directions/"+profile.String()+"/gpx", directionsRequest{Coordinates: coordinates})
	if err != nil {
		return nil, fmt.Errorf("directions %s: %w", profile, err)
	}
	return body, nil
}
