package ors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DefSearchLimit is the default number of geocoding matches requested.
const DefSearchLimit = 10

// GeocodeSearch searches for possible coordinates of a location given as a
// free-form address or place name.  size limits the number of returned
// matches; 0 means DefSearchLimit.  Returns ErrNoResults when the location
// cannot be geocoded.
func (c *Client) GeocodeSearch(ctx context.Context, text string, size int) ([]Location, error) {
	if text == "" {
		return nil, fmt.Errorf("geocode: %w", errEmptyQuery)
	}
	if size <= 0 {
		size = DefSearchLimit
	}
	params := url.Values{
		"text": []string{text},
		"size": []string{strconv.Itoa(size)},
	}
	body, err := c.get(ctx, "/geocode/search", params)
	if err != nil {
		return nil, fmt.Errorf("geocode search %q: %w", text, err)
	}
	return parseGeocode(body, fmt.Sprintf("could not geocode location: %s", text))
}

// GeocodeReverse returns the enclosing objects with an address tag that
// surround the given coordinate.
func (c *Client) GeocodeReverse(ctx context.Context, lon, lat float64) ([]Location, error) {
	params := url.Values{
		"point.lon": []string{formatCoord(lon)},
		"point.lat": []string{formatCoord(lat)},
	}
	body, err := c.get(ctx, "/geocode/reverse", params)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode [%v, %v]: %w", lon, lat, err)
	}
	return parseGeocode(body, fmt.Sprintf("could not reverse geocode location: [%v, %v]", lon, lat))
}

func parseGeocode(body []byte, noResultsMsg string) ([]Location, error) {
	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse geocode response: %w", err)
	}
	if len(resp.Features) == 0 {
		return nil, fmt.Errorf("%s: %w", noResultsMsg, ErrNoResults)
	}
	return resp.locations(), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
