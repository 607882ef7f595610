package ors

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureIsochrones = `{
	"type": "FeatureCollection",
	"bbox": [6.6, 46.5, 6.7, 46.55],
	"features": [
		{"type": "Feature", "properties": {"group_index": 0, "value": 300},
		 "geometry": {"type": "Polygon", "coordinates": [[[6.6, 46.5], [6.7, 46.5], [6.7, 46.55], [6.6, 46.5]]]}}
	]
}`

func TestIsochrones(t *testing.T) {
	t.Run("builds the isochrones request", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/isochrones/cycling-mountain", r.URL.Path)
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var req isochronesRequest
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, [][]float64{{6.632, 46.519}}, req.Locations)
			assert.Equal(t, []int{600}, req.Range)
			assert.Equal(t, RangeTime, req.RangeType)
			w.Write([]byte(fixtureIsochrones))
		})
		got, err := cl.Isochrones(t.Context(), [][]float64{{6.632, 46.519}}, CyclingMountain, RangeTime, []int{600})
		require.NoError(t, err)
		require.Len(t, got.Features, 1)
		assert.Contains(t, string(got.Features[0]), "Polygon")
	})
	t.Run("empty range falls back to default", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var req isochronesRequest
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, DefIsochroneRange, req.Range)
			w.Write([]byte(fixtureIsochrones))
		})
		_, err := cl.Isochrones(t.Context(), [][]float64{{6.632, 46.519}}, FootHiking, RangeDistance, nil)
		require.NoError(t, err)
	})
	t.Run("validation", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request must not be issued")
		})
		_, err := cl.Isochrones(t.Context(), [][]float64{{6.632, 46.519}}, Profile("swimming"), RangeTime, nil)
		assert.Error(t, err, "invalid profile")
		_, err = cl.Isochrones(t.Context(), [][]float64{{6.632, 46.519}}, FootHiking, RangeType("parsecs"), nil)
		assert.Error(t, err, "invalid range type")
		_, err = cl.Isochrones(t.Context(), nil, FootHiking, RangeTime, nil)
		assert.Error(t, err, "no locations")
		_, err = cl.Isochrones(t.Context(), [][]float64{{6.632}}, FootHiking, RangeTime, nil)
		assert.Error(t, err, "malformed location")
	})
}
