package ors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureGeocode = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [6.976051, 46.431819]},
			"properties": {
				"name": "Rochers de Naye",
				"label": "Rochers de Naye, Veytaux, Switzerland",
				"confidence": 0.8,
				"layer": "venue"
			}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [2.3522, 48.8566]},
			"properties": {
				"name": "Paris",
				"label": "Paris, France",
				"confidence": 0.6,
				"layer": "locality"
			}
		}
	]
}`

func TestGeocodeSearch(t *testing.T) {
	t.Run("parses ranked results", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geocode/search", r.URL.Path)
			assert.Equal(t, "Rochers de Naye", r.URL.Query().Get("text"))
			assert.Equal(t, "10", r.URL.Query().Get("size"))
			w.Write([]byte(fixtureGeocode))
		})
		got, err := cl.GeocodeSearch(t.Context(), "Rochers de Naye", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, "Rochers de Naye", got[0].Name)
		assert.Equal(t, "Rochers de Naye, Veytaux, Switzerland", got[0].Address)
		assert.InDelta(t, 6.976051, got[0].Longitude, 1e-9)
		assert.InDelta(t, 46.431819, got[0].Latitude, 1e-9)
		assert.Equal(t, "venue", got[0].Layer)

		assert.Equal(t, 2, got[1].Rank)
		assert.Equal(t, "Paris", got[1].Name)
	})
	t.Run("custom size", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", r.URL.Query().Get("size"))
			w.Write([]byte(fixtureGeocode))
		})
		_, err := cl.GeocodeSearch(t.Context(), "Paris", 3)
		require.NoError(t, err)
	})
	t.Run("no features is ErrNoResults", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		})
		_, err := cl.GeocodeSearch(t.Context(), "ThisIsDefinitelyNotARealPlace", 0)
		assert.ErrorIs(t, err, ErrNoResults)
	})
	t.Run("empty query is an error", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request must not be issued")
		})
		_, err := cl.GeocodeSearch(t.Context(), "", 0)
		assert.Error(t, err)
	})
	t.Run("malformed response", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		})
		_, err := cl.GeocodeSearch(t.Context(), "Paris", 0)
		assert.Error(t, err)
	})
}

func TestGeocodeReverse(t *testing.T) {
	t.Run("passes point parameters", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geocode/reverse", r.URL.Path)
			assert.Equal(t, "6.632", r.URL.Query().Get("point.lon"))
			assert.Equal(t, "46.519", r.URL.Query().Get("point.lat"))
			w.Write([]byte(fixtureGeocode))
		})
		got, err := cl.GeocodeReverse(t.Context(), 6.632, 46.519)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
	t.Run("no features is ErrNoResults", func(t *testing.T) {
		cl := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"features":[]}`))
		})
		_, err := cl.GeocodeReverse(t.Context(), 0, 0)
		assert.ErrorIs(t, err, ErrNoResults)
	})
}
