package ors

import (
	"encoding/json"
	"fmt"
)

// Profile is the routing profile ("route type") understood by the
// OpenRouteService directions and isochrones endpoints.
type Profile string

const (
	DrivingCar      Profile = "driving-car"
	DrivingHGV      Profile = "driving-hgv"
	CyclingRegular  Profile = "cycling-regular"
	CyclingRoad     Profile = "cycling-road"
	CyclingMountain Profile = "cycling-mountain"
	CyclingElectric Profile = "cycling-electric"
	FootWalking     Profile = "foot-walking"
	FootHiking      Profile = "foot-hiking"
	Wheelchair      Profile = "wheelchair"
)

// Profiles lists all routing profiles accepted by the API.
var Profiles = []Profile{
	DrivingCar, DrivingHGV,
	CyclingRegular, CyclingRoad, CyclingMountain, CyclingElectric,
	FootWalking, FootHiking,
	Wheelchair,
}

func (p Profile) String() string { return string(p) }

// Validate returns an error if p is not a known routing profile.
func (p Profile) Validate() error {
	for _, known := range Profiles {
		if p == known {
			return nil
		}
	}
	return fmt.Errorf("unknown route type %q (valid: %v)", string(p), Profiles)
}

// RangeType selects the unit of the isochrone range: travel time in seconds
// or distance in metres.
type RangeType string

const (
	RangeTime     RangeType = "time"
	RangeDistance RangeType = "distance"
)

// Validate returns an error if rt is not a known range type.
func (rt RangeType) Validate() error {
	if rt != RangeTime && rt != RangeDistance {
		return fmt.Errorf("unknown range type %q (valid: %q, %q)", string(rt), RangeTime, RangeDistance)
	}
	return nil
}

// Location is a single geocoding match.
type Location struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Confidence float64 `json:"confidence"`
	Layer      string  `json:"layer"`
}

// FeatureCollection is a GeoJSON feature collection as returned by the POI
// and isochrone endpoints.  Features are kept raw: the server passes them
// through to the calling agent verbatim.
type FeatureCollection struct {
	Type        string            `json:"type"`
	BBox        []float64         `json:"bbox,omitempty"`
	Features    []json.RawMessage `json:"features"`
	Information json.RawMessage   `json:"information,omitempty"`
}

// geoFeature is the relevant subset of a Pelias geocoding feature.
type geoFeature struct {
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Name       string  `json:"name"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
		Layer      string  `json:"layer"`
	} `json:"properties"`
}

// geocodeResponse is the geocoding endpoint response envelope.
type geocodeResponse struct {
	Features []geoFeature `json:"features"`
}

// locations converts geocoding features to ranked Locations.  Rank starts
// at 1: upstream orders features by match quality.
func (r *geocodeResponse) locations() []Location {
	results := make([]Location, 0, len(r.Features))
	for i, f := range r.Features {
		loc := Location{
			Rank:       i + 1,
			Name:       f.Properties.Name,
			Address:    f.Properties.Label,
			Confidence: f.Properties.Confidence,
			Layer:      f.Properties.Layer,
		}
		if len(f.Geometry.Coordinates) >= 2 {
			loc.Longitude = f.Geometry.Coordinates[0]
			loc.Latitude = f.Geometry.Coordinates[1]
		}
		results = append(results, loc)
	}
	return results
}
