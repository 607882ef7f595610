// Package routemap renders visual artifacts (a PNG preview and an
// interactive HTML map) for a GPX route returned by the directions API.
package routemap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"

	sm "github.com/flopp/go-staticmaps"
	"github.com/golang/geo/s2"
	"github.com/tkrajina/gpxgo/gpx"
)

// ErrNoPoints is returned when the GPX data contains no usable track or
// route points.
var ErrNoPoints = errors.New("no coordinates found in GPX data")

// image dimensions of the PNG preview.
const (
	imgWidth  = 800
	imgHeight = 600
)

var (
	lineColor  = color.RGBA{B: 0xff, A: 0xff} // blue
	startColor = color.RGBA{G: 0x80, A: 0xff} // green
	endColor   = color.RGBA{R: 0xff, A: 0xff} // red
)

// Point is a single route point.
type Point struct {
	Lat float64
	Lon float64
}

// Points extracts all track <trk> and route <rte> points from GPX data, in
// document order.
func Points(data []byte) ([]Point, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}
	var pts []Point
	for _, trk := range g.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				pts = append(pts, Point{Lat: p.Latitude, Lon: p.Longitude})
			}
		}
	}
	for _, rte := range g.Routes {
		for _, p := range rte.Points {
			pts = append(pts, Point{Lat: p.Latitude, Lon: p.Longitude})
		}
	}
	if len(pts) == 0 {
		return nil, ErrNoPoints
	}
	return pts, nil
}

// RenderPNG renders the route as a PNG image of an OpenStreetMap static map,
// with the route drawn in blue and start/end markers in green/red.  It
// downloads map tiles, so it needs network access.
func RenderPNG(points []Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	positions := make([]s2.LatLng, len(points))
	for i, p := range points {
		positions[i] = s2.LatLngFromDegrees(p.Lat, p.Lon)
	}

	ctx := sm.NewContext()
	ctx.SetSize(imgWidth, imgHeight)
	ctx.AddObject(sm.NewPath(positions, lineColor, 3.0))
	ctx.AddObject(sm.NewMarker(positions[0], startColor, 10.0))
	ctx.AddObject(sm.NewMarker(positions[len(positions)-1], endColor, 10.0))

	img, err := ctx.Render()
	if err != nil {
		return nil, fmt.Errorf("render static map: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// IndentXML pretty-prints the XML document with two-space indentation.  On
// any parse error the original document is returned unchanged: the upstream
// GPX is valid more often than our reformatting matters.
func IndentXML(data []byte) []byte {
	var buf bytes.Buffer
	dec := xml.NewDecoder(bytes.NewReader(data))
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return data
		}
		if cd, ok := tok.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return data
		}
	}
	if err := enc.Flush(); err != nil {
		return data
	}
	return buf.Bytes()
}
