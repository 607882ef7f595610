package routemap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

// htmlTmpl is a self-contained Leaflet map page with the route polyline and
// start/end markers.  Leaflet assets are loaded from the unpkg CDN.
var htmlTmpl = template.Must(template.New("routemap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Route map</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var points = {{.Points}};
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 13);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
	attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var line = L.polyline(points, {color: 'blue', weight: 5, opacity: 0.8}).addTo(map);
L.marker(points[0]).bindTooltip('Start').addTo(map);
L.marker(points[points.length - 1]).bindTooltip('End').addTo(map);
map.fitBounds(line.getBounds());
</script>
</body>
</html>
`))

// RenderHTML renders the route as a standalone HTML page with an interactive
// map, centred roughly at the route midpoint.
func RenderHTML(points []Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	latlngs := make([][2]float64, len(points))
	var sumLat, sumLon float64
	for i, p := range points {
		latlngs[i] = [2]float64{p.Lat, p.Lon}
		sumLat += p.Lat
		sumLon += p.Lon
	}
	coords, err := json.Marshal(latlngs)
	if err != nil {
		return nil, fmt.Errorf("marshal route points: %w", err)
	}

	var buf bytes.Buffer
	err = htmlTmpl.Execute(&buf, struct {
		Points    template.JS
		CenterLat float64
		CenterLon float64
	}{
		Points:    template.JS(coords),
		CenterLat: sumLat / float64(len(points)),
		CenterLon: sumLon / float64(len(points)),
	})
	if err != nil {
		return nil, fmt.Errorf("render html map: %w", err)
	}
	return buf.Bytes(), nil
}
