// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/url"
	"strconv"

	"github.com/jcodagnone/polycheck/spatial"
)

// DefaultZoom is used when there's no polygon to fit the viewport to.
const DefaultZoom = 13

// MapView is a renderer independent description of one comparison map.
type MapView struct {
	Center      spatial.Point   `json:"center"`
	Zoom        int             `json:"zoom"`
	FitBounds   *spatial.Bounds `json:"fit_bounds,omitempty"`
	Overlay     *Geometry       `json:"overlay,omitempty"`
	Marker      spatial.Point   `json:"marker"`
	MarkerLabel string          `json:"marker_label"`

	// DistanceMeters from the marker to the center of the polygon's bounding box.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// ComposeMap fits the view to poly when present, otherwise centers it on ref.
// ref is always marked.
func ComposeMap(poly *Geometry, ref spatial.Point) MapView {
	view := MapView{
		Center:      ref,
		Zoom:        DefaultZoom,
		Marker:      ref,
		MarkerLabel: "Expected location",
	}

	if !poly.IsPolygon() {
		return view
	}

	bounds, err := poly.Bounds()
	if err != nil {
		log.Printf("⚠️  can't fit map to polygon: %v", err)

		return view
	}

	center := bounds.Center()
	distance := ref.HaversineDistance(&center)

	view.Center = center
	view.FitBounds = &bounds
	view.Overlay = poly
	view.DistanceMeters = &distance

	return view
}

// Renderer turns a MapView into an embeddable HTML fragment.
type Renderer interface {
	Name() string
	Render(view MapView) (template.HTML, error)
}

// Panel is one rendered map of the comparison view.
type Panel struct {
	Name string
	HTML template.HTML
}

// RenderComparison renders the same view with every renderer, side by side.
func RenderComparison(view MapView, renderers ...Renderer) ([]Panel, error) {
	panels := make([]Panel, 0, len(renderers))

	for _, r := range renderers {
		h, err := r.Render(view)
		if err != nil {
			return nil, fmt.Errorf("rendering %s map: %w", r.Name(), err)
		}

		panels = append(panels, Panel{Name: r.Name(), HTML: h})
	}

	return panels, nil
}

var leafletTemplate = template.Must(template.New("leaflet").Parse(`<div id="{{.ID}}" class="map" style="width: {{.Width}}px; height: {{.Height}}px"></div>
<script>
(function () {
  var m = L.map({{.ID}});
  L.tileLayer({{.TileURL}}, {maxZoom: 19, attribution: {{.Attribution}}}).addTo(m);
  L.marker([{{.View.Marker.Lat}}, {{.View.Marker.Lng}}]).addTo(m).bindPopup({{.View.MarkerLabel}});
{{- if .View.Overlay}}
  L.geoJSON({{.View.Overlay}}).addTo(m);
  m.fitBounds([[{{.View.FitBounds.SouthWest.Lat}}, {{.View.FitBounds.SouthWest.Lng}}], [{{.View.FitBounds.NorthEast.Lat}}, {{.View.FitBounds.NorthEast.Lng}}]]);
{{- else}}
  m.setView([{{.View.Center.Lat}}, {{.View.Center.Lng}}], {{.View.Zoom}});
{{- end}}
})();
</script>`))

// LeafletRenderer draws an interactive OpenStreetMap with the polygon overlay.
// The page must include the Leaflet stylesheet and script.
type LeafletRenderer struct {
	Width, Height int
}

func (r *LeafletRenderer) Name() string {
	return "OpenStreetMap"
}

func (r *LeafletRenderer) Render(view MapView) (template.HTML, error) {
	var buf bytes.Buffer

	err := leafletTemplate.Execute(&buf, struct {
		ID            string
		Width, Height int
		TileURL       string
		Attribution   string
		View          MapView
	}{
		ID:          "osm-map",
		Width:       r.Width,
		Height:      r.Height,
		TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		View:        view,
	})
	if err != nil {
		return "", err
	}

	//nolint:gosec // produced by html/template
	return template.HTML(buf.String()), nil
}

var iframeTemplate = template.Must(template.New("iframe").Parse(
	`<iframe class="map" src="{{.URL}}" width="{{.Width}}" height="{{.Height}}" style="border: 0" loading="lazy" referrerpolicy="no-referrer-when-downgrade"></iframe>`))

// GoogleEmbedRenderer embeds Google Maps centered on the marker. It never
// shows the polygon: it's an independent source to cross check the point.
type GoogleEmbedRenderer struct {
	// APIKey enables the Maps Embed API. Without it the keyless embed is used.
	APIKey        string
	Width, Height int
}

func (r *GoogleEmbedRenderer) Name() string {
	return "Google Maps"
}

// EmbedURL returns the iframe address for view.
func (r *GoogleEmbedRenderer) EmbedURL(view MapView) string {
	coords := formatCoord(view.Marker.Lat) + "," + formatCoord(view.Marker.Lng)
	zoom := strconv.Itoa(DefaultZoom)

	if r.APIKey != "" {
		params := url.Values{}
		params.Set("key", r.APIKey)
		params.Set("q", coords)
		params.Set("zoom", zoom)

		return "https://www.google.com/maps/embed/v1/place?" + params.Encode()
	}

	params := url.Values{}
	params.Set("q", coords)
	params.Set("z", zoom)
	params.Set("output", "embed")

	return "https://maps.google.com/maps?" + params.Encode()
}

func (r *GoogleEmbedRenderer) Render(view MapView) (template.HTML, error) {
	var buf bytes.Buffer

	err := iframeTemplate.Execute(&buf, struct {
		URL           string
		Width, Height int
	}{r.EmbedURL(view), r.Width, r.Height})
	if err != nil {
		return "", err
	}

	//nolint:gosec // produced by html/template
	return template.HTML(buf.String()), nil
}

// GoogleSearchURL opens a Google Maps search for the entry in a new tab.
func GoogleSearchURL(entry Entry) string {
	q := fmt.Sprintf("%s %s,%s", entry.Name, formatCoord(entry.Point.Lat), formatCoord(entry.Point.Lng))

	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
