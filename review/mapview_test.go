// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"encoding/json"
	"errors"
	"html/template"
	"testing"

	"github.com/jcodagnone/polycheck/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMapWithPolygon(t *testing.T) {
	// polygon centered ~1.1 km north of the reference point
	poly := square(spatial.Point{Lat: 40.7929, Lng: -73.9654}, 0.005)

	view := ComposeMap(poly, centralPark.Point)

	require.NotNil(t, view.FitBounds)
	assert.Same(t, poly, view.Overlay)
	assert.Equal(t, centralPark.Point, view.Marker)
	assert.Equal(t, "Expected location", view.MarkerLabel)
	assert.InDelta(t, 40.7929, view.Center.Lat, 1e-9)
	assert.True(t, view.FitBounds.Contains(view.Center))
	assert.False(t, view.FitBounds.Contains(centralPark.Point))

	require.NotNil(t, view.DistanceMeters)
	assert.InDelta(t, 1112, *view.DistanceMeters, 10)
}

func TestComposeMapWithoutPolygon(t *testing.T) {
	for _, poly := range []*Geometry{
		nil,
		{Type: "Point", Coordinates: json.RawMessage(`[0,0]`)},
		{Type: GeometryPolygon, Coordinates: json.RawMessage(`"broken"`)},
	} {
		view := ComposeMap(poly, nowhereville.Point)

		assert.Equal(t, nowhereville.Point, view.Center)
		assert.Equal(t, nowhereville.Point, view.Marker)
		assert.Equal(t, DefaultZoom, view.Zoom)
		assert.Nil(t, view.FitBounds)
		assert.Nil(t, view.Overlay)
		assert.Nil(t, view.DistanceMeters)
	}
}

func TestLeafletRenderer(t *testing.T) {
	r := &LeafletRenderer{Width: 500, Height: 400}
	assert.Equal(t, "OpenStreetMap", r.Name())

	withPolygon, err := r.Render(ComposeMap(square(centralPark.Point, 0.01), centralPark.Point))
	require.NoError(t, err)

	html := string(withPolygon)
	assert.Contains(t, html, `id="osm-map"`)
	assert.Contains(t, html, "width: 500px")
	assert.Contains(t, html, "L.geoJSON(")
	assert.Contains(t, html, `"type":"Polygon"`)
	assert.Contains(t, html, "fitBounds")
	assert.Contains(t, html, "Expected location")
	assert.NotContains(t, html, "setView")

	withoutPolygon, err := r.Render(ComposeMap(nil, nowhereville.Point))
	require.NoError(t, err)

	html = string(withoutPolygon)
	assert.Contains(t, html, "setView")
	assert.Contains(t, html, "L.marker(")
	assert.NotContains(t, html, "L.geoJSON(")
}

func TestGoogleEmbedRenderer(t *testing.T) {
	view := ComposeMap(square(centralPark.Point, 0.01), centralPark.Point)

	keyless := &GoogleEmbedRenderer{Width: 500, Height: 400}
	assert.Equal(t, "Google Maps", keyless.Name())
	assert.Equal(t, "https://maps.google.com/maps?output=embed&q=40.7829%2C-73.9654&z=13", keyless.EmbedURL(view))

	keyed := &GoogleEmbedRenderer{APIKey: "secret"}
	assert.Equal(t, "https://www.google.com/maps/embed/v1/place?key=secret&q=40.7829%2C-73.9654&zoom=13", keyed.EmbedURL(view))

	html, err := keyless.Render(view)
	require.NoError(t, err)
	assert.Contains(t, string(html), `<iframe class="map" src="https://maps.google.com/maps?output=embed&amp;q=`)
	assert.Contains(t, string(html), `width="500"`)
}

func TestGoogleSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=Central+Park+40.7829%2C-73.9654",
		GoogleSearchURL(centralPark))
}

type failingRenderer struct{}

func (failingRenderer) Name() string { return "broken" }

func (failingRenderer) Render(MapView) (template.HTML, error) {
	return "", errors.New("no tiles")
}

func TestRenderComparison(t *testing.T) {
	view := ComposeMap(nil, centralPark.Point)

	panels, err := RenderComparison(view, &LeafletRenderer{}, &GoogleEmbedRenderer{})
	require.NoError(t, err)
	require.Len(t, panels, 2)
	assert.Equal(t, "OpenStreetMap", panels[0].Name)
	assert.Equal(t, "Google Maps", panels[1].Name)
	assert.NotEmpty(t, panels[1].HTML)

	_, err = RenderComparison(view, &LeafletRenderer{}, failingRenderer{})
	require.ErrorContains(t, err, "rendering broken map")
}
