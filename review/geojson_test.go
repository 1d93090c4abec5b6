// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jcodagnone/polycheck/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/h3-go/v4"
)

func TestGeometryIsPolygon(t *testing.T) {
	var nilGeometry *Geometry

	assert.False(t, nilGeometry.IsPolygon())
	assert.False(t, (&Geometry{Type: "Point", Coordinates: json.RawMessage(`[1,2]`)}).IsPolygon())
	assert.False(t, (&Geometry{Type: GeometryPolygon}).IsPolygon())
	assert.True(t, square(centralPark.Point, 0.01).IsPolygon())
	assert.True(t, (&Geometry{Type: GeometryMultiPolygon, Coordinates: json.RawMessage(`[]`)}).IsPolygon())
}

func TestGeometryBounds(t *testing.T) {
	bounds, err := square(spatial.Point{Lat: 10, Lng: 20}, 1).Bounds()
	require.NoError(t, err)
	assert.Equal(t, spatial.Point{Lat: 9, Lng: 19}, bounds.SouthWest)
	assert.Equal(t, spatial.Point{Lat: 11, Lng: 21}, bounds.NorthEast)

	multi := &Geometry{
		Type:        GeometryMultiPolygon,
		Coordinates: json.RawMessage(`[[[[0,0],[1,0],[1,1],[0,0]]],[[[5,-3],[6,-3],[6,-2],[5,-3]]]]`),
	}
	bounds, err = multi.Bounds()
	require.NoError(t, err)
	assert.Equal(t, spatial.Point{Lat: -3, Lng: 0}, bounds.SouthWest)
	assert.Equal(t, spatial.Point{Lat: 1, Lng: 6}, bounds.NorthEast)

	_, err = (&Geometry{Type: GeometryMultiPolygon, Coordinates: json.RawMessage(`[]`)}).Bounds()
	require.Error(t, err)

	_, err = (&Geometry{Type: "LineString", Coordinates: json.RawMessage(`[[0,0],[1,1]]`)}).Bounds()
	require.Error(t, err)

	_, err = (&Geometry{Type: GeometryPolygon, Coordinates: json.RawMessage(`[[[0]]]`)}).Bounds()
	require.Error(t, err)
}

func TestNewGeometryDocument(t *testing.T) {
	confirmedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("UYT", -3*3600))
	result := LookupResult{
		Query:        centralPark.Name,
		Polygon:      square(centralPark.Point, 0.01),
		DisplayLabel: "Central Park, Manhattan, New York",
	}

	doc, err := NewGeometryDocument(centralPark, result, confirmedAt)
	require.NoError(t, err)

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 1)

	feature := doc.Features[0]
	assert.Equal(t, "Feature", feature.Type)
	assert.Same(t, result.Polygon, feature.Geometry)
	assert.Equal(t, "Central Park", feature.Properties.Name)
	assert.Equal(t, "Central Park, Manhattan, New York", feature.Properties.DisplayName)
	assert.InDelta(t, 40.7829, feature.Properties.Latitude, 1e-9)
	assert.InDelta(t, -73.9654, feature.Properties.Longitude, 1e-9)
	assert.Equal(t, time.UTC, feature.Properties.ConfirmedAt.Location())
	assert.True(t, confirmedAt.Equal(feature.Properties.ConfirmedAt))

	cell, err := h3.LatLngToCell(h3.NewLatLng(40.7829, -73.9654), 8)
	require.NoError(t, err)
	assert.Equal(t, cell.String(), feature.Properties.H3Index)
}

func TestNewGeometryDocumentWithoutPolygon(t *testing.T) {
	_, err := NewGeometryDocument(nowhereville, LookupResult{Query: nowhereville.Name}, time.Now())
	require.ErrorIs(t, err, ErrNoPolygon)
}

func TestNewGeometryDocumentInvalidPoint(t *testing.T) {
	entry := Entry{Name: "Off the map", Point: spatial.Point{Lat: 123, Lng: 0}}
	result := LookupResult{Polygon: square(centralPark.Point, 0.01)}

	doc, err := NewGeometryDocument(entry, result, time.Now())
	require.NoError(t, err)
	assert.Empty(t, doc.Features[0].Properties.H3Index)
}
