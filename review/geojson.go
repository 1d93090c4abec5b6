// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jcodagnone/polycheck/spatial"
	"github.com/uber/h3-go/v4"
)

// GeoJSON geometry types that count as a polygon.
const (
	GeometryPolygon      = "Polygon"
	GeometryMultiPolygon = "MultiPolygon"
)

// h3Resolution is roughly a city block (~0.7 km²).
const h3Resolution = 8

// Geometry is a GeoJSON geometry. Coordinates are kept raw so the document
// written on confirmation is exactly what the provider returned.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// IsPolygon reports whether g is a Polygon or MultiPolygon with coordinates.
func (g *Geometry) IsPolygon() bool {
	if g == nil || len(g.Coordinates) == 0 {
		return false
	}

	return g.Type == GeometryPolygon || g.Type == GeometryMultiPolygon
}

// Bounds returns the bounding box of every position in the geometry.
// GeoJSON positions are [lng, lat].
func (g *Geometry) Bounds() (spatial.Bounds, error) {
	var (
		bounds spatial.Bounds
		rings  [][][]float64
	)

	switch g.Type {
	case GeometryPolygon:
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return bounds, fmt.Errorf("decoding polygon coordinates: %w", err)
		}
	case GeometryMultiPolygon:
		var polygons [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polygons); err != nil {
			return bounds, fmt.Errorf("decoding multipolygon coordinates: %w", err)
		}

		for _, p := range polygons {
			rings = append(rings, p...)
		}
	default:
		return bounds, fmt.Errorf("unsupported geometry type %q", g.Type)
	}

	for _, ring := range rings {
		for _, pos := range ring {
			if len(pos) < 2 {
				return bounds, fmt.Errorf("invalid position %v", pos)
			}

			bounds.Extend(spatial.Point{Lat: pos[1], Lng: pos[0]})
		}
	}

	if bounds.Empty() {
		return bounds, errors.New("geometry has no positions")
	}

	return bounds, nil
}

// FeatureCollection is the GeometryDocument written for a confirmed entry.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   *Geometry         `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// FeatureProperties are the properties of a confirmed feature.
type FeatureProperties struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	H3Index     string    `json:"h3_index,omitempty"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// NewGeometryDocument wraps the confirmed polygon of entry in a single-feature collection.
func NewGeometryDocument(entry Entry, result LookupResult, confirmedAt time.Time) (*FeatureCollection, error) {
	if !result.Found() {
		return nil, ErrNoPolygon
	}

	props := FeatureProperties{
		Name:        entry.Name,
		DisplayName: result.DisplayLabel,
		Latitude:    entry.Point.Lat,
		Longitude:   entry.Point.Lng,
		ConfirmedAt: confirmedAt.UTC(),
	}

	if entry.Point.Valid() {
		cell, err := h3.LatLngToCell(h3.NewLatLng(entry.Point.Lat, entry.Point.Lng), h3Resolution)
		if err != nil {
			return nil, fmt.Errorf("error converting to h3 cell at res %d: %w", h3Resolution, err)
		}

		props.H3Index = cell.String()
	}

	return &FeatureCollection{
		Type: "FeatureCollection",
		Features: []Feature{
			{
				Type:       "Feature",
				Geometry:   result.Polygon,
				Properties: props,
			},
		},
	}, nil
}
