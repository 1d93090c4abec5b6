// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// Central Park to Times Square is roughly 3.5km.
	a := &Point{Lat: 40.785, Lng: -73.968}
	b := &Point{Lat: 40.758, Lng: -73.9855}

	d := a.HaversineDistance(b)
	assert.InDelta(t, 3400, d, 200)
	assert.InDelta(t, 0, a.HaversineDistance(a), 1e-9)
}

func TestBounds(t *testing.T) {
	var b Bounds

	assert.True(t, b.Empty())
	assert.False(t, b.Contains(Point{}))

	b.Extend(Point{Lat: 1, Lng: 2})
	assert.False(t, b.Empty())
	assert.Equal(t, Point{Lat: 1, Lng: 2}, b.SouthWest)
	assert.Equal(t, Point{Lat: 1, Lng: 2}, b.NorthEast)

	b.Extend(Point{Lat: -1, Lng: 4})
	b.Extend(Point{Lat: 3, Lng: 3})

	assert.Equal(t, Point{Lat: -1, Lng: 2}, b.SouthWest)
	assert.Equal(t, Point{Lat: 3, Lng: 4}, b.NorthEast)
	assert.Equal(t, Point{Lat: 1, Lng: 3}, b.Center())
	assert.True(t, b.Contains(Point{Lat: 0, Lng: 3}))
	assert.False(t, b.Contains(Point{Lat: 0, Lng: 5}))
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"origin", Point{}, true},
		{"central park", Point{Lat: 40.785, Lng: -73.968}, true},
		{"latitude too high", Point{Lat: 91, Lng: 0}, false},
		{"longitude too low", Point{Lat: 0, Lng: -181}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Valid())
		})
	}
}
