// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/jcodagnone/polycheck/spatial"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// square returns a Polygon of side 2*d degrees centered on p.
func square(p spatial.Point, d float64) *Geometry {
	ring := [][]float64{
		{p.Lng - d, p.Lat - d},
		{p.Lng + d, p.Lat - d},
		{p.Lng + d, p.Lat + d},
		{p.Lng - d, p.Lat + d},
		{p.Lng - d, p.Lat - d},
	}

	coords, err := json.Marshal([][][]float64{ring})
	if err != nil {
		panic(err)
	}

	return &Geometry{Type: GeometryPolygon, Coordinates: coords}
}

var (
	centralPark  = Entry{Name: "Central Park", Point: spatial.Point{Lat: 40.7829, Lng: -73.9654}}
	nowhereville = Entry{Name: "Nowhereville", Point: spatial.Point{Lat: 0, Lng: 0}}
)

// fakeGeocoder answers from a fixed table and counts calls per query.
type fakeGeocoder struct {
	mu      sync.Mutex
	results map[string]*LookupResult
	errs    map[string]error
	calls   map[string]int
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		results: map[string]*LookupResult{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeGeocoder) withPolygon(entry Entry, label string) *fakeGeocoder {
	f.results[entry.Name] = &LookupResult{
		Polygon:      square(entry.Point, 0.01),
		DisplayLabel: label,
	}

	return f
}

func (f *fakeGeocoder) Name() string {
	return "fake"
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*LookupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[query]++

	if err, ok := f.errs[query]; ok {
		return nil, err
	}

	if r, ok := f.results[query]; ok {
		result := *r

		return &result, nil
	}

	return nil, &GeocodingError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("no results found for location: %s", query),
	}
}

func (f *fakeGeocoder) Calls(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[query]
}

// memoryPersister records persisted entries, failing when err is set.
type memoryPersister struct {
	err       error
	persisted []string
}

func (m *memoryPersister) Persist(entry Entry, result LookupResult) (string, error) {
	if m.err != nil {
		return "", m.err
	}

	if !result.Found() {
		return "", ErrNoPolygon
	}

	m.persisted = append(m.persisted, entry.Name)

	return SafeName(entry.Name) + GeometryExt, nil
}

// counterValue reads the current value of a counter or gauge.
func counterValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, c.Write(&m))

	if m.GetGauge() != nil {
		return m.GetGauge().GetValue()
	}

	return m.GetCounter().GetValue()
}
