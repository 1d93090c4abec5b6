// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"log"
	"time"
)

// LookupResult is the outcome of one geocoder query for an entry.
// A nil Polygon means the lookup was inconclusive.
type LookupResult struct {
	Query        string    `json:"query"`
	Polygon      *Geometry `json:"polygon,omitempty"`
	DisplayLabel string    `json:"display_label,omitempty"`
}

// Found reports whether the lookup produced a polygon.
func (r *LookupResult) Found() bool {
	return r != nil && r.Polygon.IsPolygon()
}

// Geocoder interface for different polygon providers.
type Geocoder interface {
	Name() string
	// Geocode returns the first candidate for query. It fails with a
	// *GeocodingError when there's no candidate carrying a polygon.
	Geocode(ctx context.Context, query string) (*LookupResult, error)
}

// Lookup queries g once and folds every failure into an inconclusive result.
func Lookup(ctx context.Context, g Geocoder, query string) LookupResult {
	result, err := g.Geocode(ctx, query)
	if err != nil {
		switch {
		case IsNotFoundError(err):
			log.Printf("🔍 %s: no polygon for %q (%v)", g.Name(), query, err)
		case IsRateLimitError(err), IsQuotaExceededError(err):
			log.Printf("⚠️  %s: throttled while looking up %q: %v", g.Name(), query, err)
		default:
			log.Printf("❗ %s: lookup for %q failed: %v", g.Name(), query, err)
		}

		return LookupResult{Query: query}
	}

	if !result.Found() {
		return LookupResult{Query: query}
	}

	result.Query = query

	return *result
}

// InstrumentedGeocoder records request outcomes and latency of the wrapped geocoder.
type InstrumentedGeocoder struct {
	inner   Geocoder
	metrics *Metrics
}

// NewInstrumentedGeocoder creates a metrics decorator around a geocoder.
func NewInstrumentedGeocoder(inner Geocoder, metrics *Metrics) *InstrumentedGeocoder {
	return &InstrumentedGeocoder{inner: inner, metrics: metrics}
}

func (g *InstrumentedGeocoder) Name() string {
	return g.inner.Name()
}

func (g *InstrumentedGeocoder) Geocode(ctx context.Context, query string) (*LookupResult, error) {
	start := time.Now()
	result, err := g.inner.Geocode(ctx, query)
	g.metrics.GeocodeDuration.Observe(time.Since(start).Seconds())

	outcome := "found"
	if err != nil {
		outcome = ErrorTypeOf(err).String()
	}

	g.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()

	return result, err
}
