// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of a review server.
type Metrics struct {
	registry *prometheus.Registry

	GeocodeRequests *prometheus.CounterVec // labels: outcome={found,not_found,no_polygon,rate_limit,...}
	GeocodeDuration prometheus.Histogram
	Decisions       *prometheus.CounterVec // labels: action={confirm,reject,skip}
	PersistErrors   prometheus.Counter
	EntriesLoaded   prometheus.Gauge
}

// NewMetrics creates the collectors on their own registry so several
// servers (or tests) can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polycheck",
			Name:      "geocode_requests_total",
			Help:      "Geocoder lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "polycheck",
			Name:      "geocode_duration_seconds",
			Help:      "Latency of geocoder lookups.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polycheck",
			Name:      "decisions_total",
			Help:      "Operator decisions applied to the session.",
		}, []string{"action"}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polycheck",
			Name:      "persist_errors_total",
			Help:      "Confirmed entries whose geometry document could not be written.",
		}),
		EntriesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "polycheck",
			Name:      "entries_loaded",
			Help:      "Entries in the current session.",
		}),
	}

	m.registry.MustRegister(
		m.GeocodeRequests,
		m.GeocodeDuration,
		m.Decisions,
		m.PersistErrors,
		m.EntriesLoaded,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
