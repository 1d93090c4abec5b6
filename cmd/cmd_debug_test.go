// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jcodagnone/polycheck/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLookup(t *testing.T) {
	var buf bytes.Buffer

	writeLookup(&buf, "Central Park", func(q string) (*review.LookupResult, error) {
		return &review.LookupResult{
			Query:        q,
			Polygon:      &review.Geometry{Type: review.GeometryPolygon, Coordinates: json.RawMessage(`[]`)},
			DisplayLabel: "Central Park, New York",
		}, nil
	})
	writeLookup(&buf, "Nowhereville", func(string) (*review.LookupResult, error) {
		return nil, review.ClassifyHTTPError(404, "")
	})

	assert.Equal(t,
		"Central Park\tPolygon\tCentral Park, New York\n"+
			"Nowhereville\tnot_found\t\"location not found\"\n",
		buf.String())
}

func TestUserAgent(t *testing.T) {
	t.Setenv("POLYCHECK_USER_AGENT", "")
	assert.Contains(t, userAgent(), "polycheck/")

	t.Setenv("POLYCHECK_USER_AGENT", "acme-geo/2.0 (ops@example.org)")
	assert.Equal(t, "acme-geo/2.0 (ops@example.org)", userAgent())
}

func TestReferer(t *testing.T) {
	t.Setenv("POLYCHECK_REFERER", "")
	assert.Equal(t, "https://github.com/jcodagnone/polycheck", referer())

	t.Setenv("POLYCHECK_REFERER", "https://maps.example.org/")
	assert.Equal(t, "https://maps.example.org/", referer())
}

func TestGeocoderTimeoutDefault(t *testing.T) {
	flag := reviewCmd.PersistentFlags().Lookup("geocoder-timeout")
	require.NotNil(t, flag)
	assert.Equal(t, "0s", flag.DefValue)
}
