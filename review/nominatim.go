// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jcodagnone/polycheck/utils/httputils"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimOptions configures NominatimGeocoder.
type NominatimOptions struct {
	// BaseURL of the Nominatim instance, without the /search path
	BaseURL string

	// UserAgent identifies the application, as the Nominatim usage policy requires
	UserAgent string

	// Referer sent with every request
	Referer string

	// Timeout of a whole request. Zero leaves it to the transport.
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool
}

// NominatimGeocoder looks up polygons with the Nominatim text search.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewNominatimGeocoder creates a new Nominatim geocoder.
func NewNominatimGeocoder(options *NominatimOptions) *NominatimGeocoder {
	if options == nil {
		options = &NominatimOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "polycheck/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Referer":    options.Referer,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	baseURL := DefaultNominatimURL
	if options.BaseURL != "" {
		baseURL = strings.TrimRight(options.BaseURL, "/")
	}

	return &NominatimGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   options.Timeout,
			Transport: headerTransport,
		},
	}
}

type nominatimCandidate struct {
	DisplayName string    `json:"display_name"`
	GeoJSON     *Geometry `json:"geojson"`
}

func (g *NominatimGeocoder) Name() string {
	return "nominatim"
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*LookupResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("polygon_geojson", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "creating request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var candidates []nominatimCandidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	if len(candidates) == 0 {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("no results found for location: %s", query),
		}
	}

	// Only the first candidate is considered.
	first := candidates[0]
	if !first.GeoJSON.IsPolygon() {
		kind := "none"
		if first.GeoJSON != nil {
			kind = first.GeoJSON.Type
		}

		return nil, &GeocodingError{
			Type:    ErrorTypeNoPolygon,
			Message: fmt.Sprintf("first result for %s has no polygon (geometry: %s)", query, kind),
		}
	}

	return &LookupResult{
		Query:        query,
		Polygon:      first.GeoJSON,
		DisplayLabel: first.DisplayName,
	}, nil
}
