// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		want    ErrorType
		message string
	}{
		{http.StatusTooManyRequests, "", ErrorTypeRateLimit, "rate limit reached"},
		{http.StatusForbidden, "banned", ErrorTypeQuotaExceeded, "quota exceeded or access denied: banned"},
		{http.StatusBadRequest, "", ErrorTypeInvalidRequest, "invalid request"},
		{http.StatusNotFound, "", ErrorTypeNotFound, "location not found"},
		{http.StatusBadGateway, "  ", ErrorTypeNetworkError, "service unavailable (status 502)"},
		{http.StatusTeapot, "", ErrorTypeUnknown, "HTTP error 418"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyHTTPError(tt.status, tt.body)
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	err := classifyTransportError(fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTimeout, err.Type)
	assert.True(t, IsTimeoutError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = classifyTransportError(errors.New("connection refused"))
	assert.Equal(t, ErrorTypeNetworkError, err.Type)
	assert.False(t, IsTimeoutError(err))
}

func TestErrorTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", &GeocodingError{Type: ErrorTypeNoPolygon, Message: "point"})

	assert.Equal(t, ErrorTypeNoPolygon, ErrorTypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, ErrorTypeOf(errors.New("boom")))
	assert.Equal(t, "no_polygon", ErrorTypeOf(wrapped).String())
	assert.Equal(t, "error_type_99", ErrorType(99).String())
}

func TestErrorChecks(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"rate limit type", &GeocodingError{Type: ErrorTypeRateLimit}, IsRateLimitError, true},
		{"rate limit message", errors.New("429 Too Many Requests"), IsRateLimitError, true},
		{"rate limit other type", &GeocodingError{Type: ErrorTypeTimeout, Message: "rate limit"}, IsRateLimitError, false},
		{"quota message", errors.New("Access Denied"), IsQuotaExceededError, true},
		{"quota type", &GeocodingError{Type: ErrorTypeQuotaExceeded}, IsQuotaExceededError, true},
		{"timeout message", errors.New("context deadline exceeded"), IsTimeoutError, true},
		{"not found", &GeocodingError{Type: ErrorTypeNotFound}, IsNotFoundError, true},
		{"no polygon is not found", &GeocodingError{Type: ErrorTypeNoPolygon}, IsNotFoundError, true},
		{"network is not not found", &GeocodingError{Type: ErrorTypeNetworkError}, IsNotFoundError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}
