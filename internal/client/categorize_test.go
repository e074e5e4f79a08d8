package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestCategorizeError verifies that CategorizeError maps errors to the
// correct ErrorCategory for metrics and logs.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled", context.Canceled, ErrorCategoryTimeout},
		{"locate timeout", fmt.Errorf("%w: x", ErrLocateTimeout), ErrorCategoryTimeout},
		{"invalid key", fmt.Errorf("%w: HTTP 401", ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{"not found", fmt.Errorf("fetch: %w", ErrLocationNotFound), ErrorCategoryLocationNotFound},
		{"no locality", ErrNoLocality, ErrorCategoryNoLocality},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"upstream", fmt.Errorf("%w: HTTP 502", ErrUpstreamFailure), ErrorCategoryUpstream},
		{"malformed", fmt.Errorf("%w: created", ErrMalformedResponse), ErrorCategoryParsing},
		{"network", errors.New("http request failed: dial tcp: connection refused"), ErrorCategoryNetwork},
		{"parse", errors.New("parse forecast: unexpected end of JSON input"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
