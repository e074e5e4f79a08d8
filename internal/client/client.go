// Package client talks to the external providers the dashboard depends on:
// the weather and place lookups, reverse geocoding, device geolocation and
// the city autocomplete endpoint. Calls are made once; there are no retries.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

var (
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrLocationNotFound  = errors.New("location not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNoLocality is returned when no geocoding candidate names a city and state.
	ErrNoLocality = errors.New("can not parse current address")
	// ErrLocateTimeout is returned when the device position is not available in time.
	ErrLocateTimeout = errors.New("geolocation timed out")
)

// maxBodyBytes caps provider response bodies.
const maxBodyBytes = 4 << 20

// get issues a GET to rawURL and returns the body of a 2xx response. provider
// labels the metrics. No deadline is added here; callers own the context.
func get(ctx context.Context, hc *http.Client, provider, rawURL string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(provider, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(provider, "error").Inc()
		observability.ProviderDuration.WithLabelValues(provider, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.ProviderCallsTotal.WithLabelValues(provider, status).Inc()
	observability.ProviderDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, resp.StatusCode)
	case http.StatusNotFound:
		return ErrLocationNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func extractCorrelationID(ctx context.Context) string {
	if corrID, ok := ctx.Value("correlation_id").(string); ok {
		return corrID
	}
	return ""
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}

// flexNumber decodes a JSON number or a numeric string. The weather provider
// sends most numeric fields as strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: number %s", ErrMalformedResponse, b)
	}
	*n = flexNumber(f)
	return nil
}

// flexString decodes a JSON string or number into its textual form.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("%w: identifier %s", ErrMalformedResponse, b)
	}
	*s = flexString(num.String())
	return nil
}
