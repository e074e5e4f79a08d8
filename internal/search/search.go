// Package search implements the city-name prefix lookup behind the
// autocomplete endpoint.
package search

import (
	"context"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/weather-dashboard/internal/cityindex"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// MaxResults bounds every lookup.
const MaxResults = 10

// RangeSentinel is appended to a prefix to form the inclusive upper bound of
// the range scan. It sorts after every character in ordinary city names.
const RangeSentinel = "\uf8ff"

// ScanTimeout bounds a shared index scan. The scan is detached from the
// callers' contexts, so one caller giving up does not fail the others.
const ScanTimeout = 5 * time.Second

// Service answers prefix lookups against a city index.
type Service struct {
	index       cityindex.Index
	group       singleflight.Group
	scanTimeout time.Duration
}

// NewService returns a Service over index.
func NewService(index cityindex.Index) *Service {
	return &Service{index: index, scanTimeout: ScanTimeout}
}

// Capitalize upper-cases the first rune of s and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Search returns up to MaxResults stored names starting with the capitalized
// query, in index order. An empty query or no match yields an empty,
// non-nil slice. Only index failures are returned as errors.
func (s *Service) Search(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		observability.CityQueriesTotal.WithLabelValues("invalid").Inc()
		return []string{}, nil
	}
	prefix := Capitalize(query)
	logger := loggerFromContext(ctx)

	ch := s.group.DoChan(prefix, func() (interface{}, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.scanTimeout)
		defer cancel()
		start := time.Now()
		names, err := s.index.Range(scanCtx, prefix, prefix+RangeSentinel, MaxResults)
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.CityIndexDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		return names, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		observability.CityQueriesTotal.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("search cities %q: %w", prefix, ctx.Err())
	}
	if res.Shared {
		observability.CityQueriesCoalescedTotal.Inc()
	}
	if res.Err != nil {
		observability.CityQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("search cities %q: %w", prefix, res.Err)
	}

	names := res.Val.([]string)
	// shared callers must not alias one backing array
	out := make([]string, len(names))
	copy(out, names)

	if len(out) == 0 {
		observability.CityQueriesTotal.WithLabelValues("empty").Inc()
	} else {
		observability.CityQueriesTotal.WithLabelValues("match").Inc()
	}
	observability.CityQueryResults.Observe(float64(len(out)))
	if logger != nil {
		logger.Debug("cities found", zap.String("prefix", prefix), zap.Int("count", len(out)))
	}
	return out, nil
}

// loggerFromContext extracts the request-scoped zap.Logger if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value("logger").(*zap.Logger); ok && l != nil {
		return l
	}
	return nil
}
