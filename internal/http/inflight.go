package http

import (
	"context"
	"sync/atomic"
	"time"
)

// InFlight counts requests currently being served so shutdown can wait for
// them to drain.
type InFlight struct {
	n atomic.Int64
}

// Begin marks a request as started. The returned func marks it finished and
// must be called exactly once.
func (f *InFlight) Begin() (done func()) {
	f.n.Add(1)
	return func() { f.n.Add(-1) }
}

// Len returns the number of requests in flight.
func (f *InFlight) Len() int64 {
	return f.n.Load()
}

// Drain polls every interval until nothing is in flight or ctx is done.
func (f *InFlight) Drain(ctx context.Context, interval time.Duration) error {
	if f.Len() == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if f.Len() == 0 {
				return nil
			}
		}
	}
}

// serving is fed by MetricsMiddleware.
var serving InFlight

// InFlightCount returns the number of requests MetricsMiddleware is serving.
func InFlightCount() int64 {
	return serving.Len()
}

// WaitForInFlight blocks until served requests drain or ctx is done.
func WaitForInFlight(ctx context.Context, interval time.Duration) error {
	return serving.Drain(ctx, interval)
}
