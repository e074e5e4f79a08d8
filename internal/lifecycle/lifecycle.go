// Package lifecycle decides what the service reports on /health.
package lifecycle

import (
	"sync/atomic"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

// Status is the externally visible service state.
type Status string

const (
	Healthy      Status = "healthy"
	Degraded     Status = "degraded"
	Overloaded   Status = "overloaded"
	ShuttingDown Status = "shutting-down"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Thresholds configures Evaluate. A zero window or percentage disables that check.
type Thresholds struct {
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Status Status
	Reason string
}

// Serving reports whether the verdict should answer 200.
func (v Verdict) Serving() bool {
	return v.Status == Healthy
}

// Evaluate checks, in order: shutting-down, overloaded (rate-limit denials
// above OverloadThresholdPct of the window capacity), degraded (search error
// rate at or above DegradedErrorPct). tr may be nil.
func Evaluate(tr *traffic.Tracker, th Thresholds) Verdict {
	if IsShuttingDown() {
		return Verdict{ShuttingDown, "signal"}
	}
	if tr == nil {
		return Verdict{Healthy, ""}
	}
	if th.OverloadWindow > 0 && th.OverloadThresholdPct > 0 && th.RateLimitRPS > 0 {
		capacity := float64(th.RateLimitRPS) * th.OverloadWindow.Seconds()
		threshold := capacity * float64(th.OverloadThresholdPct) / 100
		if float64(tr.Count(traffic.Denied, th.OverloadWindow)) > threshold {
			return Verdict{Overloaded, "overload_threshold"}
		}
	}
	if th.DegradedWindow > 0 && th.DegradedErrorPct > 0 {
		failures, total := tr.ErrorRate(th.DegradedWindow)
		if total > 0 && float64(failures)*100/float64(total) >= float64(th.DegradedErrorPct) {
			return Verdict{Degraded, "error_rate_breach"}
		}
	}
	return Verdict{Healthy, ""}
}
