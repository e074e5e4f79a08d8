package lifecycle

import (
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown_True(t *testing.T) {
	SetShuttingDown(true)
	defer SetShuttingDown(false)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
}

var testThresholds = Thresholds{
	DegradedWindow:       time.Minute,
	DegradedErrorPct:     50,
	OverloadWindow:       time.Minute,
	OverloadThresholdPct: 50,
	RateLimitRPS:         1, // capacity 60, threshold 30
}

// TestEvaluate verifies the status priority order.
func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		denials   int
		shutdown  bool
		want      Status
	}{
		{"no traffic", 0, 0, 0, false, Healthy},
		{"low error rate", 9, 1, 0, false, Healthy},
		{"error rate at threshold", 1, 1, 0, false, Degraded},
		{"denials over threshold", 10, 0, 31, false, Overloaded},
		{"overload wins over degraded", 0, 5, 31, false, Overloaded},
		{"shutdown wins over everything", 0, 5, 31, true, ShuttingDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetShuttingDown(tt.shutdown)
			defer SetShuttingDown(false)

			tr := traffic.NewTracker(time.Minute)
			for i := 0; i < tt.successes; i++ {
				tr.Record(traffic.Success)
			}
			for i := 0; i < tt.failures; i++ {
				tr.Record(traffic.Failure)
			}
			for i := 0; i < tt.denials; i++ {
				tr.Record(traffic.Denied)
			}

			v := Evaluate(tr, testThresholds)
			if v.Status != tt.want {
				t.Errorf("Evaluate() = %q (%s), want %q", v.Status, v.Reason, tt.want)
			}
			if v.Serving() != (tt.want == Healthy) {
				t.Errorf("Serving() = %v for %q", v.Serving(), v.Status)
			}
		})
	}
}

// TestEvaluate_NilTracker verifies a missing tracker only honours the shutdown flag.
func TestEvaluate_NilTracker(t *testing.T) {
	SetShuttingDown(false)
	if v := Evaluate(nil, testThresholds); v.Status != Healthy {
		t.Errorf("Evaluate(nil) = %q, want healthy", v.Status)
	}
}

// TestEvaluate_DisabledChecks verifies zero thresholds disable the checks.
func TestEvaluate_DisabledChecks(t *testing.T) {
	SetShuttingDown(false)
	tr := traffic.NewTracker(time.Minute)
	for i := 0; i < 100; i++ {
		tr.Record(traffic.Failure)
		tr.Record(traffic.Denied)
	}
	if v := Evaluate(tr, Thresholds{}); v.Status != Healthy {
		t.Errorf("Evaluate() = %q, want healthy with checks disabled", v.Status)
	}
}
