// Package traffic keeps sliding windows of request outcomes for the search
// endpoint. The health handler derives the degraded and overloaded states
// from it.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies a finished request.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Denied
	numOutcomes
)

// DefaultRetention is how long outcomes are kept when NewTracker gets zero.
const DefaultRetention = 5 * time.Minute

// Tracker records outcome timestamps per Outcome and answers windowed counts.
// Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	retention time.Duration
	now       func() time.Time
	times     [numOutcomes][]time.Time
}

// NewTracker returns a Tracker that forgets outcomes older than retention.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{retention: retention, now: time.Now}
}

// Record adds one outcome at the current time.
func (t *Tracker) Record(o Outcome) {
	if o < 0 || o >= numOutcomes {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Count returns the number of o outcomes within window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	if o < 0 || o >= numOutcomes {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[o], t.now().Add(-window))
}

// Total returns the number of outcomes of any kind within window.
func (t *Tracker) Total(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for _, ts := range t.times {
		n += countSince(ts, cutoff)
	}
	return n
}

// ErrorRate returns (failures, failures+successes) within window. Denials
// are not part of the error rate.
func (t *Tracker) ErrorRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	failures = countSince(t.times[Failure], cutoff)
	return failures, failures + countSince(t.times[Success], cutoff)
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.times {
		t.times[i] = nil
	}
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention. Slices are in
// append order so the expired entries are a prefix.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
