// Package stats tracks call statistics for the proxy, safe for concurrent
// use by any number of in-flight calls.
package stats

import (
	"sync/atomic"
	"time"
)

// Register is a concurrency-safe set of call counters. All mutation goes
// through atomic operations so concurrent calls never lose updates. A
// Register must not be copied after first use.
type Register struct {
	totalAttempts   atomic.Int64
	successfulCalls atomic.Int64
	failedCalls     atomic.Int64
	retriedCalls    atomic.Int64
	lastCallNano    atomic.Int64

	// Failure-injection settings are echoed in snapshots for visibility
	// and never mutated after construction.
	simulatedFailureRate    float64
	simulateFailuresEnabled bool
}

// Snapshot is a consistent point-in-time copy of the register.
type Snapshot struct {
	TotalAttempts           int64      `json:"total_attempts"`
	SuccessfulCalls         int64      `json:"successful_calls"`
	FailedCalls             int64      `json:"failed_calls"`
	RetriedCalls            int64      `json:"retried_calls"`
	SimulatedFailureRate    float64    `json:"simulated_failure_rate"`
	SimulateFailuresEnabled bool       `json:"simulate_failures_enabled"`
	LastCallAt              *time.Time `json:"last_call_at,omitempty"`
}

// New creates a register with zeroed counters.
func New(simulatedFailureRate float64, simulateFailuresEnabled bool) *Register {
	return &Register{
		simulatedFailureRate:    simulatedFailureRate,
		simulateFailuresEnabled: simulateFailuresEnabled,
	}
}

// RecordAttempt counts one execution of a wrapped operation, regardless
// of outcome, and stamps the last-call time.
func (r *Register) RecordAttempt() {
	r.totalAttempts.Add(1)
	r.lastCallNano.Store(time.Now().UnixNano())
}

// RecordSuccess counts a terminal success.
func (r *Register) RecordSuccess() {
	r.successfulCalls.Add(1)
}

// RecordFailure counts a failed attempt. willRetry marks failures that
// will be attempted again.
func (r *Register) RecordFailure(willRetry bool) {
	r.failedCalls.Add(1)
	if willRetry {
		r.retriedCalls.Add(1)
	}
}

// Snapshot returns a point-in-time copy of all counters plus the echoed
// failure-injection settings.
func (r *Register) Snapshot() Snapshot {
	s := Snapshot{
		TotalAttempts:           r.totalAttempts.Load(),
		SuccessfulCalls:         r.successfulCalls.Load(),
		FailedCalls:             r.failedCalls.Load(),
		RetriedCalls:            r.retriedCalls.Load(),
		SimulatedFailureRate:    r.simulatedFailureRate,
		SimulateFailuresEnabled: r.simulateFailuresEnabled,
	}
	if ns := r.lastCallNano.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		s.LastCallAt = &t
	}
	return s
}

// Reset zeroes the four counters. The echoed failure-injection settings
// and the last-call time are left untouched.
func (r *Register) Reset() {
	r.totalAttempts.Store(0)
	r.successfulCalls.Store(0)
	r.failedCalls.Store(0)
	r.retriedCalls.Store(0)
}
