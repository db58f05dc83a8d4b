// Package retry provides a configurable retry executor with exponential
// backoff and jitter.
package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy defines parameters for retry behavior with exponential backoff
// and jitter. A Policy is immutable once handed to Do.
type Policy struct {
	MaxRetries   int           `json:"max_retries"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
	Jitter       time.Duration `json:"jitter"`

	// Rand supplies uniform values in [0, 1) for jitter computation.
	// Nil means the shared math/rand source; tests inject a
	// deterministic one.
	Rand func() float64 `json:"-"`
}

// DefaultPolicy returns a sensible default retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       100 * time.Millisecond,
	}
}

// Validate checks the policy invariants. A policy is validated once at
// construction so misconfiguration surfaces at startup, not at call time.
func (p *Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0, got %s", p.InitialDelay)
	}
	if p.Multiplier < 1.0 {
		return fmt.Errorf("multiplier must be >= 1.0, got %g", p.Multiplier)
	}
	if p.Jitter < 0 {
		return fmt.Errorf("jitter must be >= 0, got %s", p.Jitter)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("max_delay %s must be >= initial_delay %s", p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// Attempts returns the total number of attempts the policy permits,
// including the initial call.
func (p *Policy) Attempts() int {
	return p.MaxRetries + 1
}

// NextDelay computes the delay before the retry that follows attempt
// number attempt (1-based). The un-jittered base grows exponentially and
// is capped at MaxDelay; jitter never pushes the result above the cap or
// below zero.
func (p *Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}

	delay := time.Duration(base)
	if p.Jitter > 0 {
		// Uniform in [-Jitter, +Jitter).
		delay += time.Duration((2*p.randFloat() - 1) * float64(p.Jitter))
	}

	if delay < 0 {
		delay = 0
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (p *Policy) randFloat() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}
