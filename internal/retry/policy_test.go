package retry

import (
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxRetries != 3 {
		t.Errorf("expected max_retries 3, got %d", p.MaxRetries)
	}
	if p.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected initial_delay 500ms, got %s", p.InitialDelay)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("default policy should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", Policy{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0, Jitter: 100 * time.Millisecond}, false},
		{"zero retries", Policy{MaxRetries: 0, Multiplier: 1.0}, false},
		{"negative retries", Policy{MaxRetries: -1, Multiplier: 2.0}, true},
		{"multiplier below one", Policy{MaxRetries: 1, Multiplier: 0.5}, true},
		{"negative jitter", Policy{MaxRetries: 1, Multiplier: 2.0, Jitter: -time.Second}, true},
		{"negative initial delay", Policy{MaxRetries: 1, Multiplier: 2.0, InitialDelay: -time.Second}, true},
		{"max below initial", Policy{MaxRetries: 1, Multiplier: 2.0, InitialDelay: 2 * time.Second, MaxDelay: time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNextDelay_ExponentialGrowth(t *testing.T) {
	p := &Policy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0, // Disable jitter for deterministic testing.
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, w := range want {
		if got := p.NextDelay(i + 1); got != w {
			t.Errorf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestNextDelay_MonotoneBase(t *testing.T) {
	p := &Policy{
		MaxRetries:   10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   1.5,
		Jitter:       0,
	}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := p.NextDelay(attempt)
		if d < prev {
			t.Errorf("attempt %d: delay %s decreased from %s", attempt, d, prev)
		}
		prev = d
	}
}

func TestNextDelay_MaxDelayCap(t *testing.T) {
	p := &Policy{
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   10.0,
		Jitter:       0,
	}

	if d := p.NextDelay(6); d != 5*time.Second {
		t.Errorf("expected delay capped at 5s, got %s", d)
	}
}

func TestNextDelay_JitterBounds(t *testing.T) {
	p := &Policy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       100 * time.Millisecond,
	}

	tests := []struct {
		name string
		rand float64
		want time.Duration
	}{
		{"lower extreme", 0.0, 400 * time.Millisecond},
		{"midpoint", 0.5, 500 * time.Millisecond},
		{"near upper extreme", 0.9999999, 600 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Rand = func() float64 { return tt.rand }
			got := p.NextDelay(1)
			if got < tt.want-time.Millisecond || got > tt.want+time.Millisecond {
				t.Errorf("NextDelay(1) = %s, want ~%s", got, tt.want)
			}
		})
	}
}

func TestNextDelay_JitterNeverExceedsCap(t *testing.T) {
	p := &Policy{
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       500 * time.Millisecond,
		Rand:         func() float64 { return 0.9999999 }, // maximum positive jitter
	}

	if d := p.NextDelay(1); d > time.Second {
		t.Errorf("jitter pushed delay %s above cap 1s", d)
	}
}

func TestNextDelay_NeverNegative(t *testing.T) {
	p := &Policy{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       time.Second,
		Rand:         func() float64 { return 0.0 }, // maximum negative jitter
	}

	if d := p.NextDelay(1); d < 0 {
		t.Errorf("expected non-negative delay, got %s", d)
	}
}

func TestNextDelay_VariesWithJitter(t *testing.T) {
	p := &Policy{
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       100 * time.Millisecond,
	}

	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		seen[p.NextDelay(2)] = true
	}

	if len(seen) < 2 {
		t.Error("expected jitter to produce varying delays")
	}
}
