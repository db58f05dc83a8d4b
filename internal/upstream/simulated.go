package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"

	"go.uber.org/zap"
)

// ErrSimulatedFailure marks a failure injected by the simulator rather
// than a real upstream problem.
var ErrSimulatedFailure = errors.New("simulated upstream failure")

// Simulated wraps a Fetcher and injects random failures at a fixed rate,
// mimicking an unreliable upstream so the retry pipeline can be exercised
// without a flaky provider.
type Simulated struct {
	next   Fetcher
	rate   float64
	rand   func() float64
	logger *zap.Logger
}

// NewSimulated creates a failure-injecting wrapper. rate is the
// probability in [0, 1] that any single fetch fails.
func NewSimulated(next Fetcher, rate float64, logger *zap.Logger) *Simulated {
	return &Simulated{
		next:   next,
		rate:   rate,
		rand:   rand.Float64,
		logger: logger,
	}
}

func (s *Simulated) FetchCurrent(ctx context.Context, lang string) (json.RawMessage, error) {
	if s.shouldFail() {
		s.logger.Warn("injecting simulated failure", zap.String("operation", "current"))
		return nil, ErrSimulatedFailure
	}
	return s.next.FetchCurrent(ctx, lang)
}

func (s *Simulated) FetchForecast(ctx context.Context, lang string) (json.RawMessage, error) {
	if s.shouldFail() {
		s.logger.Warn("injecting simulated failure", zap.String("operation", "forecast"))
		return nil, ErrSimulatedFailure
	}
	return s.next.FetchForecast(ctx, lang)
}

func (s *Simulated) shouldFail() bool {
	return s.rand() < s.rate
}
