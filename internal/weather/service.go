package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/emmilcheung/weather-proxy/internal/cache"
	"github.com/emmilcheung/weather-proxy/internal/history"
	"github.com/emmilcheung/weather-proxy/internal/metrics"
	"github.com/emmilcheung/weather-proxy/internal/retry"
	"github.com/emmilcheung/weather-proxy/internal/stats"
	"github.com/emmilcheung/weather-proxy/internal/upstream"
)

var tracer = otel.Tracer("weather-proxy/weather")

// Service executes named upstream operations through the retry executor
// and shapes the results into response envelopes.
//
// Terminal-failure policy, per operation:
//   - current: serve the last-good cached payload as a fallback envelope
//     (FromFallback=true, Error populated). Without a cached payload the
//     terminal failure is returned to the caller.
//   - forecast: no fallback; the terminal failure is always returned.
type Service struct {
	fetcher        upstream.Fetcher
	cache          cache.Cache
	history        history.Repository
	register       *stats.Register
	metrics        *metrics.Metrics
	logger         *zap.Logger
	policy         *retry.Policy
	retryEnabled   bool
	attemptTimeout time.Duration
}

// NewService creates the call-site service. When retryEnabled is false,
// every call makes exactly one attempt regardless of the policy's
// MaxRetries. The history repository may be nil to disable call
// recording.
func NewService(
	fetcher upstream.Fetcher,
	c cache.Cache,
	h history.Repository,
	register *stats.Register,
	m *metrics.Metrics,
	policy *retry.Policy,
	retryEnabled bool,
	attemptTimeout time.Duration,
	logger *zap.Logger,
) (*Service, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	return &Service{
		fetcher:        fetcher,
		cache:          c,
		history:        h,
		register:       register,
		metrics:        m,
		logger:         logger,
		policy:         policy,
		retryEnabled:   retryEnabled,
		attemptTimeout: attemptTimeout,
	}, nil
}

// Current returns the current weather for lang. On retry exhaustion the
// last-good cached payload is served as a degraded response; the error is
// surfaced only when no fallback exists.
func (s *Service) Current(ctx context.Context, lang string) (*Envelope, error) {
	payload, attempts, elapsed, err := s.fetch(ctx, OpCurrent, lang, s.fetcher.FetchCurrent)

	env := s.newEnvelope(OpCurrent, lang, attempts)
	if err == nil {
		env.Data = payload
		s.record(ctx, OpCurrent, lang, attempts, true, false, "", elapsed)
		return env, nil
	}

	cached, cacheErr := s.cache.Get(ctx, OpCurrent, lang)
	if cacheErr != nil {
		if !errors.Is(cacheErr, cache.ErrMiss) {
			s.logger.Error("fallback cache lookup failed", zap.Error(cacheErr))
		}
		s.record(ctx, OpCurrent, lang, attempts, false, false, err.Error(), elapsed)
		return nil, err
	}

	s.metrics.FallbacksTotal.WithLabelValues(OpCurrent).Inc()
	s.logger.Warn("serving fallback response",
		zap.String("operation", OpCurrent),
		zap.String("lang", lang),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)

	env.Data = cached
	env.FromFallback = true
	env.Error = err.Error()
	s.record(ctx, OpCurrent, lang, attempts, false, true, err.Error(), elapsed)
	return env, nil
}

// Forecast returns the weather forecast for lang. Exhausted retries
// propagate the terminal failure; there is no degraded path for
// forecasts.
func (s *Service) Forecast(ctx context.Context, lang string) (*Envelope, error) {
	payload, attempts, elapsed, err := s.fetch(ctx, OpForecast, lang, s.fetcher.FetchForecast)
	if err != nil {
		s.record(ctx, OpForecast, lang, attempts, false, false, err.Error(), elapsed)
		return nil, err
	}

	env := s.newEnvelope(OpForecast, lang, attempts)
	env.Data = payload
	s.record(ctx, OpForecast, lang, attempts, true, false, "", elapsed)
	return env, nil
}

type fetchFunc func(ctx context.Context, lang string) (json.RawMessage, error)

// fetch drives one upstream operation through the retry executor, feeding
// the statistics register and Prometheus metrics from the per-attempt
// observer. Successful payloads refresh the last-good cache best effort.
func (s *Service) fetch(ctx context.Context, operation, lang string, fn fetchFunc) (json.RawMessage, int, time.Duration, error) {
	ctx, span := tracer.Start(ctx, "weather.fetch",
		trace.WithAttributes(
			attribute.String("weather.operation", operation),
			attribute.String("weather.lang", lang),
		),
	)
	defer span.End()

	s.metrics.CallsInFlight.Inc()
	defer s.metrics.CallsInFlight.Dec()

	policy := s.policy
	if !s.retryEnabled {
		single := *s.policy
		single.MaxRetries = 0
		policy = &single
	}

	attempts := 0
	start := time.Now()

	payload, err := retry.Do(ctx, policy,
		func(ctx context.Context) (json.RawMessage, error) {
			return fn(ctx, lang)
		},
		retry.WithAttemptTimeout(s.attemptTimeout),
		retry.WithOnAttempt(func(a retry.Attempt) {
			attempts = a.Number
			s.register.RecordAttempt()
			if a.Err == nil {
				return
			}
			s.register.RecordFailure(a.WillRetry)
			if a.WillRetry {
				s.metrics.RetriesTotal.WithLabelValues(operation).Inc()
				s.logger.Info("retrying upstream call",
					zap.String("operation", operation),
					zap.Int("attempt", a.Number),
					zap.Duration("delay", a.NextDelay),
					zap.Error(a.Err),
				)
			}
		}),
	)
	elapsed := time.Since(start)

	s.metrics.CallLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
	s.metrics.AttemptsPerCall.Observe(float64(attempts))

	if err != nil {
		s.metrics.CallsTotal.WithLabelValues(operation, "failure").Inc()
		span.SetAttributes(attribute.Int("weather.attempts", attempts))
		return nil, attempts, elapsed, err
	}

	s.register.RecordSuccess()
	s.metrics.CallsTotal.WithLabelValues(operation, "success").Inc()
	span.SetAttributes(attribute.Int("weather.attempts", attempts))

	if putErr := s.cache.Put(ctx, operation, lang, payload); putErr != nil {
		s.logger.Error("refresh last-good cache failed", zap.Error(putErr))
	}
	return payload, attempts, elapsed, nil
}

func (s *Service) newEnvelope(operation, lang string, attempts int) *Envelope {
	return &Envelope{
		DataType:  operation,
		Lang:      lang,
		FetchedAt: time.Now().UTC(),
		RetryInfo: RetryInfo{
			TotalAttempts: attempts,
			RetryEnabled:  s.retryEnabled,
			MaxRetries:    s.policy.MaxRetries,
		},
	}
}

// record persists the call outcome. History is observability data; a
// failed insert is logged and never fails the request.
func (s *Service) record(ctx context.Context, operation, lang string, attempts int, succeeded, fromFallback bool, lastError string, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	rec := history.NewRecord(operation, lang, attempts, succeeded, fromFallback, lastError, elapsed)
	if err := s.history.Create(ctx, rec); err != nil {
		s.logger.Error("record call history failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}
