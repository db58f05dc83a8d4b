package retry

import (
	"context"
	"fmt"
	"time"
)

// Operation is a fallible call executed under a retry policy.
type Operation[T any] func(ctx context.Context) (T, error)

// Attempt describes one execution of an operation. It is reported to the
// OnAttempt observer after the attempt's outcome is known and before any
// backoff wait.
type Attempt struct {
	// Number is the 1-based attempt index.
	Number int
	// Err is nil when the attempt succeeded.
	Err error
	// WillRetry reports whether another attempt will follow.
	WillRetry bool
	// NextDelay is the backoff before the next attempt; zero unless
	// WillRetry.
	NextDelay time.Duration
}

type options struct {
	onAttempt      func(Attempt)
	retryIf        func(error) bool
	attemptTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option configures a single Do invocation.
type Option func(*options)

// WithOnAttempt registers an observer invoked once per attempt,
// regardless of outcome. Callers use it for statistics bookkeeping.
func WithOnAttempt(fn func(Attempt)) Option {
	return func(o *options) { o.onAttempt = fn }
}

// WithRetryIf sets the predicate deciding whether a failed attempt is
// eligible for retry. The default retries every error until attempts are
// exhausted.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// WithAttemptTimeout bounds each individual attempt with its own
// deadline. A timed-out attempt is treated like any other failure.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) { o.attemptTimeout = d }
}

// WithSleep replaces the backoff wait. Tests use it to capture computed
// delays without waiting in real time.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// Do executes op under the policy, retrying failed attempts with backoff
// until success, exhaustion, or context cancellation. The backoff wait is
// the only blocking point; concurrent Do invocations are fully
// independent. On exhaustion the last attempt's error is returned
// verbatim.
func Do[T any](ctx context.Context, p *Policy, op Operation[T], opts ...Option) (T, error) {
	var zero T

	if err := p.Validate(); err != nil {
		return zero, fmt.Errorf("invalid retry policy: %w", err)
	}

	o := &options{
		retryIf: func(error) bool { return true },
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}

	total := p.Attempts()
	var lastErr error

	for n := 1; n <= total; n++ {
		result, err := runAttempt(ctx, o.attemptTimeout, op)
		if err == nil {
			o.observe(Attempt{Number: n})
			return result, nil
		}

		lastErr = err
		willRetry := n < total && o.retryIf(err) && ctx.Err() == nil

		var delay time.Duration
		if willRetry {
			delay = p.NextDelay(n)
		}
		o.observe(Attempt{Number: n, Err: err, WillRetry: willRetry, NextDelay: delay})

		if !willRetry {
			break
		}
		if err := o.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

func (o *options) observe(a Attempt) {
	if o.onAttempt != nil {
		o.onAttempt(a)
	}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return op(ctx)
}

// sleepContext waits for d or until the context is cancelled, whichever
// comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
