// Package retry wraps single provider calls with bounded retries and
// exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
)

// DefaultMaxAttempts matches the provider clients' historical behavior.
const DefaultMaxAttempts = 3

// Executor retries retryable failures with 2^attempt second delays.
type Executor struct {
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	log         zerolog.Logger
}

// New creates an executor with the given attempt budget.
func New(maxAttempts int, log zerolog.Logger) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Executor{
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
		log:         log.With().Str("component", "retry").Logger(),
	}
}

// WithSleep overrides the backoff sleeper. Used by tests to avoid real
// waits; returns the executor for chaining.
func (e *Executor) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Executor {
	e.sleep = sleep
	return e
}

// Execute calls fn up to maxAttempts times. Failures are classified
// before any wait: non-retryable errors propagate immediately without
// consuming the remaining attempts. On exhaustion the last error is
// returned.
func (e *Executor) Execute(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !domain.IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == e.maxAttempts-1 {
			break
		}

		delay := backoffDelay(attempt)
		e.log.Warn().
			Err(lastErr).
			Str("op", op).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retryable failure, backing off")

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// backoffDelay returns 2^attempt seconds, attempt starting at 0.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
