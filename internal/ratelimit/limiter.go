// Package ratelimit provides per-provider sliding-window call admission.
//
// Every provider call in the pipeline must pass through Acquire before
// hitting the network. A call is admitted only if fewer than the
// provider's quota were recorded within the trailing window; otherwise
// the caller blocks until the oldest recorded call ages out. Admission
// decisions are serialized under a single mutex so two concurrent
// callers can never both observe "under quota" when one slot remains.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Window is the trailing duration calls are counted over.
const Window = 60 * time.Second

// Limiter admits calls against per-provider quotas over a sliding window.
type Limiter struct {
	mu     sync.Mutex
	quotas map[string]int
	calls  map[string][]time.Time

	window time.Duration
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	log zerolog.Logger
}

// New creates a limiter with no registered providers.
func New(log zerolog.Logger) *Limiter {
	return &Limiter{
		quotas: make(map[string]int),
		calls:  make(map[string][]time.Time),
		window: Window,
		now:    time.Now,
		sleep:  sleepContext,
		log:    log.With().Str("component", "ratelimit").Logger(),
	}
}

// Register sets the per-window quota for a provider.
func (l *Limiter) Register(provider string, quota int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quotas[provider] = quota
}

// Acquire blocks until a call slot is available for the provider, then
// records the call. Returns early with the context error if ctx is
// cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	for {
		wait, err := l.tryAcquire(provider)
		if err != nil {
			return err
		}
		if wait == 0 {
			return nil
		}

		l.log.Debug().
			Str("provider", provider).
			Dur("wait", wait).
			Msg("Quota exhausted, waiting for window to slide")

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		// Re-evaluate after waking: other queued callers may have
		// consumed the slot that opened up.
	}
}

// tryAcquire records a call if a slot is free and returns the wait
// duration until the next slot otherwise. All admission decisions run
// under the mutex.
func (l *Limiter) tryAcquire(provider string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	quota, ok := l.quotas[provider]
	if !ok {
		return 0, fmt.Errorf("unknown provider %q", provider)
	}

	now := l.now()
	cutoff := now.Add(-l.window)

	// Drop timestamps that aged out of the window.
	recorded := l.calls[provider]
	fresh := recorded[:0]
	for _, t := range recorded {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	l.calls[provider] = fresh

	if len(fresh) < quota {
		l.calls[provider] = append(fresh, now)
		return 0, nil
	}

	// Wait until the oldest recorded call leaves the window.
	wait := fresh[0].Add(l.window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, nil
}

// Recorded returns the number of calls currently inside the window for a
// provider. Intended for observability endpoints.
func (l *Limiter) Recorded(provider string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	count := 0
	for _, t := range l.calls[provider] {
		if t.After(cutoff) {
			count++
		}
	}
	return count
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
