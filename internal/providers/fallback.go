package providers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/ratelimit"
	"github.com/quantfolio/advisor/internal/retry"
)

// Chain orders a primary and secondary provider. Every call passes
// through the shared rate limiter and, for the primary, the retry
// executor. When the primary's final failure is a classified provider
// error the secondary is attempted exactly once; if the secondary also
// fails the original primary error propagates. A "no data" answer from
// the primary never triggers fallback: the symbol is skipped.
type Chain struct {
	primary   Provider
	secondary Provider
	limiter   *ratelimit.Limiter
	retries   *retry.Executor
	single    *retry.Executor
	log       zerolog.Logger
}

// NewChain wires the fallback chain. secondary may be nil when only one
// provider is configured.
func NewChain(primary, secondary Provider, limiter *ratelimit.Limiter, retries *retry.Executor, log zerolog.Logger) *Chain {
	return &Chain{
		primary:   primary,
		secondary: secondary,
		limiter:   limiter,
		retries:   retries,
		single:    retry.New(1, log),
		log:       log.With().Str("component", "fallback-chain").Logger(),
	}
}

// Quote fetches a quote, falling back on classified primary failure.
// A zero price is reported as domain.ErrDataUnavailable.
func (c *Chain) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var out domain.Quote
	err := c.execute(ctx, "quote", symbol, func(ctx context.Context, p Provider) error {
		q, err := p.Quote(ctx, symbol)
		if err != nil {
			return err
		}
		if !q.Available() {
			return domain.ErrDataUnavailable
		}
		out = q
		return nil
	})
	return out, err
}

// Candles fetches OHLCV history, falling back on classified primary
// failure. An empty series is reported as domain.ErrDataUnavailable.
func (c *Chain) Candles(ctx context.Context, symbol, resolution string, lookbackDays int) (domain.CandleSeries, error) {
	var out domain.CandleSeries
	err := c.execute(ctx, "candles", symbol, func(ctx context.Context, p Provider) error {
		s, err := p.Candles(ctx, symbol, resolution, lookbackDays)
		if err != nil {
			return err
		}
		if s.Empty() {
			return domain.ErrDataUnavailable
		}
		out = s
		return nil
	})
	return out, err
}

// Profile fetches the company profile, falling back on classified
// primary failure.
func (c *Chain) Profile(ctx context.Context, symbol string) (domain.CompanyProfile, error) {
	var out domain.CompanyProfile
	err := c.execute(ctx, "profile", symbol, func(ctx context.Context, p Provider) error {
		p2, err := p.Profile(ctx, symbol)
		if err != nil {
			return err
		}
		out = p2
		return nil
	})
	return out, err
}

// NewsSentiment fetches the news sentiment score. Only the primary
// serves sentiment; a secondary answering "no data" leaves the primary
// error in place.
func (c *Chain) NewsSentiment(ctx context.Context, symbol string) (float64, error) {
	var out float64
	err := c.execute(ctx, "news-sentiment", symbol, func(ctx context.Context, p Provider) error {
		s, err := p.NewsSentiment(ctx, symbol)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// execute runs call against the primary through the retry executor, then
// against the secondary once when the primary failure is a classified
// provider error.
func (c *Chain) execute(ctx context.Context, op, symbol string, call func(context.Context, Provider) error) error {
	primaryErr := c.attempt(ctx, c.primary, op, c.retries, call)
	if primaryErr == nil {
		return nil
	}

	// "No data" and cancellation are not provider failures: no fallback.
	if !domain.IsProviderFailure(primaryErr) {
		return primaryErr
	}

	if c.secondary == nil {
		return primaryErr
	}

	c.log.Warn().
		Err(primaryErr).
		Str("op", op).
		Str("symbol", symbol).
		Str("provider", c.secondary.Name()).
		Msg("Primary provider failed, trying secondary")

	if err := c.attempt(ctx, c.secondary, op, c.single, call); err != nil {
		c.log.Warn().
			Err(err).
			Str("op", op).
			Str("symbol", symbol).
			Msg("Secondary provider failed, propagating primary error")
		return primaryErr
	}
	return nil
}

// attempt runs call through the given executor, acquiring a rate-limit
// slot before every attempt.
func (c *Chain) attempt(ctx context.Context, p Provider, op string, exec *retry.Executor, call func(context.Context, Provider) error) error {
	return exec.Execute(ctx, op, func() error {
		if err := c.limiter.Acquire(ctx, p.Name()); err != nil {
			return err
		}
		return call(ctx, p)
	})
}
