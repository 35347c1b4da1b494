package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the acquisition pipeline. Retryability drives the
// backoff executor; fallback eligibility drives the provider chain.
var (
	// ErrDataUnavailable means a provider answered with a syntactically
	// valid but empty/zero payload. Not an exception: the symbol is
	// skipped and the batch continues.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrFallbackExhausted means every provider in the chain failed.
	ErrFallbackExhausted = errors.New("all providers failed")
)

// ConfigurationError reports a missing provider credential. Fatal for
// that provider at process start; never retried.
type ConfigurationError struct {
	Provider string
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s is not configured: missing %s", e.Provider, e.Missing)
}

// ProviderError is a classified failure from a provider call.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Status   int // HTTP status when applicable
	Err      error
}

// ProviderErrorKind classifies provider failures.
type ProviderErrorKind string

const (
	// KindRateLimit covers 429 responses. Retryable.
	KindRateLimit ProviderErrorKind = "rate_limit"
	// KindTransport covers network failures and 5xx responses. Retryable.
	KindTransport ProviderErrorKind = "transport"
	// KindClient covers 4xx responses other than 429. Not retryable.
	KindClient ProviderErrorKind = "client"
)

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may succeed on a later attempt.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimit || e.Kind == KindTransport
}

// IsRetryable reports whether err should be retried by the backoff
// executor. Anything that is not a classified retryable provider error
// fails fast.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// IsProviderFailure reports whether err is a classified provider error
// of any kind, which makes the fallback chain try the next provider.
func IsProviderFailure(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// MLTimeoutError is scoped to a single inference call. The caller
// proceeds with technicals-only scoring for that symbol.
type MLTimeoutError struct {
	Symbol  string
	Timeout string
}

func (e *MLTimeoutError) Error() string {
	return fmt.Sprintf("ml inference for %s timed out after %s", e.Symbol, e.Timeout)
}
