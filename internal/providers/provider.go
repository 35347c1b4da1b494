// Package providers defines the abstracted market-data provider contract
// and the primary/secondary fallback chain that fulfils it.
package providers

import (
	"context"

	"github.com/quantfolio/advisor/internal/domain"
)

// Provider is the boundary every market-data source implements.
// Implementations return domain.ErrDataUnavailable for syntactically
// valid but empty payloads, and *domain.ProviderError for classified
// failures.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	Candles(ctx context.Context, symbol, resolution string, lookbackDays int) (domain.CandleSeries, error)
	Profile(ctx context.Context, symbol string) (domain.CompanyProfile, error)
	NewsSentiment(ctx context.Context, symbol string) (float64, error)
}
