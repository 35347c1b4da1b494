package advisor

import "github.com/quantfolio/advisor/internal/domain"

// TrendingStocks is the default equity universe scanned when the user
// has not supplied symbols of their own.
var TrendingStocks = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "AMD", "NFLX", "JPM",
	"V", "WMT", "DIS", "BA", "PLTR",
}

// ForexPair couples a tradable pair with its liquidity tier.
type ForexPair struct {
	Symbol string // underscore form, e.g. "EUR_USD"
	Tier   domain.LiquidityTier
}

// ForexPairs is the default currency universe. Majors first so that
// equal-fit results favor the most liquid pairs.
var ForexPairs = []ForexPair{
	{Symbol: "EUR_USD", Tier: domain.LiquidityMajor},
	{Symbol: "GBP_USD", Tier: domain.LiquidityMajor},
	{Symbol: "USD_JPY", Tier: domain.LiquidityMajor},
	{Symbol: "USD_CHF", Tier: domain.LiquidityMajor},
	{Symbol: "AUD_USD", Tier: domain.LiquidityMajor},
	{Symbol: "USD_CAD", Tier: domain.LiquidityMajor},
	{Symbol: "NZD_USD", Tier: domain.LiquidityMajor},
	{Symbol: "EUR_GBP", Tier: domain.LiquidityMinor},
	{Symbol: "EUR_JPY", Tier: domain.LiquidityMinor},
	{Symbol: "GBP_JPY", Tier: domain.LiquidityMinor},
	{Symbol: "USD_TRY", Tier: domain.LiquidityExotic},
	{Symbol: "USD_ZAR", Tier: domain.LiquidityExotic},
}

// SpreadPips returns the typical broker spread for a liquidity tier.
func SpreadPips(tier domain.LiquidityTier) float64 {
	switch tier {
	case domain.LiquidityMajor:
		return 0.8
	case domain.LiquidityMinor:
		return 1.5
	default:
		return 3.0
	}
}

// LeverageFor maps risk tolerance to an assumed account leverage.
// Conservative users are modeled at 1:10, aggressive at 1:100.
func LeverageFor(tolerance domain.RiskTolerance) float64 {
	switch tolerance {
	case domain.ToleranceLow:
		return 10
	case domain.ToleranceHigh:
		return 100
	default:
		return 50
	}
}

// Timeframe maps the investment horizon to the display timeframe used
// on recommendations and sent to the inference service.
func Timeframe(horizon domain.InvestmentHorizon) string {
	switch horizon {
	case domain.HorizonShort:
		return "1week"
	case domain.HorizonLong:
		return "3months"
	default:
		return "1month"
	}
}
