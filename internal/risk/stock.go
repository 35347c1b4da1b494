// Package risk converts factor vectors into bounded 0-100 risk scores.
// The weights and normalization caps are fixed business rules; the
// documented example vectors in the tests pin them.
package risk

import (
	"math"

	"github.com/quantfolio/advisor/internal/domain"
)

// Stock factor weights. Must sum to 1.0.
const (
	stockWeightVolatility = 0.4
	stockWeightBeta       = 0.2
	stockWeightRSI        = 0.1
	stockWeightDrawdown   = 0.2
	stockWeightSentiment  = 0.2

	// Normalization caps: typical volatility range tops out near 80%,
	// beta above 1.5 is treated as max risk, drawdowns beyond -30%
	// saturate.
	stockVolatilityCap = 80.0
	stockBetaCap       = 1.5
	stockDrawdownCap   = 30.0
)

// Advisory strings keyed to the risk category.
const (
	stockAdviceLow    = "Suitable for conservative investors. Stable performance expected."
	stockAdviceMedium = "Moderate risk. Suitable for balanced portfolios."
	stockAdviceHigh   = "High volatility. Only for risk-tolerant investors."
)

// ScoreStock computes the equity risk score:
// 0.4*volatility + 0.2*beta + 0.1*rsiFactor + 0.2*drawdown + 0.2*sentiment,
// each factor normalized to 0-100 before weighting, total clamped to 100.
func ScoreStock(f domain.StockRiskFactors) domain.RiskResult {
	volatilityScore := math.Min(f.Volatility/stockVolatilityCap, 1) * 100 * stockWeightVolatility
	betaScore := math.Min(f.Beta/stockBetaCap, 1) * 100 * stockWeightBeta

	// RSI above 70 is overbought and adds risk; below 30 is oversold
	// and adds none; the neutral zone scales linearly to half weight.
	var rsiScore float64
	switch {
	case f.RSI > 70:
		rsiScore = ((f.RSI - 70) / 30) * 100 * stockWeightRSI
	case f.RSI < 30:
		rsiScore = 0
	default:
		rsiScore = ((f.RSI - 30) / 40) * 50 * stockWeightRSI
	}

	drawdownScore := math.Min(math.Abs(f.Drawdown)/stockDrawdownCap, 1) * 100 * stockWeightDrawdown
	sentimentScore := ((1 - f.Sentiment) / 2) * 100 * stockWeightSentiment

	total := math.Min(volatilityScore+betaScore+rsiScore+drawdownScore+sentimentScore, 100)

	level, advice := categorize(total, stockAdviceLow, stockAdviceMedium, stockAdviceHigh)

	return domain.RiskResult{
		Score: int(math.Round(total)),
		Level: level,
		Breakdown: map[string]int{
			"volatility": int(math.Round(volatilityScore)),
			"beta":       int(math.Round(betaScore)),
			"rsi":        int(math.Round(rsiScore)),
			"drawdown":   int(math.Round(drawdownScore)),
			"sentiment":  int(math.Round(sentimentScore)),
		},
		Recommendation: advice,
	}
}

// categorize maps a score to its level: <30 Low, <70 Medium, else High.
func categorize(score float64, low, medium, high string) (domain.RiskLevel, string) {
	switch {
	case score < 30:
		return domain.RiskLow, low
	case score < 70:
		return domain.RiskMedium, medium
	default:
		return domain.RiskHigh, high
	}
}
