package risk

import (
	"math"

	"github.com/quantfolio/advisor/internal/domain"
)

// Forex factor weights. Must sum to 1.0.
const (
	forexWeightVolatility = 0.35
	forexWeightLeverage   = 0.25
	forexWeightLiquidity  = 0.15
	forexWeightTrend      = 0.15
	forexWeightSpread     = 0.10

	// Normalization caps: an ATR above 0.05 saturates, leverage tops
	// out at 1:100, spreads above 5 pips saturate.
	forexATRCap      = 0.05
	forexLeverageCap = 100.0
	forexSpreadCap   = 5.0
)

// Liquidity tier base points before weighting.
const (
	liquidityPointsMajor  = 10.0
	liquidityPointsMinor  = 50.0
	liquidityPointsExotic = 90.0
)

// Advisory strings keyed to the risk category.
const (
	forexAdviceLow    = "Major pair with tight spread. Good for beginners."
	forexAdviceMedium = "Moderate risk. Suitable for experienced traders."
	forexAdviceHigh   = "High volatility. Only for expert traders with risk management."
)

// ScoreForex computes the currency-pair risk score:
// 0.35*atr + 0.25*leverage + 0.15*liquidity + 0.15*trend + 0.10*spread,
// each factor normalized to 0-100 before weighting, total clamped to 100.
// Strong trends lower risk; ranging markets raise it.
func ScoreForex(f domain.ForexRiskFactors) domain.RiskResult {
	volatilityScore := math.Min(f.ATRVolatility/forexATRCap, 1) * 100 * forexWeightVolatility
	leverageScore := math.Min(f.Leverage/forexLeverageCap, 1) * 100 * forexWeightLeverage

	var liquidityScore float64
	switch f.Liquidity {
	case domain.LiquidityMajor:
		liquidityScore = liquidityPointsMajor * forexWeightLiquidity
	case domain.LiquidityMinor:
		liquidityScore = liquidityPointsMinor * forexWeightLiquidity
	default:
		liquidityScore = liquidityPointsExotic * forexWeightLiquidity
	}

	trendScore := ((10 - math.Abs(f.TrendStrength)) / 10) * 100 * forexWeightTrend
	spreadScore := math.Min(f.SpreadPips/forexSpreadCap, 1) * 100 * forexWeightSpread

	total := math.Min(volatilityScore+leverageScore+liquidityScore+trendScore+spreadScore, 100)

	level, advice := categorize(total, forexAdviceLow, forexAdviceMedium, forexAdviceHigh)

	return domain.RiskResult{
		Score: int(math.Round(total)),
		Level: level,
		Breakdown: map[string]int{
			"volatility": int(math.Round(volatilityScore)),
			"leverage":   int(math.Round(leverageScore)),
			"liquidity":  int(math.Round(liquidityScore)),
			"trend":      int(math.Round(trendScore)),
			"spread":     int(math.Round(spreadScore)),
		},
		Recommendation: advice,
	}
}
