package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantfolio/advisor/internal/domain"
)

func TestScoreForexMajorPairIsLow(t *testing.T) {
	result := ScoreForex(domain.ForexRiskFactors{
		ATRVolatility: 0.001,
		Leverage:      10,
		Liquidity:     domain.LiquidityMajor,
		TrendStrength: 0,
		SpreadPips:    0.8,
	})

	assert.Equal(t, domain.RiskLow, result.Level)
	assert.Equal(t, forexAdviceLow, result.Recommendation)
	// 0.7 + 2.5 + 1.5 + 15 + 1.6 = 21.3
	assert.Equal(t, 21, result.Score)
}

func TestScoreForexExoticHighLeverageIsHigh(t *testing.T) {
	result := ScoreForex(domain.ForexRiskFactors{
		ATRVolatility: 0.06,
		Leverage:      100,
		Liquidity:     domain.LiquidityExotic,
		TrendStrength: 0,
		SpreadPips:    6,
	})

	assert.Equal(t, domain.RiskHigh, result.Level)
	assert.Equal(t, forexAdviceHigh, result.Recommendation)
}

func TestScoreForexStrongTrendLowersRisk(t *testing.T) {
	ranging := ScoreForex(domain.ForexRiskFactors{
		ATRVolatility: 0.01,
		Leverage:      50,
		Liquidity:     domain.LiquidityMinor,
		TrendStrength: 0,
		SpreadPips:    1.5,
	})
	trending := ScoreForex(domain.ForexRiskFactors{
		ATRVolatility: 0.01,
		Leverage:      50,
		Liquidity:     domain.LiquidityMinor,
		TrendStrength: 9,
		SpreadPips:    1.5,
	})

	assert.Less(t, trending.Score, ranging.Score)
}

func TestScoreForexLiquidityTiers(t *testing.T) {
	base := domain.ForexRiskFactors{
		ATRVolatility: 0.01,
		Leverage:      50,
		TrendStrength: 5,
		SpreadPips:    1.5,
	}

	major := base
	major.Liquidity = domain.LiquidityMajor
	minor := base
	minor.Liquidity = domain.LiquidityMinor
	exotic := base
	exotic.Liquidity = domain.LiquidityExotic

	assert.Less(t, ScoreForex(major).Score, ScoreForex(minor).Score)
	assert.Less(t, ScoreForex(minor).Score, ScoreForex(exotic).Score)
}

func TestScoreForexAlwaysBounded(t *testing.T) {
	vectors := []domain.ForexRiskFactors{
		{},
		{ATRVolatility: 1, Leverage: 500, Liquidity: domain.LiquidityExotic, TrendStrength: 0, SpreadPips: 50},
		{ATRVolatility: 0.0001, Leverage: 1, Liquidity: domain.LiquidityMajor, TrendStrength: 10, SpreadPips: 0.1},
	}

	for _, f := range vectors {
		result := ScoreForex(f)
		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 100)
	}
}
