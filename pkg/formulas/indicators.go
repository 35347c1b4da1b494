// Package formulas provides the pure technical-indicator math used by the
// scoring pipeline. All functions are deterministic and allocation-light;
// callers are expected to pass fixed lookback windows (14-30 periods).
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RSIPeriod and ATRPeriod are the standard lookback lengths.
const (
	RSIPeriod = 14
	ATRPeriod = 14

	// NeutralRSI is returned when there is not enough history to compute.
	NeutralRSI = 50.0

	// TradingDaysPerYear annualizes daily return volatility.
	TradingDaysPerYear = 252
)

// RSI computes the Relative Strength Index over the trailing period
// deltas using simple average gain/loss (not Wilder smoothing). Fewer
// than period+1 observations yields the neutral default of 50.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return NeutralRSI
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += math.Abs(change)
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Returns converts a price series to simple returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i].
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	return returns
}

// AnnualizedVolatility computes the population standard deviation of
// simple returns, annualized over 252 trading days, as a percentage.
func AnnualizedVolatility(prices []float64) float64 {
	returns := Returns(prices)
	if len(returns) == 0 {
		return 0
	}

	mean := stat.Mean(returns, nil)
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear) * 100
}

// ATR computes the Average True Range: the mean of the last period true
// ranges, where true range per step is
// max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) < 2 || len(highs) != len(lows) || len(highs) != len(closes) {
		return 0
	}

	trueRanges := make([]float64, 0, len(highs)-1)
	for i := 1; i < len(highs); i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		trueRanges = append(trueRanges, tr)
	}

	if len(trueRanges) > period {
		trueRanges = trueRanges[len(trueRanges)-period:]
	}

	var sum float64
	for _, tr := range trueRanges {
		sum += tr
	}
	return sum / float64(period)
}

// TrendStrength compares the average of the most recent 7 closes to the
// average of the earliest 7 closes in the window, as a percentage of the
// earlier average, clamped to [-10, 10].
func TrendStrength(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}

	recentWindow := closes
	if len(recentWindow) > 7 {
		recentWindow = closes[len(closes)-7:]
	}
	earlierWindow := closes
	if len(earlierWindow) > 7 {
		earlierWindow = closes[:7]
	}

	recent := stat.Mean(recentWindow, nil)
	earlier := stat.Mean(earlierWindow, nil)
	if earlier == 0 {
		return 0
	}

	change := ((recent - earlier) / earlier) * 100
	return math.Min(math.Max(change, -10), 10)
}

// Drawdown computes the peak-to-trough percentage decline over the
// series. The result is always <= 0.
func Drawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}

	maxPrice := prices[0]
	maxDrawdown := 0.0

	for _, price := range prices {
		if price > maxPrice {
			maxPrice = price
		}
		dd := ((price - maxPrice) / maxPrice) * 100
		if dd < maxDrawdown {
			maxDrawdown = dd
		}
	}

	return maxDrawdown
}
