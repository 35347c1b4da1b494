package formulas

import (
	"math"
	"strings"
)

// ProjectedReturn estimates a return percentage from RSI momentum and
// volatility, scaled by the investment horizon. Rounded to one decimal.
func ProjectedReturn(volatility, rsi float64, horizon string) float64 {
	momentum := (rsi - 50) / 50 // -1 to 1

	timeFactor := 1.5
	switch horizon {
	case "short":
		timeFactor = 1
	case "long":
		timeFactor = 2
	}

	projected := momentum * (volatility / 100) * timeFactor * 100
	return math.Round(projected*10) / 10
}

// PipMovement converts a rate change to whole pips. JPY pairs use a pip
// size of 0.01, everything else 0.0001.
func PipMovement(oldRate, newRate float64, pair string) int {
	pipSize := 0.0001
	if strings.Contains(pair, "JPY") {
		pipSize = 0.01
	}

	return int(math.Round((newRate - oldRate) / pipSize))
}

// ProjectedPips estimates weekly pip movement from trend strength.
func ProjectedPips(trendStrength float64) int {
	strength := math.Abs(trendStrength)
	if strength == 0 {
		strength = 5
	}
	return int(math.Round(strength * 10))
}
