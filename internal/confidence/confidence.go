// Package confidence combines technical convergence, sample depth and
// historical win-rate into a bounded confidence score. The estimator
// only produces the bounded value; display thresholds (for example
// suppressing results below 0.85) belong to consumers.
package confidence

import (
	"math"

	"github.com/quantfolio/advisor/internal/domain"
)

// MaxConfidence caps the estimate: the pipeline never claims certainty.
const MaxConfidence = 0.99

// Estimate computes
//
//	convergence = (|50-rsi|/50)*0.4 + |sentiment|*0.2
//	experience  = min(sampleSize/50, 1)*0.2
//	accuracy    = historicalWinRate*0.4
//
// clamped to [0, 0.99].
func Estimate(in domain.ConfidenceInputs) float64 {
	rsiDeviation := math.Abs(50 - in.RSI)
	convergence := (rsiDeviation/50)*0.4 + math.Abs(in.Sentiment)*0.2

	experience := math.Min(float64(in.SampleSize)/50, 1) * 0.2
	accuracy := in.HistoricalWinRate * 0.4

	raw := convergence + experience + accuracy
	return math.Min(math.Max(raw, 0), MaxConfidence)
}
