// Package personalization scores the fit between scored assets and a
// user profile and ranks candidate sets.
package personalization

import (
	"sort"

	"github.com/quantfolio/advisor/internal/domain"
)

// MatchScore rates how well an asset fits the profile. It starts at 100
// and is adjusted additively per rule, then clamped to [0,100].
func MatchScore(assetRisk int, class domain.AssetClass, profile domain.UserProfile) int {
	score := 100

	// Risk tolerance alignment.
	switch profile.RiskTolerance {
	case domain.ToleranceLow:
		switch {
		case assetRisk < 30:
			score += 20
		case assetRisk > 70:
			score -= 40
		default:
			score -= 10
		}
	case domain.ToleranceMedium:
		if assetRisk >= 30 && assetRisk <= 70 {
			score += 20
		} else {
			score -= 10
		}
	case domain.ToleranceHigh:
		if assetRisk > 50 {
			score += 20
		} else {
			score -= 5
		}
	}

	// Horizon alignment: short-term traders prefer forex and
	// volatility, long-term investors prefer stable stocks.
	switch profile.Horizon {
	case domain.HorizonShort:
		if class == domain.AssetForex {
			score += 15
		}
		if assetRisk > 40 {
			score += 10
		}
	case domain.HorizonLong:
		if class == domain.AssetStock {
			score += 15
		}
		if assetRisk < 50 {
			score += 10
		}
	}

	// Explicit asset preference.
	if profile.HasPreferences() {
		if profile.Prefers(class) {
			score += 10
		} else {
			score -= 5
		}
	}

	return clamp(score, 0, 100)
}

// Rank assigns match scores and sorts descending. The sort is stable so
// equal-fit assets keep their input order and results stay
// deterministic.
func Rank(recs []domain.Recommendation, profile domain.UserProfile) []domain.Recommendation {
	ranked := make([]domain.Recommendation, len(recs))
	copy(ranked, recs)

	for i := range ranked {
		ranked[i].MatchScore = MatchScore(ranked[i].Risk.Score, ranked[i].AssetClass, profile)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	return ranked
}

// TopN truncates a ranked set to at most n entries.
func TopN(recs []domain.Recommendation, n int) []domain.Recommendation {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[:n]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
