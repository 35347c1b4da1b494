package personalization

import "github.com/quantfolio/advisor/internal/domain"

// Allocation is a percentage split of investable funds.
type Allocation struct {
	Stocks int `json:"stocks"`
	Forex  int `json:"forex"`
	Cash   int `json:"cash"`
}

// SuggestAllocation derives a stocks/forex/cash split from the user's
// tolerance and horizon. Conservative profiles hold more stocks and
// cash; aggressive short-horizon profiles shift toward forex.
func SuggestAllocation(profile domain.UserProfile) Allocation {
	a := Allocation{Stocks: 60, Forex: 30, Cash: 10}

	switch profile.RiskTolerance {
	case domain.ToleranceLow:
		a = Allocation{Stocks: 70, Forex: 15, Cash: 15}
	case domain.ToleranceHigh:
		a = Allocation{Stocks: 40, Forex: 50, Cash: 10}
	}

	switch profile.Horizon {
	case domain.HorizonShort:
		a.Forex += 10
		a.Stocks -= 10
	case domain.HorizonLong:
		a.Stocks += 10
		a.Forex -= 10
	}

	return a
}
