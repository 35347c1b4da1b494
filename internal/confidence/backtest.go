package confidence

// PatternPerformance summarizes historical strategy performance for a
// symbol: the win rate feeds the accuracy term of the estimator and the
// sample size feeds the experience term.
type PatternPerformance struct {
	WinRate    float64 // [0,1]
	SampleSize int
	AvgReturn  float64 // percent
}

// BacktestStats is the capability interface for historical performance
// lookups. Production wires a real backtest store; tests and the
// default deployment use the deterministic double below.
type BacktestStats interface {
	Performance(symbol, strategy string) PatternPerformance
}

// SimulatedBacktest derives stable pseudo-performance from the symbol
// itself so repeated runs agree. It stands in until a real backtest
// database exists.
type SimulatedBacktest struct{}

// Performance implements BacktestStats deterministically: win rates in
// [0.65, 0.90), sample sizes in [10, 110).
func (SimulatedBacktest) Performance(symbol, _ string) PatternPerformance {
	var hash int
	for _, c := range symbol {
		hash += int(c)
	}

	return PatternPerformance{
		WinRate:    0.65 + float64(hash%25)/100,
		SampleSize: 10 + hash%100,
		AvgReturn:  1.5 + float64(hash%5)/2,
	}
}
