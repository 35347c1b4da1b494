// Package domain contains the core market-data and scoring types shared by
// the acquisition pipeline. The domain layer is pure: no HTTP, no storage,
// no logging dependencies.
package domain

// AssetClass identifies the kind of instrument a recommendation refers to.
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetForex  AssetClass = "forex"
	AssetCrypto AssetClass = "crypto"
)

// Quote is a point-in-time price snapshot for a symbol.
// A Price of exactly 0 means the provider had no data for the symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previousClose"`
	PercentChange float64 `json:"percentChange"`
	Volume        float64 `json:"volume"`
	Timestamp     int64   `json:"timestamp"` // unix seconds
}

// Available reports whether the quote carries usable price data.
func (q Quote) Available() bool {
	return q.Price > 0
}

// CandleSeries holds parallel OHLCV arrays ordered ascending by time.
// An empty series is a valid "no data" result, not an error.
type CandleSeries struct {
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
}

// Len returns the number of candles in the series.
func (s CandleSeries) Len() int {
	return len(s.Closes)
}

// Empty reports whether the series carries no candles.
func (s CandleSeries) Empty() bool {
	return s.Len() == 0
}

// Valid reports whether all parallel arrays have equal length.
func (s CandleSeries) Valid() bool {
	n := len(s.Closes)
	return len(s.Timestamps) == n &&
		len(s.Opens) == n &&
		len(s.Highs) == n &&
		len(s.Lows) == n &&
		len(s.Volumes) == n
}

// CompanyProfile is the minimal identity payload used for display names.
type CompanyProfile struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// TechnicalIndicators holds the derived per-symbol technical state.
// RSI is in [0,100]; Volatility is annualized percent; ATR is populated
// for forex pairs only; Beta is a fixed placeholder for equities until a
// benchmark correlation source exists; TrendStrength is clamped to
// [-10,10].
type TechnicalIndicators struct {
	RSI           float64 `json:"rsi"`
	Volatility    float64 `json:"volatility"`
	Beta          float64 `json:"beta,omitempty"`
	ATR           float64 `json:"atr,omitempty"`
	TrendStrength float64 `json:"trendStrength"`
}

// LiquidityTier classifies forex pairs by liquidity.
type LiquidityTier string

const (
	LiquidityMajor  LiquidityTier = "major"
	LiquidityMinor  LiquidityTier = "minor"
	LiquidityExotic LiquidityTier = "exotic"
)

// StockRiskFactors is the factor vector for equity risk scoring.
type StockRiskFactors struct {
	Volatility float64 `json:"volatility"`
	Beta       float64 `json:"beta"`
	RSI        float64 `json:"rsi"`
	Drawdown   float64 `json:"drawdown"`  // <= 0, percent
	Sentiment  float64 `json:"sentiment"` // [-1,1]
}

// ForexRiskFactors is the factor vector for currency-pair risk scoring.
type ForexRiskFactors struct {
	ATRVolatility float64       `json:"atrVolatility"`
	Leverage      float64       `json:"leverage"`
	Liquidity     LiquidityTier `json:"liquidity"`
	TrendStrength float64       `json:"trendStrength"` // [-10,10]
	SpreadPips    float64       `json:"spreadPips"`
}

// RiskLevel is the category assigned to a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"    // score < 30
	RiskMedium RiskLevel = "Medium" // score < 70
	RiskHigh   RiskLevel = "High"   // score >= 70
)

// RiskResult is a bounded 0-100 integer risk score with its category,
// per-factor breakdown and a fixed advisory string keyed to the category.
type RiskResult struct {
	Score          int            `json:"score"`
	Level          RiskLevel      `json:"level"`
	Breakdown      map[string]int `json:"breakdown"`
	Recommendation string         `json:"recommendation"`
}

// ConfidenceInputs feeds the confidence estimator.
type ConfidenceInputs struct {
	RSI               float64 `json:"rsi"`
	Volatility        float64 `json:"volatility"`
	Sentiment         float64 `json:"sentiment"`
	HistoricalWinRate float64 `json:"historicalWinRate"` // [0,1]
	SampleSize        int     `json:"sampleSize"`        // >= 0
}

// RiskTolerance is the user's stated appetite for risk.
type RiskTolerance string

const (
	ToleranceLow    RiskTolerance = "low"
	ToleranceMedium RiskTolerance = "medium"
	ToleranceHigh   RiskTolerance = "high"
)

// InvestmentHorizon is the user's stated holding period.
type InvestmentHorizon string

const (
	HorizonShort  InvestmentHorizon = "short"
	HorizonMedium InvestmentHorizon = "medium"
	HorizonLong   InvestmentHorizon = "long"
)

// AssetPreference is the plural key users state preferences under.
type AssetPreference string

const (
	PreferStocks AssetPreference = "stocks"
	PreferForex  AssetPreference = "forex"
	PreferCrypto AssetPreference = "crypto"
)

// Preference maps an asset class to its preference key.
func (c AssetClass) Preference() AssetPreference {
	switch c {
	case AssetStock:
		return PreferStocks
	case AssetForex:
		return PreferForex
	default:
		return PreferCrypto
	}
}

// UserProfile captures the preferences recommendations are ranked against.
type UserProfile struct {
	UserID           string                   `json:"userId"`
	RiskTolerance    RiskTolerance            `json:"riskTolerance"`
	Horizon          InvestmentHorizon        `json:"investmentHorizon"`
	InvestmentAmount float64                  `json:"investmentAmount"`
	PreferredAssets  map[AssetPreference]bool `json:"preferredAssets,omitempty"`
}

// Prefers reports whether the user explicitly listed the asset class.
// A nil preference set means no explicit preferences were stated.
func (p UserProfile) Prefers(class AssetClass) bool {
	return p.PreferredAssets[class.Preference()]
}

// HasPreferences reports whether the user stated any asset preferences.
func (p UserProfile) HasPreferences() bool {
	return len(p.PreferredAssets) > 0
}

// Recommendation is one ranked buy/sell candidate.
type Recommendation struct {
	Symbol          string     `json:"symbol"`
	Name            string     `json:"name"`
	AssetClass      AssetClass `json:"assetClass"`
	Price           float64    `json:"price"`
	Change24h       float64    `json:"change24h"`
	Risk            RiskResult `json:"risk"`
	Confidence      float64    `json:"confidence"`
	ProjectedReturn float64    `json:"projectedReturn,omitempty"` // percent, stocks
	ProjectedPips   int        `json:"projectedPips,omitempty"`   // forex
	PipMovement     int        `json:"pipMovement,omitempty"`     // forex
	SpreadPips      float64    `json:"spreadPips,omitempty"`      // forex
	Timeframe       string     `json:"timeframe"`
	MatchScore      int        `json:"matchScore"`
	Reason          string     `json:"reason"`
}

// Prediction is the consensus output of the ML inference service.
type Prediction struct {
	Symbol     string  `json:"symbol"`
	Timeframe  string  `json:"timeframe"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}
