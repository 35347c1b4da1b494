// Package advisor orchestrates the scoring pipeline: cached market
// snapshots feed the indicator, risk and confidence engines, and the
// ranked result is personalized per user profile.
package advisor

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/confidence"
	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/personalization"
	"github.com/quantfolio/advisor/internal/risk"
	"github.com/quantfolio/advisor/internal/snapshots"
	"github.com/quantfolio/advisor/pkg/formulas"
)

const (
	// DefaultTopN bounds the size of a generated batch.
	DefaultTopN = 10

	// DefaultConcurrency bounds the symbol fan-out. Provider quotas are
	// enforced by the rate limiter; this only caps in-flight work.
	DefaultConcurrency = 5

	candleResolution   = "D"
	candleLookbackDays = 30

	// Equity beta is fixed until a benchmark correlation source exists.
	defaultBeta = 1.0

	backtestStrategy = "momentum"

	emptyBatchMessage = "No recommendations available right now. Try again later."
)

// MarketData is the acquisition surface the engine scores from. The
// provider fallback chain satisfies it.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	Candles(ctx context.Context, symbol, resolution string, lookbackDays int) (domain.CandleSeries, error)
	Profile(ctx context.Context, symbol string) (domain.CompanyProfile, error)
	NewsSentiment(ctx context.Context, symbol string) (float64, error)
}

// Predictor augments technical scoring with ML consensus predictions.
type Predictor interface {
	Predict(ctx context.Context, symbol, timeframe string) (domain.Prediction, error)
}

// Engine runs the end-to-end recommendation pipeline.
type Engine struct {
	market      MarketData
	ml          Predictor // nil when the inference service is not configured
	cache       *snapshots.Repository
	history     *snapshots.HistoryRepository
	backtest    confidence.BacktestStats
	concurrency int
	topN        int
	log         zerolog.Logger
}

// NewEngine wires the pipeline. ml may be nil; history may be nil when
// persistence is not wanted (warm-up runs).
func NewEngine(market MarketData, ml Predictor, cache *snapshots.Repository, history *snapshots.HistoryRepository, log zerolog.Logger) *Engine {
	return &Engine{
		market:      market,
		ml:          ml,
		cache:       cache,
		history:     history,
		backtest:    confidence.SimulatedBacktest{},
		concurrency: DefaultConcurrency,
		topN:        DefaultTopN,
		log:         log.With().Str("component", "advisor").Logger(),
	}
}

// Result is one generated recommendation batch.
type Result struct {
	Recommendations []domain.Recommendation    `json:"recommendations"`
	Allocation      personalization.Allocation `json:"suggestedAllocation"`
	Timeframe       string                     `json:"timeframe"`
	Message         string                     `json:"message,omitempty"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
}

// Generate scores the stock and forex universes the profile allows,
// ranks the combined set and returns the top batch. Individual symbol
// failures are absorbed; an empty batch is a valid result, not an
// error.
func (e *Engine) Generate(ctx context.Context, profile domain.UserProfile) (Result, error) {
	var candidates []domain.Recommendation

	if !profile.HasPreferences() || profile.Prefers(domain.AssetStock) {
		candidates = append(candidates, e.scoreStocks(ctx, profile, TrendingStocks)...)
	}
	if !profile.HasPreferences() || profile.Prefers(domain.AssetForex) {
		candidates = append(candidates, e.scoreForexPairs(ctx, profile, ForexPairs)...)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return e.finish(profile, candidates, true), nil
}

// ForexRecommendations scores only the currency universe.
func (e *Engine) ForexRecommendations(ctx context.Context, profile domain.UserProfile) (Result, error) {
	candidates := e.scoreForexPairs(ctx, profile, ForexPairs)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return e.finish(profile, candidates, false), nil
}

// finish ranks, truncates and optionally persists a batch.
func (e *Engine) finish(profile domain.UserProfile, candidates []domain.Recommendation, persist bool) Result {
	ranked := personalization.TopN(personalization.Rank(candidates, profile), e.topN)

	result := Result{
		Recommendations: ranked,
		Allocation:      personalization.SuggestAllocation(profile),
		Timeframe:       Timeframe(profile.Horizon),
		GeneratedAt:     time.Now(),
	}

	if len(ranked) == 0 {
		result.Message = emptyBatchMessage
		return result
	}

	if persist && e.history != nil && profile.UserID != "" {
		if _, err := e.history.Save(profile.UserID, ranked); err != nil {
			e.log.Warn().Err(err).Str("user", profile.UserID).Msg("Failed to save recommendation history")
		}
	}

	return result
}

// scoreStocks fans symbols out over a bounded worker pool. Input order
// is preserved so ranking ties stay deterministic.
func (e *Engine) scoreStocks(ctx context.Context, profile domain.UserProfile, symbols []string) []domain.Recommendation {
	results := make([]*domain.Recommendation, len(symbols))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			rec, err := e.scoreStock(ctx, profile, symbol)
			if err != nil {
				e.absorb("stock", symbol, err)
				return
			}
			results[i] = &rec
		}(i, symbol)
	}
	wg.Wait()

	return collect(results)
}

// scoreForexPairs mirrors scoreStocks for the currency universe.
func (e *Engine) scoreForexPairs(ctx context.Context, profile domain.UserProfile, pairs []ForexPair) []domain.Recommendation {
	results := make([]*domain.Recommendation, len(pairs))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair ForexPair) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			rec, err := e.scoreForexPair(ctx, profile, pair)
			if err != nil {
				e.absorb("forex", pair.Symbol, err)
				return
			}
			results[i] = &rec
		}(i, pair)
	}
	wg.Wait()

	return collect(results)
}

func collect(results []*domain.Recommendation) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// absorb logs a per-symbol failure without failing the batch.
func (e *Engine) absorb(class, symbol string, err error) {
	if errors.Is(err, domain.ErrDataUnavailable) {
		e.log.Debug().Str("class", class).Str("symbol", symbol).Msg("No data for symbol, skipping")
		return
	}
	e.log.Warn().Err(err).Str("class", class).Str("symbol", symbol).Msg("Failed to score symbol, skipping")
}

// stockSnapshot is the cached per-symbol market state. Risk, confidence
// and ranking are derived per request because they depend on the
// requesting profile.
type stockSnapshot struct {
	Quote      domain.Quote               `msgpack:"quote"`
	Indicators domain.TechnicalIndicators `msgpack:"indicators"`
	Drawdown   float64                    `msgpack:"drawdown"`
	Sentiment  float64                    `msgpack:"sentiment"`
	Name       string                     `msgpack:"name"`
}

func (e *Engine) scoreStock(ctx context.Context, profile domain.UserProfile, symbol string) (domain.Recommendation, error) {
	snap, err := e.stockSnapshot(ctx, symbol)
	if err != nil {
		return domain.Recommendation{}, err
	}

	riskResult := risk.ScoreStock(domain.StockRiskFactors{
		Volatility: snap.Indicators.Volatility,
		Beta:       snap.Indicators.Beta,
		RSI:        snap.Indicators.RSI,
		Drawdown:   snap.Drawdown,
		Sentiment:  snap.Sentiment,
	})

	perf := e.backtest.Performance(symbol, backtestStrategy)
	conf := confidence.Estimate(domain.ConfidenceInputs{
		RSI:               snap.Indicators.RSI,
		Volatility:        snap.Indicators.Volatility,
		Sentiment:         snap.Sentiment,
		HistoricalWinRate: perf.WinRate,
		SampleSize:        perf.SampleSize,
	})

	timeframe := Timeframe(profile.Horizon)

	rec := domain.Recommendation{
		Symbol:          symbol,
		Name:            snap.Name,
		AssetClass:      domain.AssetStock,
		Price:           snap.Quote.Price,
		Change24h:       snap.Quote.PercentChange,
		Risk:            riskResult,
		Confidence:      conf,
		ProjectedReturn: formulas.ProjectedReturn(snap.Indicators.Volatility, snap.Indicators.RSI, string(profile.Horizon)),
		Timeframe:       timeframe,
		Reason:          stockReason(snap.Indicators, snap.Sentiment),
	}

	e.augmentWithPrediction(ctx, &rec, timeframe)

	return rec, nil
}

// stockSnapshot serves from cache when fresh and otherwise fetches
// quote, history, profile and sentiment through the provider chain.
func (e *Engine) stockSnapshot(ctx context.Context, symbol string) (stockSnapshot, error) {
	var snap stockSnapshot
	if found, err := e.cache.GetIfFresh("stock_snapshots", symbol, &snap); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("Snapshot cache read failed")
	} else if found {
		return snap, nil
	}

	quote, err := e.market.Quote(ctx, symbol)
	if err != nil {
		return stockSnapshot{}, err
	}
	candles, err := e.market.Candles(ctx, symbol, candleResolution, candleLookbackDays)
	if err != nil {
		return stockSnapshot{}, err
	}

	// Identity and sentiment are optional enrichments.
	name := symbol
	if prof, err := e.market.Profile(ctx, symbol); err == nil && prof.Name != "" {
		name = prof.Name
	} else if err != nil {
		e.log.Debug().Err(err).Str("symbol", symbol).Msg("Profile lookup failed, using symbol as name")
	}

	sentiment := 0.0
	if s, err := e.market.NewsSentiment(ctx, symbol); err == nil {
		sentiment = s
	} else {
		e.log.Debug().Err(err).Str("symbol", symbol).Msg("Sentiment lookup failed, assuming neutral")
	}

	snap = stockSnapshot{
		Quote: quote,
		Indicators: domain.TechnicalIndicators{
			RSI:           formulas.RSI(candles.Closes, formulas.RSIPeriod),
			Volatility:    formulas.AnnualizedVolatility(candles.Closes),
			Beta:          defaultBeta,
			TrendStrength: formulas.TrendStrength(candles.Closes),
		},
		Drawdown:  formulas.Drawdown(candles.Closes),
		Sentiment: sentiment,
		Name:      name,
	}

	if err := e.cache.Store("stock_snapshots", symbol, snap, snapshots.TTLSnapshot); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("Snapshot cache write failed")
	}

	return snap, nil
}

// forexSnapshot is the cached per-pair market state.
type forexSnapshot struct {
	Quote      domain.Quote               `msgpack:"quote"`
	Indicators domain.TechnicalIndicators `msgpack:"indicators"`
}

func (e *Engine) scoreForexPair(ctx context.Context, profile domain.UserProfile, pair ForexPair) (domain.Recommendation, error) {
	snap, err := e.forexSnapshot(ctx, pair.Symbol)
	if err != nil {
		return domain.Recommendation{}, err
	}

	spread := SpreadPips(pair.Tier)
	leverage := LeverageFor(profile.RiskTolerance)

	riskResult := risk.ScoreForex(domain.ForexRiskFactors{
		ATRVolatility: snap.Indicators.ATR,
		Leverage:      leverage,
		Liquidity:     pair.Tier,
		TrendStrength: snap.Indicators.TrendStrength,
		SpreadPips:    spread,
	})

	perf := e.backtest.Performance(pair.Symbol, backtestStrategy)
	conf := confidence.Estimate(domain.ConfidenceInputs{
		RSI:               snap.Indicators.RSI,
		Volatility:        snap.Indicators.Volatility,
		HistoricalWinRate: perf.WinRate,
		SampleSize:        perf.SampleSize,
	})

	rec := domain.Recommendation{
		Symbol:        pair.Symbol,
		Name:          strings.ReplaceAll(pair.Symbol, "_", "/"),
		AssetClass:    domain.AssetForex,
		Price:         snap.Quote.Price,
		Change24h:     snap.Quote.PercentChange,
		Risk:          riskResult,
		Confidence:    conf,
		ProjectedPips: formulas.ProjectedPips(snap.Indicators.TrendStrength),
		PipMovement:   formulas.PipMovement(snap.Quote.PreviousClose, snap.Quote.Price, pair.Symbol),
		SpreadPips:    spread,
		Timeframe:     Timeframe(profile.Horizon),
		Reason:        forexReason(pair.Tier, snap.Indicators.TrendStrength),
	}

	return rec, nil
}

func (e *Engine) forexSnapshot(ctx context.Context, symbol string) (forexSnapshot, error) {
	var snap forexSnapshot
	if found, err := e.cache.GetIfFresh("forex_snapshots", symbol, &snap); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("Snapshot cache read failed")
	} else if found {
		return snap, nil
	}

	quote, err := e.market.Quote(ctx, symbol)
	if err != nil {
		return forexSnapshot{}, err
	}
	candles, err := e.market.Candles(ctx, symbol, candleResolution, candleLookbackDays)
	if err != nil {
		return forexSnapshot{}, err
	}

	snap = forexSnapshot{
		Quote: quote,
		Indicators: domain.TechnicalIndicators{
			RSI:           formulas.RSI(candles.Closes, formulas.RSIPeriod),
			Volatility:    formulas.AnnualizedVolatility(candles.Closes),
			ATR:           formulas.ATR(candles.Highs, candles.Lows, candles.Closes, formulas.ATRPeriod),
			TrendStrength: formulas.TrendStrength(candles.Closes),
		},
	}

	if err := e.cache.Store("forex_snapshots", symbol, snap, snapshots.TTLSnapshot); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("Snapshot cache write failed")
	}

	return snap, nil
}

// augmentWithPrediction folds the ML consensus into the recommendation.
// Timeouts and failures are scoped to this symbol: the technical-only
// result stands.
func (e *Engine) augmentWithPrediction(ctx context.Context, rec *domain.Recommendation, timeframe string) {
	if e.ml == nil {
		return
	}

	pred, err := e.ml.Predict(ctx, rec.Symbol, timeframe)
	if err != nil {
		var timeout *domain.MLTimeoutError
		if errors.As(err, &timeout) {
			e.log.Warn().Str("symbol", rec.Symbol).Msg("ML inference timed out, using technical scoring only")
		} else {
			e.log.Debug().Err(err).Str("symbol", rec.Symbol).Msg("ML inference failed, using technical scoring only")
		}
		return
	}

	if pred.Price <= 0 || rec.Price <= 0 {
		return
	}

	projected := ((pred.Price - rec.Price) / rec.Price) * 100
	rec.ProjectedReturn = math.Round(projected*10) / 10
	rec.Confidence = math.Min((rec.Confidence+pred.Confidence)/2, confidence.MaxConfidence)
}

// stockReason composes the display rationale from the dominant signals.
func stockReason(ind domain.TechnicalIndicators, sentiment float64) string {
	var parts []string

	switch {
	case ind.RSI < 30:
		parts = append(parts, "Oversold on RSI")
	case ind.RSI > 70:
		parts = append(parts, "Strong momentum, watch for pullback")
	case ind.RSI > 55:
		parts = append(parts, "Positive momentum")
	}

	switch {
	case ind.TrendStrength > 2:
		parts = append(parts, "sustained uptrend")
	case ind.TrendStrength < -2:
		parts = append(parts, "recent downtrend")
	}

	if sentiment > 0.2 {
		parts = append(parts, "positive news sentiment")
	} else if sentiment < -0.2 {
		parts = append(parts, "negative news sentiment")
	}

	if len(parts) == 0 {
		return "Stable technical profile"
	}
	return strings.Join(parts, ", ")
}

// forexReason composes the display rationale for a currency pair.
func forexReason(tier domain.LiquidityTier, trend float64) string {
	var base string
	switch tier {
	case domain.LiquidityMajor:
		base = "Major pair with deep liquidity"
	case domain.LiquidityMinor:
		base = "Cross pair with moderate liquidity"
	default:
		base = "Exotic pair, wide spreads"
	}

	switch {
	case trend > 2:
		return base + ", trending up"
	case trend < -2:
		return base + ", trending down"
	default:
		return base + ", ranging market"
	}
}
