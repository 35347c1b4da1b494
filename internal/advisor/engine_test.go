package advisor

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/snapshots"
)

// fakeMarket serves canned data and counts calls per symbol.
type fakeMarket struct {
	mu        sync.Mutex
	quotes    map[string]domain.Quote
	quoteErr  map[string]error
	calls     map[string]int
	sentiment float64
}

func newFakeMarket(symbols ...string) *fakeMarket {
	m := &fakeMarket{
		quotes:   make(map[string]domain.Quote),
		quoteErr: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, s := range symbols {
		m.quotes[s] = domain.Quote{Symbol: s, Price: 100, PreviousClose: 99, PercentChange: 1.0}
	}
	return m
}

func (m *fakeMarket) Quote(_ context.Context, symbol string) (domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++
	if err := m.quoteErr[symbol]; err != nil {
		return domain.Quote{}, err
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrDataUnavailable
	}
	return q, nil
}

func (m *fakeMarket) Candles(_ context.Context, symbol, _ string, _ int) (domain.CandleSeries, error) {
	n := 30
	s := domain.CandleSeries{
		Timestamps: make([]int64, n),
		Opens:      make([]float64, n),
		Highs:      make([]float64, n),
		Lows:       make([]float64, n),
		Closes:     make([]float64, n),
		Volumes:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		price := 95 + float64(i)*0.2
		s.Timestamps[i] = int64(i)
		s.Opens[i] = price
		s.Highs[i] = price + 1
		s.Lows[i] = price - 1
		s.Closes[i] = price
		s.Volumes[i] = 1000
	}
	return s, nil
}

func (m *fakeMarket) Profile(_ context.Context, symbol string) (domain.CompanyProfile, error) {
	return domain.CompanyProfile{Symbol: symbol, Name: symbol + " Inc"}, nil
}

func (m *fakeMarket) NewsSentiment(_ context.Context, _ string) (float64, error) {
	return m.sentiment, nil
}

func (m *fakeMarket) callCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

type fakePredictor struct {
	prediction domain.Prediction
	err        error
	called     bool
}

func (p *fakePredictor) Predict(_ context.Context, symbol, timeframe string) (domain.Prediction, error) {
	p.called = true
	if p.err != nil {
		return domain.Prediction{}, p.err
	}
	pred := p.prediction
	pred.Symbol = symbol
	pred.Timeframe = timeframe
	return pred, nil
}

func setupEngineDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(snapshots.Schema)
	require.NoError(t, err)
	_, err = db.Exec(snapshots.HistorySchema)
	require.NoError(t, err)

	return db
}

func newTestEngine(t *testing.T, market MarketData, ml Predictor) (*Engine, *snapshots.HistoryRepository) {
	t.Helper()

	db := setupEngineDB(t)
	history := snapshots.NewHistoryRepository(db)
	engine := NewEngine(market, ml, snapshots.NewRepository(db), history, zerolog.Nop())
	return engine, history
}

func mediumProfile() domain.UserProfile {
	return domain.UserProfile{
		UserID:        "user-1",
		RiskTolerance: domain.ToleranceMedium,
		Horizon:       domain.HorizonMedium,
	}
}

func allSymbols() []string {
	symbols := append([]string{}, TrendingStocks...)
	for _, p := range ForexPairs {
		symbols = append(symbols, p.Symbol)
	}
	return symbols
}

func TestGenerateReturnsRankedBatch(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	engine, history := newTestEngine(t, market, nil)

	result, err := engine.Generate(context.Background(), mediumProfile())
	require.NoError(t, err)

	require.NotEmpty(t, result.Recommendations)
	assert.LessOrEqual(t, len(result.Recommendations), DefaultTopN)
	assert.Empty(t, result.Message)
	assert.Equal(t, "1month", result.Timeframe)

	for i := 1; i < len(result.Recommendations); i++ {
		assert.GreaterOrEqual(t,
			result.Recommendations[i-1].MatchScore,
			result.Recommendations[i].MatchScore)
	}

	entry, found, err := history.Latest("user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, result.Recommendations, entry.Recommendations)
}

func TestGenerateAbsorbsSymbolFailures(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	market.quoteErr["AAPL"] = &domain.ProviderError{
		Provider: "finnhub", Kind: domain.KindTransport, Status: 502,
	}
	delete(market.quotes, "MSFT") // no data

	engine, _ := newTestEngine(t, market, nil)

	result, err := engine.Generate(context.Background(), mediumProfile())
	require.NoError(t, err)
	require.NotEmpty(t, result.Recommendations)

	for _, rec := range result.Recommendations {
		assert.NotEqual(t, "AAPL", rec.Symbol)
		assert.NotEqual(t, "MSFT", rec.Symbol)
	}
}

func TestGenerateEmptyBatchIsNotAnError(t *testing.T) {
	market := newFakeMarket() // no symbols have data
	engine, history := newTestEngine(t, market, nil)

	result, err := engine.Generate(context.Background(), mediumProfile())
	require.NoError(t, err)

	assert.Empty(t, result.Recommendations)
	assert.NotEmpty(t, result.Message)

	_, found, err := history.Latest("user-1")
	require.NoError(t, err)
	assert.False(t, found, "empty batches should not be persisted")
}

func TestGenerateHonorsAssetPreferences(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	engine, _ := newTestEngine(t, market, nil)

	profile := mediumProfile()
	profile.PreferredAssets = map[domain.AssetPreference]bool{domain.PreferForex: true}

	result, err := engine.Generate(context.Background(), profile)
	require.NoError(t, err)
	require.NotEmpty(t, result.Recommendations)

	for _, rec := range result.Recommendations {
		assert.Equal(t, domain.AssetForex, rec.AssetClass)
	}
	assert.Equal(t, 0, market.callCount("AAPL"), "stock universe should not be fetched")
}

func TestGenerateServesSecondRequestFromCache(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	engine, _ := newTestEngine(t, market, nil)

	_, err := engine.Generate(context.Background(), mediumProfile())
	require.NoError(t, err)
	first := market.callCount("AAPL")
	assert.Equal(t, 1, first)

	_, err = engine.Generate(context.Background(), mediumProfile())
	require.NoError(t, err)
	assert.Equal(t, first, market.callCount("AAPL"), "fresh snapshots should be served from cache")
}

func TestGenerateCancelledContext(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	engine, _ := newTestEngine(t, market, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Generate(ctx, mediumProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictionAugmentsProjection(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	ml := &fakePredictor{prediction: domain.Prediction{Price: 110, Confidence: 0.9}}
	engine, _ := newTestEngine(t, market, ml)

	rec, err := engine.scoreStock(context.Background(), mediumProfile(), "AAPL")
	require.NoError(t, err)

	assert.True(t, ml.called)
	// Quote price 100, predicted 110: a 10% projected move.
	assert.Equal(t, 10.0, rec.ProjectedReturn)
	assert.LessOrEqual(t, rec.Confidence, 0.99)
}

func TestPredictionTimeoutFallsBackToTechnicals(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	ml := &fakePredictor{err: &domain.MLTimeoutError{Symbol: "AAPL", Timeout: "2s"}}
	engine, _ := newTestEngine(t, market, ml)

	withML, err := engine.scoreStock(context.Background(), mediumProfile(), "AAPL")
	require.NoError(t, err)

	engineNoML, _ := newTestEngine(t, newFakeMarket(allSymbols()...), nil)
	withoutML, err := engineNoML.scoreStock(context.Background(), mediumProfile(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, withoutML.ProjectedReturn, withML.ProjectedReturn)
	assert.Equal(t, withoutML.Confidence, withML.Confidence)
}

func TestForexRecommendations(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	engine, _ := newTestEngine(t, market, nil)

	result, err := engine.ForexRecommendations(context.Background(), mediumProfile())
	require.NoError(t, err)
	require.NotEmpty(t, result.Recommendations)

	for _, rec := range result.Recommendations {
		assert.Equal(t, domain.AssetForex, rec.AssetClass)
		assert.Contains(t, rec.Name, "/")
		assert.NotZero(t, rec.SpreadPips)
		assert.NotZero(t, rec.ProjectedPips)
	}
	assert.Equal(t, 0, market.callCount("AAPL"))
}

func TestScoreForexPairUsesTierSpread(t *testing.T) {
	market := newFakeMarket(allSymbols()...)
	engine, _ := newTestEngine(t, market, nil)

	major, err := engine.scoreForexPair(context.Background(), mediumProfile(),
		ForexPair{Symbol: "EUR_USD", Tier: domain.LiquidityMajor})
	require.NoError(t, err)
	assert.Equal(t, 0.8, major.SpreadPips)

	exotic, err := engine.scoreForexPair(context.Background(), mediumProfile(),
		ForexPair{Symbol: "USD_TRY", Tier: domain.LiquidityExotic})
	require.NoError(t, err)
	assert.Equal(t, 3.0, exotic.SpreadPips)

	assert.Greater(t, exotic.Risk.Score, major.Risk.Score)
}
