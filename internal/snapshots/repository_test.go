package snapshots

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/quantfolio/advisor/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return db
}

func testQuoteSnapshot(symbol string, price float64) domain.Recommendation {
	return domain.Recommendation{
		Symbol:     symbol,
		AssetClass: domain.AssetStock,
		Price:      price,
		Risk:       domain.RiskResult{Score: 42, Level: domain.RiskMedium},
		Confidence: 0.61,
	}
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	in := testQuoteSnapshot("AAPL", 187.5)
	require.NoError(t, repo.Store("stock_snapshots", "AAPL", in, TTLSnapshot))

	var out domain.Recommendation
	found, err := repo.GetIfFresh("stock_snapshots", "AAPL", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestStoreOverwritesExistingEntry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Store("stock_snapshots", "AAPL", testQuoteSnapshot("AAPL", 100), TTLSnapshot))
	require.NoError(t, repo.Store("stock_snapshots", "AAPL", testQuoteSnapshot("AAPL", 200), TTLSnapshot))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM stock_snapshots").Scan(&count))
	assert.Equal(t, 1, count)

	var out domain.Recommendation
	found, err := repo.GetIfFresh("stock_snapshots", "AAPL", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 200.0, out.Price)
}

func TestFreshnessBoundary(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return t0 }

	require.NoError(t, repo.Store("stock_snapshots", "AAPL", testQuoteSnapshot("AAPL", 187.5), TTLSnapshot))

	// One millisecond before the TTL elapses the entry is still fresh.
	repo.now = func() time.Time { return t0.Add(TTLSnapshot - time.Millisecond) }
	var out domain.Recommendation
	found, err := repo.GetIfFresh("stock_snapshots", "AAPL", &out)
	require.NoError(t, err)
	assert.True(t, found)

	// One millisecond after, it is stale.
	repo.now = func() time.Time { return t0.Add(TTLSnapshot + time.Millisecond) }
	found, err = repo.GetIfFresh("stock_snapshots", "AAPL", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetReturnsStaleData(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return t0 }
	require.NoError(t, repo.Store("forex_snapshots", "EUR_USD", testQuoteSnapshot("EUR_USD", 1.09), TTLSnapshot))

	repo.now = func() time.Time { return t0.Add(time.Hour) }

	var out domain.Recommendation
	found, err := repo.GetIfFresh("forex_snapshots", "EUR_USD", &out)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.Get("forex_snapshots", "EUR_USD", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1.09, out.Price)
}

func TestGetIfFreshMissingSymbol(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	var out domain.Recommendation
	found, err := repo.GetIfFresh("stock_snapshots", "NOPE", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store("stock_snapshots", "AAPL", testQuoteSnapshot("AAPL", 187.5), TTLSnapshot))
	require.NoError(t, repo.Delete("stock_snapshots", "AAPL"))

	var out domain.Recommendation
	found, err := repo.Get("stock_snapshots", "AAPL", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return t0 }

	require.NoError(t, repo.Store("stock_snapshots", "OLD", testQuoteSnapshot("OLD", 1), TTLSnapshot))

	repo.now = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, repo.Store("stock_snapshots", "NEW", testQuoteSnapshot("NEW", 2), TTLSnapshot))

	deleted, err := repo.DeleteExpired("stock_snapshots")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var out domain.Recommendation
	found, err := repo.Get("stock_snapshots", "NEW", &out)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return t0 }

	require.NoError(t, repo.Store("stock_snapshots", "AAPL", testQuoteSnapshot("AAPL", 1), TTLSnapshot))
	require.NoError(t, repo.Store("forex_snapshots", "EUR_USD", testQuoteSnapshot("EUR_USD", 1.09), TTLSnapshot))
	require.NoError(t, repo.Store("company_profiles", "AAPL", domain.CompanyProfile{Symbol: "AAPL", Name: "Apple Inc"}, TTLCompanyProfile))

	repo.now = func() time.Time { return t0.Add(time.Hour) }

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["stock_snapshots"])
	assert.Equal(t, int64(1), results["forex_snapshots"])
	assert.Equal(t, int64(0), results["company_profiles"])
}

func TestInvalidTableName(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Store("users; DROP TABLE stock_snapshots;--", "k", struct{}{}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	var out domain.Recommendation
	_, err = repo.GetIfFresh("secrets", "k", &out)
	require.Error(t, err)

	_, err = repo.DeleteExpired("nonexistent")
	require.Error(t, err)
}
