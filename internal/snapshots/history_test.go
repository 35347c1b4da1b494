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

func setupHistoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(HistorySchema)
	require.NoError(t, err)

	return db
}

func TestSaveAndLatest(t *testing.T) {
	repo := NewHistoryRepository(setupHistoryDB(t))

	recs := []domain.Recommendation{
		{Symbol: "AAPL", AssetClass: domain.AssetStock, Price: 187.5, MatchScore: 85},
		{Symbol: "MSFT", AssetClass: domain.AssetStock, Price: 410.2, MatchScore: 80},
	}

	id, err := repo.Save("user-1", recs)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entry, found, err := repo.Latest("user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, recs, entry.Recommendations)
}

func TestLatestReturnsNewestBatch(t *testing.T) {
	repo := NewHistoryRepository(setupHistoryDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return t0 }
	_, err := repo.Save("user-1", []domain.Recommendation{{Symbol: "OLD"}})
	require.NoError(t, err)

	repo.now = func() time.Time { return t0.Add(time.Minute) }
	_, err = repo.Save("user-1", []domain.Recommendation{{Symbol: "NEW"}})
	require.NoError(t, err)

	entry, found, err := repo.Latest("user-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, entry.Recommendations, 1)
	assert.Equal(t, "NEW", entry.Recommendations[0].Symbol)
}

func TestLatestNoHistory(t *testing.T) {
	repo := NewHistoryRepository(setupHistoryDB(t))

	_, found, err := repo.Latest("user-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListIsScopedToUser(t *testing.T) {
	repo := NewHistoryRepository(setupHistoryDB(t))

	_, err := repo.Save("user-1", []domain.Recommendation{{Symbol: "A"}})
	require.NoError(t, err)
	_, err = repo.Save("user-2", []domain.Recommendation{{Symbol: "B"}})
	require.NoError(t, err)

	entries, err := repo.List("user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1", entries[0].UserID)
}

func TestListLimit(t *testing.T) {
	repo := NewHistoryRepository(setupHistoryDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 5; i++ {
		offset := time.Duration(i) * time.Minute
		repo.now = func() time.Time { return t0.Add(offset) }
		_, err := repo.Save("user-1", []domain.Recommendation{{Symbol: "X"}})
		require.NoError(t, err)
	}

	entries, err := repo.List("user-1", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPrune(t *testing.T) {
	repo := NewHistoryRepository(setupHistoryDB(t))

	t0 := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return t0 }
	_, err := repo.Save("user-1", []domain.Recommendation{{Symbol: "OLD"}})
	require.NoError(t, err)

	repo.now = func() time.Time { return t0.Add(48 * time.Hour) }
	_, err = repo.Save("user-1", []domain.Recommendation{{Symbol: "NEW"}})
	require.NoError(t, err)

	deleted, err := repo.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := repo.List("user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "NEW", entries[0].Recommendations[0].Symbol)
}
