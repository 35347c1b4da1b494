package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantfolio/advisor/internal/domain"
)

// HistorySchema creates the recommendation history table.
const HistorySchema = `
CREATE TABLE IF NOT EXISTS recommendation_history (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	data BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rec_history_user ON recommendation_history(user_id, created_at DESC);
`

// HistoryEntry is one stored recommendation batch.
type HistoryEntry struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"userId"`
	CreatedAt       time.Time               `json:"createdAt"`
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// HistoryRepository persists generated recommendation batches so users
// can review what was suggested and when.
type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// Save stores a batch under a fresh id and returns it.
func (r *HistoryRepository) Save(userID string, recs []domain.Recommendation) (string, error) {
	blob, err := msgpack.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	id := uuid.New().String()
	createdAt := r.now().UnixMilli()

	_, err = r.db.Exec(
		"INSERT INTO recommendation_history (id, user_id, created_at, data) VALUES (?, ?, ?, ?)",
		id, userID, createdAt, blob,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save recommendation history: %w", err)
	}

	return id, nil
}

// Latest returns the most recent batch for a user, or false if the
// user has no history yet.
func (r *HistoryRepository) Latest(userID string) (HistoryEntry, bool, error) {
	row := r.db.QueryRow(
		"SELECT id, user_id, created_at, data FROM recommendation_history WHERE user_id = ? ORDER BY created_at DESC LIMIT 1",
		userID,
	)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return HistoryEntry{}, false, nil
	}
	if err != nil {
		return HistoryEntry{}, false, err
	}
	return entry, true, nil
}

// List returns up to limit batches for a user, newest first.
func (r *HistoryRepository) List(userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		"SELECT id, user_id, created_at, data FROM recommendation_history WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendation history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendation history: %w", err)
	}

	return entries, nil
}

// Prune deletes batches older than the retention window.
// Returns the number of rows deleted.
func (r *HistoryRepository) Prune(retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention).UnixMilli()

	result, err := r.db.Exec(
		"DELETE FROM recommendation_history WHERE created_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune recommendation history: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (HistoryEntry, error) {
	var (
		entry     HistoryEntry
		createdAt int64
		blob      []byte
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &createdAt, &blob); err != nil {
		if err == sql.ErrNoRows {
			return HistoryEntry{}, err
		}
		return HistoryEntry{}, fmt.Errorf("failed to scan recommendation history: %w", err)
	}

	entry.CreatedAt = time.UnixMilli(createdAt)

	if err := msgpack.Unmarshal(blob, &entry.Recommendations); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to unmarshal recommendation history: %w", err)
	}
	return entry, nil
}
