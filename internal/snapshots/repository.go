// Package snapshots provides persistent caching for scored market
// snapshots. Payloads are stored as MessagePack blobs with millisecond
// expiration timestamps for cache-first behavior.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema creates the snapshot cache tables.
const Schema = `
CREATE TABLE IF NOT EXISTS stock_snapshots (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS forex_snapshots (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS company_profiles (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);

CREATE INDEX IF NOT EXISTS idx_stock_snapshots_expires ON stock_snapshots(expires_at);
CREATE INDEX IF NOT EXISTS idx_forex_snapshots_expires ON forex_snapshots(expires_at);
CREATE INDEX IF NOT EXISTS idx_company_profiles_expires ON company_profiles(expires_at);
`

// AllTables lists all snapshot tables for cleanup operations.
var AllTables = []string{
	"stock_snapshots",
	"forex_snapshots",
	"company_profiles",
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for scored snapshots.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves a value with expiration = now + ttl. Storing under an
// existing symbol overwrites the previous entry.
func (r *Repository) Store(table, symbol string, value interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	expiresAt := r.now().Add(ttl).UnixMilli()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (symbol, data, expires_at) VALUES (?, ?, ?)",
		table,
	)
	if _, err := r.db.Exec(query, symbol, blob, expiresAt); err != nil {
		return fmt.Errorf("failed to store snapshot in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh decodes into dst only if expires_at > now. Returns false
// if the symbol is missing or the entry has expired. Use Get to read
// stale entries as a fallback when providers fail.
func (r *Repository) GetIfFresh(table, symbol string, dst interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf(
		"SELECT data FROM %s WHERE symbol = ? AND expires_at > ?",
		table,
	)

	var blob []byte
	err := r.db.QueryRow(query, symbol, r.now().UnixMilli()).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot from %s: %w", table, err)
	}

	if err := msgpack.Unmarshal(blob, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot from %s: %w", table, err)
	}
	return true, nil
}

// Get decodes into dst regardless of expiration. Stale data is better
// than no data when every provider is down. Returns false if the symbol
// is missing.
func (r *Repository) Get(table, symbol string, dst interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE symbol = ?", table)

	var blob []byte
	err := r.db.QueryRow(query, symbol).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot from %s: %w", table, err)
	}

	if err := msgpack.Unmarshal(blob, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot from %s: %w", table, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, symbol string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE symbol = ?", table)
	if _, err := r.db.Exec(query, symbol); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := r.db.Exec(query, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from all snapshot tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}

	return results, nil
}
