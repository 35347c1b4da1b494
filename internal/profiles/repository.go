// Package profiles persists user investment profiles.
package profiles

import (
	"database/sql"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantfolio/advisor/internal/domain"
)

// Schema creates the user profile table.
const Schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	risk_tolerance TEXT NOT NULL,
	horizon TEXT NOT NULL,
	investment_amount REAL NOT NULL,
	preferred_assets BLOB
);
`

// DefaultProfile is what a user gets before they state preferences:
// balanced tolerance, medium horizon, a nominal account size and no
// explicit asset preferences.
func DefaultProfile(userID string) domain.UserProfile {
	return domain.UserProfile{
		UserID:           userID,
		RiskTolerance:    domain.ToleranceMedium,
		Horizon:          domain.HorizonMedium,
		InvestmentAmount: 10000,
	}
}

// Repository provides CRUD over user profiles.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new profile repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored profile, or the default profile if the user
// has never saved one.
func (r *Repository) Get(userID string) (domain.UserProfile, error) {
	row := r.db.QueryRow(
		"SELECT user_id, risk_tolerance, horizon, investment_amount, preferred_assets FROM user_profiles WHERE user_id = ?",
		userID,
	)

	var (
		p    domain.UserProfile
		blob []byte
	)
	err := row.Scan(&p.UserID, &p.RiskTolerance, &p.Horizon, &p.InvestmentAmount, &blob)
	if err == sql.ErrNoRows {
		return DefaultProfile(userID), nil
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("failed to read profile for %s: %w", userID, err)
	}

	if len(blob) > 0 {
		if err := msgpack.Unmarshal(blob, &p.PreferredAssets); err != nil {
			return domain.UserProfile{}, fmt.Errorf("failed to unmarshal preferences for %s: %w", userID, err)
		}
	}

	return p, nil
}

// Save upserts a profile. Empty tolerance or horizon fields fall back
// to the defaults so partial updates stay valid.
func (r *Repository) Save(p domain.UserProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("profile user id is required")
	}
	if p.RiskTolerance == "" {
		p.RiskTolerance = domain.ToleranceMedium
	}
	if p.Horizon == "" {
		p.Horizon = domain.HorizonMedium
	}
	if p.InvestmentAmount <= 0 {
		p.InvestmentAmount = DefaultProfile(p.UserID).InvestmentAmount
	}

	var blob []byte
	if p.HasPreferences() {
		var err error
		blob, err = msgpack.Marshal(p.PreferredAssets)
		if err != nil {
			return fmt.Errorf("failed to marshal preferences for %s: %w", p.UserID, err)
		}
	}

	_, err := r.db.Exec(
		"INSERT OR REPLACE INTO user_profiles (user_id, risk_tolerance, horizon, investment_amount, preferred_assets) VALUES (?, ?, ?, ?, ?)",
		p.UserID, string(p.RiskTolerance), string(p.Horizon), p.InvestmentAmount, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile for %s: %w", p.UserID, err)
	}

	return nil
}

// Delete removes a stored profile. The user reverts to defaults.
func (r *Repository) Delete(userID string) error {
	if _, err := r.db.Exec("DELETE FROM user_profiles WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete profile for %s: %w", userID, err)
	}
	return nil
}
