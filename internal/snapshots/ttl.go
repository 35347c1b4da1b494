package snapshots

import "time"

// TTL constants per table. These are added to the current time when
// storing to calculate expires_at.
const (
	// Scored snapshots go stale quickly: a quote older than five
	// minutes should trigger a fresh provider fetch.
	TTLSnapshot = 5 * time.Minute

	// Company identity data rarely changes.
	TTLCompanyProfile = 7 * 24 * time.Hour
)
