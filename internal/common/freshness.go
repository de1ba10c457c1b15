package common

import "time"

// FreshnessPriceSeries is the default TTL for a cached daily close history.
// Closes only change once per trading day.
const FreshnessPriceSeries = 12 * time.Hour

// IsFresh returns true if updated is within ttl of now. A zero timestamp or
// non-positive ttl is never fresh.
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() || ttl <= 0 {
		return false
	}
	return now.Sub(updated) < ttl
}
