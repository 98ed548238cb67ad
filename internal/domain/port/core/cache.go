package core

import "time"

// Cache is an explicit TTL cache injected into components that would
// otherwise keep ambient module-level state (cross-division totals,
// sequence scans, directory lookups). Entries expire on their own; Delete
// supports explicit invalidation after writes.
type Cache interface {
	// Get returns the cached value and whether a live entry exists
	Get(key string) (any, bool)
	// Set stores a value with the given time-to-live
	Set(key string, value any, ttl time.Duration)
	// Delete removes an entry
	Delete(key string)
}
