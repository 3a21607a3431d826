package ports

import "time"

// CacheStore holds cache entries with a hard expiry.
// Implementations must be safe for concurrent use.
type CacheStore[K comparable, E any] interface {
	// Set stores entry under key until ttl elapses.
	Set(key K, entry E, ttl time.Duration)
	// TryGet returns the entry stored under key. Expired entries are reported as missing.
	TryGet(key K) (E, bool)
}
