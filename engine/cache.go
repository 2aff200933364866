package engine

import "time"

// RulesCache provides an abstraction for caching the active rule list so a
// planning run does not hit the store for every invocation. Implementations
// can be swapped for Redis or similar.
type RulesCache interface {
	// Get retrieves cached rules, returns nil if cache miss or expired
	Get() []*BusinessRule

	// Set stores rules in cache
	Set(rules []*BusinessRule)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for rule caching: no TTL,
// invalidation only on rule mutations.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
