// entry.go: the per-key record and its expiry predicate.
package cache

import "sync/atomic"

// entry is owned by exactly one shard slot. cell, createdAt, and
// ttlOverride are immutable after construction — replacement (put,
// refresh) swaps in a fresh entry rather than mutating in place, so
// readers holding the old pointer stay race-free. lastAccess and
// accessCount are touched atomically on every hit.
type entry[V any] struct {
	cell      valueCell[V]
	createdAt int64

	// ttlOverride customizes idle expiry for this entry:
	// 0 inherits the cache's access TTL, >0 overrides it,
	// <0 disables idle expiry entirely.
	ttlOverride int64

	lastAccess  atomic.Int64
	accessCount atomic.Uint64
}

func newEntry[V any](cell valueCell[V], now, ttlOverride int64) *entry[V] {
	e := &entry[V]{cell: cell, createdAt: now, ttlOverride: ttlOverride}
	e.lastAccess.Store(now)
	return e
}

// touch records an access and returns the previous access instant, which
// the refresh-ahead trigger needs (eligibility is judged on the age
// before this access).
func (e *entry[V]) touch(now int64) int64 {
	e.accessCount.Add(1)
	return e.lastAccess.Swap(now)
}

// effectiveAccessTTL resolves the idle window against the cache default.
func (e *entry[V]) effectiveAccessTTL(cacheDefault int64) int64 {
	switch {
	case e.ttlOverride < 0:
		return 0
	case e.ttlOverride > 0:
		return e.ttlOverride
	default:
		return cacheDefault
	}
}

// expired applies both expiry dimensions independently: idle (since last
// access) and absolute (since creation). Either alone expires the entry;
// a zero TTL disables its dimension.
func (e *entry[V]) expired(now, accessDefault, absolute int64) bool {
	if acc := e.effectiveAccessTTL(accessDefault); acc > 0 && now-e.lastAccess.Load() >= acc {
		return true
	}
	if absolute > 0 && now-e.createdAt >= absolute {
		return true
	}
	return false
}
