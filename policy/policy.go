// Package policy defines the pluggable eviction strategy contract used by
// the cache orchestrator, with one subpackage per strategy (lru, lfu,
// fifo, random, age).
package policy

// Tracker records membership and ordering state for the entries of one
// cache and answers victim queries when the cache is over capacity.
//
// Concurrency: the orchestrator serializes every call under a single
// tracker mutex; implementations need no locking of their own.
//
// Contract:
//   - OnInsert is called when an entry lands in the table, including
//     value replacement of a resident key; trackers treat a re-insert
//     according to their own semantics (LRU promotes, FIFO keeps the
//     slot, Age restamps). OnRemove is called exactly once when the
//     entry leaves (invalidate, eviction, expiry, clear of a single
//     key).
//   - OnAccess is called on every hit.
//   - Victim returns the key the strategy would evict next and true, or
//     the zero key and false when the tracker is empty. Returning a key
//     does not remove it; the orchestrator removes the entry and calls
//     OnRemove.
//   - Clear drops all state (whole-cache invalidation).
type Tracker[K comparable] interface {
	OnAccess(k K)
	OnInsert(k K)
	OnRemove(k K)
	Victim() (K, bool)
	Clear()
}

// Factory creates a fresh Tracker bound to one cache instance. Strategies
// carry their tuning (clock, rng seed) in the closure.
type Factory[K comparable] func() Tracker[K]
