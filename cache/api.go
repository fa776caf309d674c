package cache

import (
	"context"
	"time"
)

// Cache is the concurrent keyed store with per-entry expiration,
// size-bounded eviction, loader-driven fill, and optional write-through /
// write-behind persistence. All methods are safe for concurrent use.
type Cache[K comparable, V any] interface {
	// Get returns the present-and-fresh value for k. It never engages
	// the loader. On a hit the entry is touched and reported to the
	// eviction tracker.
	Get(k K) (V, bool)

	// GetOrLoad returns the value for k, filling a miss through the
	// configured Loader. Concurrent misses for the same key share one
	// loader invocation; a loader failure reaches every waiter and is
	// not cached. Without a Loader it fails with the no-loader kind.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Put installs or replaces k→v with the cache's TTLs. Under
	// WRITE_THROUGH the writer runs first and a writer error aborts the
	// install; under WRITE_BEHIND the mutation is enqueued and Put
	// returns immediately. A full cache evicts one victim before Put
	// returns.
	Put(ctx context.Context, k K, v V) error

	// PutWithTTL is Put with a per-entry idle-expiry override.
	// A non-positive ttl disables idle expiry for this entry.
	PutWithTTL(ctx context.Context, k K, v V, ttl time.Duration) error

	// Invalidate removes k and reports whether it was resident. The
	// writer's delete is invoked (through) or enqueued (behind) whether
	// or not the key was resident.
	Invalidate(ctx context.Context, k K) (bool, error)

	// InvalidateAll drops every entry and the tracker state. Metrics are
	// left untouched and the writer is not involved.
	InvalidateAll(ctx context.Context) error

	// Contains reports whether k is resident and fresh, without touching
	// access metadata or metrics.
	Contains(k K) bool

	// Len returns the number of resident entries.
	Len() int

	// Capacity returns the configured maximum size (0 = unbounded).
	Capacity() int

	// WarmUp bulk-installs the loader's LoadAll result. Capacity is
	// enforced once after the whole batch, not per entry. A loader
	// without the BulkLoader capability warms nothing.
	WarmUp(ctx context.Context) error

	// Flush synchronously drains the write-behind queue with the normal
	// retry policy. A no-op for other write strategies.
	Flush(ctx context.Context) error

	// Admin exposes the observation surface: snapshots, summaries,
	// health verdicts, metrics reset.
	Admin() Admin

	// Close stops the background workers, flushes write-behind under the
	// shutdown deadline, and fails subsequent operations fast. Items
	// still queued at the deadline are dropped and reported in the
	// returned error.
	Close() error
}
