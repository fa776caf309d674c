// Package cache provides a generic, sharded, in-process cache with
// per-entry expiration, pluggable eviction policies, loader-driven fill
// with single-flight coalescing, refresh-ahead, write-through /
// write-behind persistence, and an observable metrics surface.
//
// # Design
//
//   - Concurrency: the entry table is split into power-of-two shards,
//     each guarded by an RWMutex; access metadata is atomic so reads
//     stay on the read lock. Eviction ordering lives in one tracker
//     serialized under its own mutex, which is what makes a small
//     maxSize behave deterministically across the whole cache. Loader
//     and writer calls always run outside cache-internal locks.
//
//   - Expiration: entries expire on idle age (AccessTTL, overridable per
//     entry via PutWithTTL) and on absolute age (AbsoluteTTL), whichever
//     trips first. Expiry is lazy on access and, with EnableAutoCleanup,
//     also swept by a background loop.
//
//   - Eviction: policies implement policy.Tracker and ship in the policy
//     subpackages: LRU (default), LFU, FIFO, RANDOM, and TTL (oldest by
//     creation). When the size bound is exceeded the tracker's victim is
//     removed before the put returns.
//
//   - Loading: GetOrLoad coalesces concurrent misses per key — one
//     loader call, every waiter gets its result, failures are not
//     cached. LoadStrategy ASYNC moves the loader onto a detached
//     worker. RefreshStrategy REFRESH_AHEAD re-fetches entries in the
//     background once their idle age crosses RefreshAheadFactor of the
//     access TTL, so hot keys rarely pay a miss.
//
//   - Persistence: WRITE_THROUGH calls the Writer before installing
//     (a failing writer aborts the put); WRITE_BEHIND enqueues into a
//     coalescing queue drained in batches with bounded retry. Close
//     flushes the queue under ShutdownTimeout.
//
//   - References: STRONG cells hold values normally; SOFT and WEAK
//     cells cooperate with the garbage collector, and a background
//     reclaimer drops entries whose values were collected.
//
//   - Metrics: a lock-free sink (see the metrics package) feeds
//     snapshots, diffs, JSON and human summaries, health verdicts, and
//     the Prometheus bridge in metrics/prom.
//
// # Basic usage
//
//	c, err := cache.New[string, string](cache.Options[string, string]{
//	    Name:      "sessions",
//	    MaxSize:   10_000,
//	    AccessTTL: 15 * time.Minute,
//	})
//	if err != nil { ... }
//	defer c.Close()
//
//	_ = c.Put(ctx, "a", "1")
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//
// # With a loader
//
//	c, _ := cache.New[string, User](cache.Options[string, User]{
//	    Name:    "users",
//	    MaxSize: 50_000,
//	    Loader: cache.LoaderFunc[string, User](func(ctx context.Context, id string) (User, error) {
//	        return fetchUser(ctx, id)
//	    }),
//	})
//	u, err := c.GetOrLoad(ctx, "u-123")
//
// # Choosing an eviction policy
//
//	c, _ := cache.New[string, []byte](cache.Options[string, []byte]{
//	    MaxSize:        4096,
//	    EvictionPolicy: cache.EvictLFU,
//	})
//
// # Write-behind persistence
//
//	c, _ := cache.New[string, Row](cache.Options[string, Row]{
//	    Writer:               rowWriter,
//	    WriteStrategy:        cache.WriteBehind,
//	    WriteBehindBatchSize: 64,
//	    WriteBehindDelay:     200 * time.Millisecond,
//	})
//
// All Cache methods are safe for concurrent use; typical operation cost
// is O(1) expected — one map access under a shard lock plus a
// constant-time tracker adjustment.
package cache
