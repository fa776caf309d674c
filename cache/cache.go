// cache.go: the orchestrator assembling shards, tracker, loader
// coordination, refresh-ahead, persistence, and metrics.
package cache

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/collcache/internal/singleflight"
	"github.com/IvanBrykalov/collcache/internal/util"
	"github.com/IvanBrykalov/collcache/metrics"
	"github.com/IvanBrykalov/collcache/policy"
)

// cache is the concrete engine behind the Cache interface.
//
// Concurrency discipline: the entry table is striped; each shard guards
// its map with an RWMutex and entry access metadata is atomic, so reads
// stay on the read lock. All tracker mutations serialize under trackerMu,
// which preserves the one-record-per-live-entry invariant. When both are
// needed the tracker lock is taken first (lock order: tracker → shard).
// Loader and writer calls always run outside both.
type cache[K comparable, V any] struct {
	opt   Options[K, V]
	clock Clock
	log   Logger
	sink  *metrics.Sink

	shards     []*shard[K, V]
	shardCount int
	size       atomic.Int64

	trackerMu sync.Mutex
	tracker   policy.Tracker[K]

	sf      singleflight.Group[K, V]
	refresh *refresher[K, V]
	wb      *writeBehindQueue[K, V]

	// Hot-reloadable settings: expiry in nanoseconds, refresh factor as
	// float64 bits.
	accessTTL         atomic.Int64
	absoluteTTL       atomic.Int64
	refreshFactorBits atomic.Uint64

	// warming suppresses per-install capacity enforcement during WarmUp.
	warming atomic.Bool

	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New constructs a cache from the options. Invalid configuration is
// rejected here with the COLLCACHE_INVALID_CONFIG kind; nothing is
// started on error.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	shardCount := opt.Shards
	if shardCount <= 0 {
		shardCount = util.ReasonableShardCount()
	}
	shardCount = int(util.NextPow2(uint64(shardCount)))

	c := &cache[K, V]{
		opt:        opt,
		clock:      opt.Clock,
		log:        opt.Logger,
		shards:     make([]*shard[K, V], shardCount),
		shardCount: shardCount,
		tracker:    opt.Policy(),
		stop:       make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = newShard[K, V]()
	}
	c.accessTTL.Store(int64(opt.AccessTTL))
	c.absoluteTTL.Store(int64(opt.AbsoluteTTL))
	c.refreshFactorBits.Store(math.Float64bits(opt.RefreshAheadFactor))

	if !opt.DisableMetrics {
		c.sink = metrics.NewSink(opt.Name, opt.Clock.NowUnixNano)
	}
	if opt.RefreshStrategy == RefreshAhead {
		c.refresh = newRefresher(c, opt.RefreshAheadWorkers)
	}
	if opt.WriteStrategy == WriteBehind {
		c.wb = newWriteBehindQueue[K, V](writeBehindConfig{
			batchSize:  opt.WriteBehindBatchSize,
			delay:      opt.WriteBehindDelay,
			maxRetries: opt.WriteBehindMaxRetries,
			retryDelay: opt.WriteBehindRetryDelay,
			queueSize:  opt.WriteBehindQueueSize,
		}, opt.Writer, opt.Logger, opt.Clock)
		c.wb.start()
	}
	if opt.EnableAutoCleanup {
		c.wg.Add(1)
		go c.cleanupLoop()
	}
	if opt.ReferenceType != RefStrong {
		c.wg.Add(1)
		go c.reclaimLoop()
	}
	if opt.EnableManagement {
		registerAdmin(c.Admin())
	}
	return c, nil
}

// ---- lookups ----

// Get returns the present-and-fresh value for k without engaging the
// loader.
func (c *cache[K, V]) Get(k K) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}
	now := c.clock.NowUnixNano()
	c.sink.RecordRequest()

	v, e, prev, ok := c.lookup(k, now)
	if !ok {
		c.sink.RecordMiss()
		return zero, false
	}
	c.sink.RecordHit()
	c.trackerAccess(k)
	c.maybeRefresh(k, e, now, prev)
	return v, true
}

// GetOrLoad returns the value for k, loading through the configured
// Loader on a miss with per-key single-flight coalescing.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, NewErrClosed("GetOrLoad")
	}
	now := c.clock.NowUnixNano()
	c.sink.RecordRequest()

	if v, e, prev, ok := c.lookup(k, now); ok {
		c.sink.RecordHit()
		c.trackerAccess(k)
		c.maybeRefresh(k, e, now, prev)
		return v, nil
	}
	c.sink.RecordMiss()

	if c.opt.Loader == nil {
		return zero, NewErrNoLoader("GetOrLoad")
	}
	return c.loadKey(ctx, k)
}

// Contains reports residency and freshness without touching anything.
func (c *cache[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	e, ok := c.shardFor(k).get(k)
	if !ok {
		return false
	}
	if e.expired(c.clock.NowUnixNano(), c.accessTTL.Load(), c.absoluteTTL.Load()) {
		return false
	}
	return !e.cell.isCleared()
}

// lookup resolves k to a live value, lazily removing expired or cleared
// entries. On a hit it touches the entry and returns the pre-touch
// access instant for the refresh-ahead trigger.
func (c *cache[K, V]) lookup(k K, now int64) (V, *entry[V], int64, bool) {
	var zero V
	e, ok := c.shardFor(k).get(k)
	if !ok {
		return zero, nil, 0, false
	}
	if e.expired(now, c.accessTTL.Load(), c.absoluteTTL.Load()) {
		c.discardEntry(k, e)
		return zero, nil, 0, false
	}
	v, alive := e.cell.tryGet()
	if !alive {
		// Reclaimed cell: the entry is dead weight, treat as a miss.
		c.discardEntry(k, e)
		return zero, nil, 0, false
	}
	prev := e.touch(now)
	return v, e, prev, true
}

// ---- writes ----

// Put installs or replaces k→v with the cache-level TTLs.
func (c *cache[K, V]) Put(ctx context.Context, k K, v V) error {
	return c.put(ctx, k, v, 0)
}

// PutWithTTL installs k→v with a per-entry idle-expiry override; a
// non-positive ttl disables idle expiry for this entry.
func (c *cache[K, V]) PutWithTTL(ctx context.Context, k K, v V, ttl time.Duration) error {
	override := int64(ttl)
	if ttl <= 0 {
		override = -1
	}
	return c.put(ctx, k, v, override)
}

func (c *cache[K, V]) put(ctx context.Context, k K, v V, ttlOverride int64) error {
	if c.closed.Load() {
		return NewErrClosed("Put")
	}
	// Write-through runs first, outside every lock: a failing writer
	// aborts the put with nothing installed.
	if c.opt.WriteStrategy == WriteThrough {
		if err := c.opt.Writer.Write(ctx, k, v); err != nil {
			return NewErrWriteFailed(k, err)
		}
	}

	c.install(k, v, ttlOverride)
	c.sink.RecordPut()

	if c.wb != nil {
		c.wb.enqueuePut(k, v)
	}
	return nil
}

// install places the entry and settles tracker state and capacity. It is
// shared by puts and loads; refresh has its own replace path.
func (c *cache[K, V]) install(k K, v V, ttlOverride int64) {
	now := c.clock.NowUnixNano()
	e := newEntry(newCell(c.opt.ReferenceType, v), now, ttlOverride)

	existed := c.shardFor(k).put(k, e)
	if !existed {
		c.size.Add(1)
	}

	c.trackerMu.Lock()
	c.tracker.OnInsert(k)
	if !c.warming.Load() {
		c.evictOverCapacityLocked()
	}
	c.trackerMu.Unlock()
}

// evictOverCapacityLocked removes victims until the size bound holds.
// Caller holds trackerMu.
func (c *cache[K, V]) evictOverCapacityLocked() {
	limit := int64(c.opt.MaxSize)
	if limit <= 0 {
		return
	}
	evicted := 0
	for c.size.Load() > limit {
		victim, ok := c.tracker.Victim()
		if !ok {
			break
		}
		c.tracker.OnRemove(victim)
		if _, removed := c.shardFor(victim).remove(victim); removed {
			c.size.Add(-1)
			evicted++
		}
	}
	if evicted > 0 {
		c.sink.RecordEviction(evicted)
	}
}

// Invalidate removes k. The writer's delete runs (or is enqueued)
// whether or not the key was resident, so backing stores converge.
func (c *cache[K, V]) Invalidate(ctx context.Context, k K) (bool, error) {
	if c.closed.Load() {
		return false, NewErrClosed("Invalidate")
	}

	c.trackerMu.Lock()
	_, removed := c.shardFor(k).remove(k)
	if removed {
		c.size.Add(-1)
		c.tracker.OnRemove(k)
	}
	c.trackerMu.Unlock()
	if removed {
		c.sink.RecordRemove()
	}

	switch c.opt.WriteStrategy {
	case WriteThrough:
		if err := c.opt.Writer.Delete(ctx, k); err != nil {
			return removed, NewErrWriteFailed(k, err)
		}
	case WriteBehind:
		c.wb.enqueueRemove(k)
	}
	return removed, nil
}

// InvalidateAll drops all entries and tracker state. Metrics stay as
// they are.
func (c *cache[K, V]) InvalidateAll(context.Context) error {
	if c.closed.Load() {
		return NewErrClosed("InvalidateAll")
	}
	c.trackerMu.Lock()
	for _, s := range c.shards {
		s.clear()
	}
	c.tracker.Clear()
	c.size.Store(0)
	c.trackerMu.Unlock()
	return nil
}

// ---- bulk & lifecycle ----

// WarmUp bulk-installs the loader's LoadAll result, enforcing capacity
// once after the whole batch.
func (c *cache[K, V]) WarmUp(ctx context.Context) error {
	if c.closed.Load() {
		return NewErrClosed("WarmUp")
	}
	if c.opt.Loader == nil {
		return NewErrNoLoader("WarmUp")
	}
	bl, ok := c.opt.Loader.(BulkLoader[K, V])
	if !ok {
		// Bulk loading is an optional loader capability.
		return nil
	}

	start := c.clock.NowUnixNano()
	all, err := bl.LoadAll(ctx)
	if err != nil {
		c.sink.RecordLoadFailure()
		return NewErrLoadFailed("*", err)
	}
	c.sink.RecordLoadSuccess(c.clock.NowUnixNano() - start)

	c.warming.Store(true)
	for k, v := range all {
		c.install(k, v, 0)
	}
	c.warming.Store(false)

	c.trackerMu.Lock()
	c.evictOverCapacityLocked()
	c.trackerMu.Unlock()
	return nil
}

// Flush synchronously drains the write-behind queue.
func (c *cache[K, V]) Flush(ctx context.Context) error {
	if c.closed.Load() {
		return NewErrClosed("Flush")
	}
	if c.wb == nil {
		return nil
	}
	return c.wb.flush(ctx)
}

// Len returns the number of resident entries.
func (c *cache[K, V]) Len() int { return int(c.size.Load()) }

// Capacity returns the configured bound (0 = unbounded).
func (c *cache[K, V]) Capacity() int { return c.opt.MaxSize }

// Admin returns the observation surface for this cache.
func (c *cache[K, V]) Admin() Admin {
	return Admin{
		name: c.opt.Name,
		snapshot: func() metrics.Snapshot {
			return c.sink.Snapshot(c.Len(), c.opt.MaxSize)
		},
		reset: func() { c.sink.Reset() },
	}
}

// Close stops intake, shuts the workers down, and flushes write-behind
// under the shutdown deadline. Idempotent; only the first call does the
// work.
func (c *cache[K, V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.stop)
	c.wg.Wait()

	if c.refresh != nil {
		// Give in-flight refreshes the shutdown window, then abandon.
		c.refresh.waitIdle(c.opt.ShutdownTimeout)
	}

	var err error
	if c.wb != nil {
		err = c.wb.shutdown(c.opt.ShutdownTimeout)
		if err != nil {
			c.log.Warn("write-behind shutdown lost items", "cache", c.opt.Name, "error", err)
		}
	}
	if c.opt.EnableManagement {
		unregisterAdmin(c.opt.Name)
	}
	return err
}

// ---- helpers ----

func (c *cache[K, V]) shardFor(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(util.HashKey(k), c.shardCount)]
}

func (c *cache[K, V]) trackerAccess(k K) {
	c.trackerMu.Lock()
	c.tracker.OnAccess(k)
	c.trackerMu.Unlock()
}

// discardEntry removes an expired or reclaimed entry, guarding against a
// concurrent replacement having already taken the slot.
func (c *cache[K, V]) discardEntry(k K, e *entry[V]) bool {
	c.trackerMu.Lock()
	removed := c.shardFor(k).removeIf(k, e)
	if removed {
		c.size.Add(-1)
		c.tracker.OnRemove(k)
	}
	c.trackerMu.Unlock()
	if removed {
		c.sink.RecordEviction(1)
	}
	return removed
}
