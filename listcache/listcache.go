// Package listcache provides the ordered, index-addressed companion to
// the keyed cache: a whole collection cached behind a single absolute-TTL
// freshness marker.
//
// On expiry the collection reloads through its loader — as one LoadAll
// (strategy ALL) or index by index (strategy ONE, which requires the
// optional IndexLoader capability). Exactly one reload runs at a time;
// readers arriving during a reload are served the last-known data, and
// block only when there is nothing to serve yet.
package listcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"

	"github.com/IvanBrykalov/collcache/cache"
	"github.com/IvanBrykalov/collcache/internal/singleflight"
	"github.com/IvanBrykalov/collcache/metrics"
)

// Error codes specific to the ordered cache.
const (
	ErrCodeInvalidIndex errors.ErrorCode = "COLLCACHE_INVALID_INDEX"
)

// NewErrInvalidIndex reports an index outside the loaded collection.
func NewErrInvalidIndex(index, size int) error {
	return errors.NewWithContext(ErrCodeInvalidIndex, "index out of range", map[string]interface{}{
		"index": index,
		"size":  size,
	})
}

// IsInvalidIndex reports whether err is the out-of-range kind.
func IsInvalidIndex(err error) bool {
	return errors.HasCode(err, ErrCodeInvalidIndex)
}

// ListLoader produces the whole ordered collection.
type ListLoader[V any] interface {
	LoadAll(ctx context.Context) ([]V, error)
}

// ListLoaderFunc adapts a function to ListLoader.
type ListLoaderFunc[V any] func(ctx context.Context) ([]V, error)

func (f ListLoaderFunc[V]) LoadAll(ctx context.Context) ([]V, error) { return f(ctx) }

// IndexLoader is the optional per-index capability. Not every backing
// source can address single positions; strategy ONE demands it.
type IndexLoader[V any] interface {
	LoadOne(ctx context.Context, index int) (V, error)
}

// IndexLoaderFunc adapts a function to IndexLoader.
type IndexLoaderFunc[V any] func(ctx context.Context, index int) (V, error)

func (f IndexLoaderFunc[V]) LoadOne(ctx context.Context, index int) (V, error) { return f(ctx, index) }

// LoadStrategy selects how a stale collection refreshes.
type LoadStrategy string

const (
	// LoadAll reloads the whole collection at once.
	LoadAll LoadStrategy = "ALL"
	// LoadOne reloads individual indexes on demand via IndexLoader.
	LoadOne LoadStrategy = "ONE"
)

// Options configures an ordered cache.
type Options[V any] struct {
	// Name identifies the list in metrics and logs.
	Name string

	// AbsoluteTTL is the whole-collection freshness window measured from
	// the last successful full load (under strategy ONE, a successful index
	// load on a stale collection restarts it too). 0 means the collection never goes
	// stale on its own (only Invalidate forces a reload).
	AbsoluteTTL time.Duration

	// Strategy defaults to ALL.
	Strategy LoadStrategy

	// Loader produces the collection; required for strategy ALL and for
	// GetAll.
	Loader ListLoader[V]

	// IndexLoader backs strategy ONE.
	IndexLoader IndexLoader[V]

	// DisableMetrics turns the counter sink off.
	DisableMetrics bool

	// Clock and Logger mirror the keyed cache's collaborators.
	Clock  cache.Clock
	Logger cache.Logger
}

// List is the ordered cache. All methods are safe for concurrent use.
type List[V any] interface {
	// Get returns the value at index, reloading the collection (or the
	// index, under strategy ONE) when stale.
	Get(ctx context.Context, index int) (V, error)

	// GetAll returns the whole collection, reloading when stale. The
	// returned slice is a copy; callers may keep it.
	GetAll(ctx context.Context) ([]V, error)

	// Len returns the size of the last loaded collection.
	Len() int

	// Invalidate drops the loaded data; the next access reloads.
	Invalidate()

	// Admin exposes the observation surface.
	Admin() cache.Admin

	// Close stops the list; subsequent operations fail fast.
	Close() error
}

type sysClock struct{}

func (sysClock) NowUnixNano() int64 { return time.Now().UnixNano() }

// New constructs an ordered cache.
func New[V any](opt Options[V]) (List[V], error) {
	if opt.Name == "" {
		opt.Name = "collcache-list"
	}
	if opt.Strategy == "" {
		opt.Strategy = LoadAll
	}
	switch opt.Strategy {
	case LoadAll:
		if opt.Loader == nil {
			return nil, cache.NewErrInvalidConfig("loadStrategy", opt.Strategy, "requires a ListLoader")
		}
	case LoadOne:
		// Per-index loading is an optional loader capability; demanding
		// it without providing it is a construction error, not a
		// runtime surprise.
		if opt.IndexLoader == nil {
			return nil, cache.NewErrInvalidConfig("loadStrategy", opt.Strategy, "requires an IndexLoader")
		}
	default:
		return nil, cache.NewErrInvalidConfig("loadStrategy", opt.Strategy, "unknown load strategy")
	}
	if opt.AbsoluteTTL < 0 {
		return nil, cache.NewErrInvalidConfig("forcedTimeoutSec", opt.AbsoluteTTL, "must be >= 0")
	}
	if opt.Clock == nil {
		opt.Clock = sysClock{}
	}
	if opt.Logger == nil {
		opt.Logger = cache.NoOpLogger{}
	}

	l := &list[V]{opt: opt}
	if !opt.DisableMetrics {
		l.sink = metrics.NewSink(opt.Name, opt.Clock.NowUnixNano)
	}
	return l, nil
}

type list[V any] struct {
	opt  Options[V]
	sink *metrics.Sink

	mu       sync.RWMutex
	vals     []V
	loadedAt int64
	haveData bool

	// reloadSF coalesces full reloads (one flight, key 0); indexSF
	// coalesces per-index loads under strategy ONE.
	reloadSF  singleflight.Group[int, []V]
	indexSF   singleflight.Group[int, V]
	reloading atomic.Bool

	closed atomic.Bool
}

// Get returns the value at index.
func (l *list[V]) Get(ctx context.Context, index int) (V, error) {
	var zero V
	if l.closed.Load() {
		return zero, cache.NewErrClosed("Get")
	}
	l.sink.RecordRequest()

	if v, ok := l.fresh(index); ok {
		l.sink.RecordHit()
		return v, nil
	}
	l.sink.RecordMiss()

	if l.opt.Strategy == LoadOne {
		return l.loadIndex(ctx, index)
	}

	// Stale with last-known data: serve it and revalidate in the
	// background — exactly one reload at a time.
	if v, ok := l.lastKnown(index); ok {
		l.revalidate()
		return v, nil
	}

	// Nothing to serve: block on the coalesced reload.
	vals, err := l.reload(ctx)
	if err != nil {
		return zero, err
	}
	if index < 0 || index >= len(vals) {
		return zero, NewErrInvalidIndex(index, len(vals))
	}
	return vals[index], nil
}

// GetAll returns a copy of the collection.
func (l *list[V]) GetAll(ctx context.Context) ([]V, error) {
	if l.closed.Load() {
		return nil, cache.NewErrClosed("GetAll")
	}
	if l.opt.Loader == nil {
		return nil, cache.NewErrNoLoader("GetAll")
	}
	l.sink.RecordRequest()

	l.mu.RLock()
	if l.haveData && !l.staleLocked() {
		out := make([]V, len(l.vals))
		copy(out, l.vals)
		l.mu.RUnlock()
		l.sink.RecordHit()
		return out, nil
	}
	stale := l.haveData
	var lastKnown []V
	if stale {
		lastKnown = make([]V, len(l.vals))
		copy(lastKnown, l.vals)
	}
	l.mu.RUnlock()
	l.sink.RecordMiss()

	if stale {
		l.revalidate()
		return lastKnown, nil
	}
	vals, err := l.reload(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]V, len(vals))
	copy(out, vals)
	return out, nil
}

// Len returns the size of the last loaded collection.
func (l *list[V]) Len() int {
	l.mu.RLock()
	n := len(l.vals)
	l.mu.RUnlock()
	return n
}

// Invalidate drops the loaded data.
func (l *list[V]) Invalidate() {
	l.mu.Lock()
	l.vals = nil
	l.haveData = false
	l.loadedAt = 0
	l.mu.Unlock()
}

// Admin exposes snapshots and health for this list.
func (l *list[V]) Admin() cache.Admin {
	return cache.NewAdmin(l.opt.Name, func() metrics.Snapshot {
		return l.sink.Snapshot(l.Len(), 0)
	}, func() { l.sink.Reset() })
}

// Close marks the list closed.
func (l *list[V]) Close() error {
	l.closed.Store(true)
	return nil
}

// ---- internals ----

func (l *list[V]) now() int64 { return l.opt.Clock.NowUnixNano() }

// staleLocked assumes at least the read lock.
func (l *list[V]) staleLocked() bool {
	ttl := int64(l.opt.AbsoluteTTL)
	return ttl > 0 && l.now()-l.loadedAt >= ttl
}

// fresh returns the value at index iff the collection is loaded and
// inside its freshness window.
func (l *list[V]) fresh(index int) (V, bool) {
	var zero V
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.haveData || l.staleLocked() {
		return zero, false
	}
	if index < 0 || index >= len(l.vals) {
		return zero, false
	}
	return l.vals[index], true
}

// lastKnown returns the value at index from stale data, if any.
func (l *list[V]) lastKnown(index int) (V, bool) {
	var zero V
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.haveData || index < 0 || index >= len(l.vals) {
		return zero, false
	}
	return l.vals[index], true
}

// reload runs (or joins) the single full reload flight.
func (l *list[V]) reload(ctx context.Context) ([]V, error) {
	return l.reloadSF.Do(ctx, 0, func() ([]V, error) {
		start := l.now()
		vals, err := l.opt.Loader.LoadAll(context.WithoutCancel(ctx))
		if err != nil {
			l.sink.RecordLoadFailure()
			return nil, cache.NewErrLoadFailed("*", err)
		}
		l.sink.RecordLoadSuccess(l.now() - start)
		l.publish(vals)
		return vals, nil
	})
}

// revalidate kicks one background reload unless one is already running.
func (l *list[V]) revalidate() {
	if !l.reloading.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer l.reloading.Store(false)
		if l.closed.Load() {
			return
		}
		if _, err := l.reload(context.Background()); err != nil {
			l.opt.Logger.Warn("list reload failed, keeping last-known data",
				"list", l.opt.Name, "error", err)
		}
	}()
}

// loadIndex resolves one position under strategy ONE, coalescing
// concurrent loads of the same index.
func (l *list[V]) loadIndex(ctx context.Context, index int) (V, error) {
	var zero V
	if index < 0 {
		return zero, NewErrInvalidIndex(index, l.Len())
	}
	return l.indexSF.Do(ctx, index, func() (V, error) {
		start := l.now()
		v, err := l.opt.IndexLoader.LoadOne(ctx, index)
		if err != nil {
			l.sink.RecordLoadFailure()
			return zero, cache.NewErrLoadFailed(index, err)
		}
		l.sink.RecordLoadSuccess(l.now() - start)
		l.publishIndex(index, v)
		return v, nil
	})
}

// publish installs a freshly loaded collection.
func (l *list[V]) publish(vals []V) {
	l.mu.Lock()
	l.vals = vals
	l.haveData = true
	l.loadedAt = l.now()
	l.mu.Unlock()
}

// publishIndex installs one position, growing the collection as needed.
// Under strategy ONE a successful index load is the revalidating event,
// so a stale marker resets here; a fresh marker is left alone.
func (l *list[V]) publishIndex(index int, v V) {
	l.mu.Lock()
	for len(l.vals) <= index {
		var zero V
		l.vals = append(l.vals, zero)
	}
	l.vals[index] = v
	if !l.haveData || l.staleLocked() {
		l.haveData = true
		l.loadedAt = l.now()
	}
	l.mu.Unlock()
}
