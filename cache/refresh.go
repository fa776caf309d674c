// refresh.go: refresh-ahead scheduling.
//
// Eligibility is evaluated lazily on access rather than by a global
// sweep: an entry whose pre-access idle age has crossed the configured
// fraction of its access TTL triggers one background re-load. Success
// replaces value and creation instant; failure keeps everything and the
// next access retries. Keys that were removed meanwhile are never
// resurrected.
package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

type refresher[K comparable, V any] struct {
	c        *cache[K, V]
	inflight sync.Map // K -> struct{}; one refresh per key at a time
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

func newRefresher[K comparable, V any](c *cache[K, V], workers int) *refresher[K, V] {
	return &refresher[K, V]{c: c, sem: semaphore.NewWeighted(int64(workers))}
}

// maybeRefresh fires after a hit. prevAccess is the instant of the access
// BEFORE this one — eligibility judges the idle age the hit interrupted.
func (c *cache[K, V]) maybeRefresh(k K, e *entry[V], now, prevAccess int64) {
	if c.refresh == nil {
		return
	}
	acc := e.effectiveAccessTTL(c.accessTTL.Load())
	if acc <= 0 {
		return
	}
	f := c.refreshFactor()
	if float64(now-prevAccess) >= f*float64(acc) {
		c.refresh.trigger(k)
	}
}

func (c *cache[K, V]) refreshFactor() float64 {
	return math.Float64frombits(c.refreshFactorBits.Load())
}

// trigger starts a background refresh for k unless one is already in
// flight or the worker pool is saturated (the next access retries).
func (r *refresher[K, V]) trigger(k K) {
	if _, dup := r.inflight.LoadOrStore(k, struct{}{}); dup {
		return
	}
	if !r.sem.TryAcquire(1) {
		r.inflight.Delete(k)
		return
	}
	r.wg.Add(1)
	go r.run(k)
}

func (r *refresher[K, V]) run(k K) {
	defer r.wg.Done()
	defer r.sem.Release(1)
	defer r.inflight.Delete(k)

	c := r.c
	if c.closed.Load() {
		return
	}

	start := c.clock.NowUnixNano()
	v, err := c.opt.Loader.Load(context.Background(), k)
	if err != nil {
		c.sink.RecordLoadFailure()
		c.log.Warn("refresh-ahead load failed, keeping current value",
			"cache", c.opt.Name, "key", fmt.Sprintf("%v", k), "error", err)
		return
	}
	c.sink.RecordLoadSuccess(c.clock.NowUnixNano() - start)

	if c.closed.Load() {
		return
	}
	now := c.clock.NowUnixNano()
	c.shardFor(k).replaceIfPresent(k, func(old *entry[V]) *entry[V] {
		ne := newEntry(newCell(c.opt.ReferenceType, v), now, old.ttlOverride)
		ne.lastAccess.Store(old.lastAccess.Load())
		ne.accessCount.Store(old.accessCount.Load())
		return ne
	})
}

// waitIdle blocks until in-flight refreshes finish or the deadline
// passes; stragglers are abandoned (they notice closed before touching
// the table).
func (r *refresher[K, V]) waitIdle(d time.Duration) {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
	}
}
