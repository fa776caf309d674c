// loading.go: loader-driven fill with per-key single-flight coalescing.
package cache

import (
	"context"

	"github.com/IvanBrykalov/collcache/internal/singleflight"
)

// loadKey resolves a miss through the loader with single-flight
// semantics: concurrent callers for the same key share one invocation and
// all observe its result. Failures reach every waiter and are never
// cached, so the next access retries.
func (c *cache[K, V]) loadKey(ctx context.Context, k K) (V, error) {
	call, leader := c.sf.Begin(k)
	if !leader {
		// A follower's ctx cancellation releases only the follower; the
		// leader keeps going so the cache still gets populated.
		return call.Wait(ctx)
	}

	// The flight we just missed may have completed between our lookup
	// and Begin; re-check before paying for a load.
	if v, _, _, ok := c.lookup(k, c.clock.NowUnixNano()); ok {
		c.sf.Finish(k, call, v, nil)
		return v, nil
	}

	if c.opt.LoadStrategy == LoadAsync {
		// The load is detached from the caller's lifetime: its result
		// must land in the cache even if every waiter gives up.
		go c.runLoad(context.WithoutCancel(ctx), k, call)
		return call.Wait(ctx)
	}

	v, err := c.executeLoad(ctx, k)
	c.sf.Finish(k, call, v, err)
	return v, err
}

// runLoad is the async-mode leader body.
func (c *cache[K, V]) runLoad(ctx context.Context, k K, call *singleflight.Call[V]) {
	v, err := c.executeLoad(ctx, k)
	c.sf.Finish(k, call, v, err)
}

// executeLoad invokes the loader outside every cache-internal lock,
// records load metrics, and installs the value on success. Shutdown
// aborts the install but still hands the value to waiters.
func (c *cache[K, V]) executeLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, NewErrClosed("load")
	}

	start := c.clock.NowUnixNano()
	v, err := c.opt.Loader.Load(ctx, k)
	if err != nil {
		c.sink.RecordLoadFailure()
		return zero, NewErrLoadFailed(k, err)
	}
	c.sink.RecordLoadSuccess(c.clock.NowUnixNano() - start)

	if c.closed.Load() {
		return v, nil
	}
	c.install(k, v, 0)
	return v, nil
}
