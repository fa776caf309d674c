package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// Single-flight: a burst of concurrent GetOrLoad calls on one absent key
// runs the loader exactly once and every caller gets its result.
func TestCache_GetOrLoadSingleflight(t *testing.T) {
	var calls int64

	loader := LoaderFunc[string, int](func(context.Context, string) (int, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(200 * time.Millisecond) // simulate I/O
		return 42, nil
	})
	c := mustNew(t, Options[string, int]{Name: "sf", Loader: loader})

	const N = 50
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != 42 {
				return fmt.Errorf("got %d", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}
	if snap := c.Admin().Snapshot(); snap.LoadSuccessCount != 1 {
		t.Fatalf("loadSuccessCount want 1, got %d", snap.LoadSuccessCount)
	}

	// Subsequent call is a pure hit.
	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != 42 {
		t.Fatalf("second GetOrLoad: v=%d err=%v", v, err)
	}
}

// Idle expiry feeds back into the loader: after the entry times out, the
// next loader result replaces the stale value.
func TestCache_ExpiredEntryReloads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var loads int64
	loader := LoaderFunc[string, string](func(context.Context, string) (string, error) {
		atomic.AddInt64(&loads, 1)
		return "y", nil
	})

	clk := newFakeClock(0)
	c := mustNew(t, Options[string, string]{Name: "s2", AccessTTL: time.Second, Clock: clk, Loader: loader})

	_ = c.Put(ctx, "a", "x")
	clk.add(2 * time.Second)

	v, err := c.GetOrLoad(ctx, "a")
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if v != "y" {
		t.Fatalf("stale entry must reload: want y, got %q", v)
	}
	if atomic.LoadInt64(&loads) != 1 {
		t.Fatalf("loader must have run once, got %d", loads)
	}
	if snap := c.Admin().Snapshot(); snap.MissCount < 1 {
		t.Fatalf("missCount want >= 1, got %d", snap.MissCount)
	}
	// The reloaded value is resident.
	if got, ok := c.Get("a"); !ok || got != "y" {
		t.Fatalf("reloaded value want y resident, got %q ok=%v", got, ok)
	}
}

// Loader failures reach every coalesced waiter, are recorded, and are
// not cached: the next access retries.
func TestCache_LoaderFailureNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls int64
	boom := fmt.Errorf("backend down")
	loader := LoaderFunc[string, int](func(context.Context, string) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 0, boom
	})
	c := mustNew(t, Options[string, int]{Name: "fail", Loader: loader})

	for i := 0; i < 2; i++ {
		_, err := c.GetOrLoad(ctx, "k")
		if !IsLoadFailed(err) {
			t.Fatalf("want load-failed kind, got %v", err)
		}
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Fatalf("failures must not be cached: loader calls want 2, got %d", got)
	}
	if c.Contains("k") {
		t.Fatal("nothing must be installed on failure")
	}
	if snap := c.Admin().Snapshot(); snap.LoadFailureCount != 2 {
		t.Fatalf("loadFailureCount want 2, got %d", snap.LoadFailureCount)
	}
}

// GetOrLoad without a loader fails with the dedicated kind.
func TestCache_GetOrLoadNoLoader(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, int]{Name: "noloader"})
	_, err := c.GetOrLoad(context.Background(), "k")
	if ErrorCode(err) != ErrCodeNoLoader {
		t.Fatalf("want no-loader kind, got %v", err)
	}
}

// A loader returning the zero value with a nil error is a successful
// load: the zero value is installed.
func TestCache_LoaderZeroValueInstalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	loader := LoaderFunc[string, string](func(context.Context, string) (string, error) {
		return "", nil
	})
	c := mustNew(t, Options[string, string]{Name: "zero", Loader: loader})

	v, err := c.GetOrLoad(ctx, "k")
	if err != nil || v != "" {
		t.Fatalf("want empty value, got %q err=%v", v, err)
	}
	if !c.Contains("k") {
		t.Fatal("zero value must be installed")
	}
}

// Async mode still coalesces and still populates the cache.
func TestCache_AsyncLoad(t *testing.T) {
	var calls int64
	loader := LoaderFunc[string, int](func(context.Context, string) (int, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return 7, nil
	})
	c := mustNew(t, Options[string, int]{Name: "async", Loader: loader, LoadStrategy: LoadAsync})

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(context.Background(), "k")
			if err != nil {
				return err
			}
			if v != 7 {
				return fmt.Errorf("got %d", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run once in async mode, got %d", got)
	}
	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("async load must populate the cache, got %d ok=%v", v, ok)
	}
}

// An async load completes and installs even when the only waiter gives
// up before the loader returns.
func TestCache_AsyncLoadSurvivesAbandonedWaiter(t *testing.T) {
	loader := LoaderFunc[string, int](func(context.Context, string) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 9, nil
	})
	c := mustNew(t, Options[string, int]{Name: "abandon", Loader: loader, LoadStrategy: LoadAsync})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := c.GetOrLoad(ctx, "k"); err == nil {
		t.Fatal("abandoning waiter must see its ctx error")
	}

	waitFor(t, 2*time.Second, func() bool {
		_, ok := c.Get("k")
		return ok
	})
}

// A follower cancelling its context unblocks only the follower; the
// leader's load still lands.
func TestCache_FollowerCancellation(t *testing.T) {
	release := make(chan struct{})
	loader := LoaderFunc[string, int](func(context.Context, string) (int, error) {
		<-release
		return 1, nil
	})
	c := mustNew(t, Options[string, int]{Name: "follower", Loader: loader})

	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(context.Background(), "k")
		leaderDone <- err
	}()

	// Give the leader time to start the flight, then join and cancel.
	time.Sleep(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	followerDone := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, "k")
		followerDone <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-followerDone; err == nil {
		t.Fatal("cancelled follower must return an error")
	}
	close(release)
	if err := <-leaderDone; err != nil {
		t.Fatalf("leader must complete: %v", err)
	}
	if v, ok := c.Get("k"); !ok || v != 1 {
		t.Fatalf("value must be installed, got %d ok=%v", v, ok)
	}
}
