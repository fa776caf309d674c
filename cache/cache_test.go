package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a controllable Clock for deterministic expiry tests.
type fakeClock struct{ t atomic.Int64 }

func newFakeClock(start int64) *fakeClock {
	c := &fakeClock{}
	c.t.Store(start)
	return c
}

func (f *fakeClock) NowUnixNano() int64  { return f.t.Load() }
func (f *fakeClock) add(d time.Duration) { f.t.Add(int64(d)) }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func mustNew[K comparable, V any](t *testing.T, opt Options[K, V]) Cache[K, V] {
	t.Helper()
	c, err := New(opt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// Basic Put/Get/Invalidate semantics.
func TestCache_BasicPutGetInvalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := mustNew(t, Options[string, int]{Name: "basic"})

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get a want 1, got %v ok=%v", v, ok)
	}

	// Replace in place.
	if err := c.Put(ctx, "a", 11); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len want 1, got %d", c.Len())
	}

	removed, err := c.Invalidate(ctx, "a")
	if err != nil || !removed {
		t.Fatalf("Invalidate want true, got %v err=%v", removed, err)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Invalidate")
	}
	if removed, _ := c.Invalidate(ctx, "a"); removed {
		t.Fatal("second Invalidate must report absent")
	}
}

// Idle expiry: an entry dies its AccessTTL after the last access, and
// every access restarts the window.
func TestCache_AccessTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := newFakeClock(0)
	c := mustNew(t, Options[string, string]{Name: "ttl", AccessTTL: time.Second, Clock: clk})

	_ = c.Put(ctx, "x", "v")
	clk.add(600 * time.Millisecond)
	if _, ok := c.Get("x"); !ok {
		t.Fatal("fresh entry must hit")
	}
	// The hit restarted the idle window.
	clk.add(600 * time.Millisecond)
	if _, ok := c.Get("x"); !ok {
		t.Fatal("accessed entry must survive another window")
	}
	clk.add(2 * time.Second)
	if _, ok := c.Get("x"); ok {
		t.Fatal("idle entry must expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry must be discarded, Len=%d", c.Len())
	}
}

// Absolute expiry caps lifetime regardless of accesses.
func TestCache_AbsoluteTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := newFakeClock(0)
	c := mustNew(t, Options[string, string]{Name: "abs", AbsoluteTTL: 10 * time.Second, Clock: clk})

	_ = c.Put(ctx, "x", "v")
	for i := 0; i < 9; i++ {
		clk.add(time.Second)
		if _, ok := c.Get("x"); !ok {
			t.Fatalf("entry must survive until the cap (step %d)", i)
		}
	}
	clk.add(time.Second + 1)
	if _, ok := c.Get("x"); ok {
		t.Fatal("entry must die at the absolute cap despite constant access")
	}
}

// PutWithTTL overrides the idle window per entry; a non-positive ttl
// disables idle expiry for that entry.
func TestCache_PutWithTTLOverride(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := newFakeClock(0)
	c := mustNew(t, Options[string, string]{Name: "override", AccessTTL: time.Second, Clock: clk})

	_ = c.PutWithTTL(ctx, "long", "v", 5*time.Second)
	_ = c.PutWithTTL(ctx, "forever", "v", 0)
	_ = c.Put(ctx, "short", "v")

	clk.add(2 * time.Second)
	if _, ok := c.Get("short"); ok {
		t.Fatal("default-TTL entry must have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatal("override entry must still be alive")
	}

	clk.add(6 * time.Second)
	if _, ok := c.Get("long"); ok {
		t.Fatal("override entry must expire after its own window")
	}
	if _, ok := c.Get("forever"); !ok {
		t.Fatal("zero-ttl override must never idle-expire")
	}
}

// Contains reports freshness without touching access metadata.
func TestCache_ContainsDoesNotTouch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := newFakeClock(0)
	c := mustNew(t, Options[string, string]{Name: "contains", AccessTTL: time.Second, Clock: clk})

	_ = c.Put(ctx, "x", "v")
	clk.add(700 * time.Millisecond)
	if !c.Contains("x") {
		t.Fatal("fresh entry must be contained")
	}
	// Contains must not have reset the idle window.
	clk.add(500 * time.Millisecond)
	if c.Contains("x") {
		t.Fatal("entry must have idled out; Contains must not refresh it")
	}
	if c.Contains("absent") {
		t.Fatal("absent key must not be contained")
	}
}

// InvalidateAll drops data and tracker state but leaves metrics alone.
func TestCache_InvalidateAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := mustNew(t, Options[string, int]{Name: "invall", MaxSize: 8})
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Put(ctx, k, 1)
	}
	before := c.Admin().Snapshot()

	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len want 0, got %d", c.Len())
	}
	after := c.Admin().Snapshot()
	if after.PutCount != before.PutCount {
		t.Fatal("InvalidateAll must not change metrics")
	}

	// The cache keeps working after a full clear.
	_ = c.Put(ctx, "d", 4)
	if v, ok := c.Get("d"); !ok || v != 4 {
		t.Fatalf("Get d after clear want 4, got %v ok=%v", v, ok)
	}
}

// Operations after Close fail fast with the closed kind.
func TestCache_ClosedFailsFast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := mustNew(t, Options[string, int]{Name: "closed"})
	_ = c.Put(ctx, "a", 1)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close must be a no-op, got %v", err)
	}

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get after Close must miss")
	}
	if err := c.Put(ctx, "b", 2); !IsClosed(err) {
		t.Fatalf("Put after Close want closed kind, got %v", err)
	}
	if _, err := c.GetOrLoad(ctx, "b"); !IsClosed(err) {
		t.Fatalf("GetOrLoad after Close want closed kind, got %v", err)
	}
	if _, err := c.Invalidate(ctx, "a"); !IsClosed(err) {
		t.Fatalf("Invalidate after Close want closed kind, got %v", err)
	}
	if err := c.WarmUp(ctx); !IsClosed(err) {
		t.Fatalf("WarmUp after Close want closed kind, got %v", err)
	}
}

// Construction rejects invalid configuration.
func TestCache_ConfigValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Options[string, int]{MaxSize: -1}); !IsConfigError(err) {
		t.Fatalf("negative maxSize want config error, got %v", err)
	}
	if _, err := New(Options[string, int]{AccessTTL: -time.Second}); !IsConfigError(err) {
		t.Fatalf("negative AccessTTL want config error, got %v", err)
	}
	if _, err := New(Options[string, int]{WriteStrategy: WriteThrough}); !IsConfigError(err) {
		t.Fatalf("write-through without writer want config error, got %v", err)
	}
	if _, err := New(Options[string, int]{RefreshStrategy: RefreshAhead}); !IsConfigError(err) {
		t.Fatalf("refresh-ahead without loader want config error, got %v", err)
	}
	if _, err := New(Options[string, int]{
		RefreshStrategy:    RefreshAhead,
		RefreshAheadFactor: 1.5,
		Loader:             LoaderFunc[string, int](func(context.Context, string) (int, error) { return 0, nil }),
	}); !IsConfigError(err) {
		t.Fatal("refresh factor outside (0,1) want config error")
	}
	if _, err := New(Options[string, int]{EvictionPolicy: "BOGUS"}); !IsConfigError(err) {
		t.Fatal("unknown eviction policy want config error")
	}
}

// The size bound holds after every put.
func TestCache_SizeNeverExceedsMax(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := mustNew(t, Options[int, int]{Name: "bound", MaxSize: 10})
	for i := 0; i < 100; i++ {
		if err := c.Put(ctx, i, i); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
		if n := c.Len(); n > 10 {
			t.Fatalf("size %d exceeds bound after put %d", n, i)
		}
	}
	if c.Len() != 10 {
		t.Fatalf("Len want 10, got %d", c.Len())
	}
	if c.Capacity() != 10 {
		t.Fatalf("Capacity want 10, got %d", c.Capacity())
	}
}

// WarmUp bulk-installs LoadAll without per-entry eviction churn.
func TestCache_WarmUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bl := bulkLoader{all: map[int]string{1: "a", 2: "b", 3: "c"}}
	c := mustNew(t, Options[int, string]{Name: "warm", MaxSize: 8, Loader: bl})

	if err := c.WarmUp(ctx); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len want 3, got %d", c.Len())
	}
	if v, ok := c.Get(2); !ok || v != "b" {
		t.Fatalf("Get 2 want b, got %v ok=%v", v, ok)
	}
}

// bulkLoader implements both Loader and BulkLoader.
type bulkLoader struct {
	all map[int]string
}

func (b bulkLoader) Load(_ context.Context, k int) (string, error) { return b.all[k], nil }
func (b bulkLoader) LoadAll(context.Context) (map[int]string, error) {
	out := make(map[int]string, len(b.all))
	for k, v := range b.all {
		out[k] = v
	}
	return out, nil
}
