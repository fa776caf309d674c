package metrics

import (
	"encoding/json"
	"testing"
	"time"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) now() int64          { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

// Counters accumulate and show up in snapshots with derived rates.
func TestSink_CountersAndRates(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: 1000}
	s := NewSink("test", clk.now)

	for i := 0; i < 3; i++ {
		s.RecordRequest()
	}
	s.RecordHit()
	s.RecordHit()
	s.RecordMiss()
	s.RecordLoadSuccess(int64(4 * time.Millisecond))
	s.RecordLoadSuccess(int64(2 * time.Millisecond))
	s.RecordLoadFailure()
	s.RecordEviction(2)
	s.RecordPut()
	s.RecordRemove()

	snap := s.Snapshot(5, 10)
	if snap.RequestCount != 3 || snap.HitCount != 2 || snap.MissCount != 1 {
		t.Fatalf("unexpected lookup counters: %+v", snap)
	}
	if snap.LoadSuccessCount != 2 || snap.LoadFailureCount != 1 {
		t.Fatalf("unexpected load counters: %+v", snap)
	}
	if snap.EvictionCount != 2 || snap.PutCount != 1 || snap.RemoveCount != 1 {
		t.Fatalf("unexpected mutation counters: %+v", snap)
	}
	if want := 2.0 / 3.0; snap.HitRate != want {
		t.Fatalf("hitRate want %v, got %v", want, snap.HitRate)
	}
	if want := 1.0 / 3.0; snap.MissRate != want {
		t.Fatalf("missRate want %v, got %v", want, snap.MissRate)
	}
	if snap.AverageLoadTimeMillis != 3 {
		t.Fatalf("averageLoadTimeMillis want 3, got %v", snap.AverageLoadTimeMillis)
	}
	if snap.CurrentSize != 5 || snap.MaxSize != 10 || snap.FillPercent != 50 {
		t.Fatalf("size fields wrong: %+v", snap)
	}
}

// Rates must not divide by zero on an empty sink.
func TestSink_EmptySnapshot(t *testing.T) {
	t.Parallel()

	s := NewSink("empty", nil)
	snap := s.Snapshot(0, 0)
	if snap.HitRate != 0 || snap.MissRate != 0 || snap.AverageLoadTimeMillis != 0 {
		t.Fatalf("empty snapshot must have zero rates: %+v", snap)
	}
	if snap.FillPercent != -1 {
		t.Fatalf("unbounded fillPercent want -1, got %v", snap.FillPercent)
	}
}

// Snapshot timestamps are strictly monotonic per sink, even when the
// clock stands still.
func TestSink_MonotonicTimestamps(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: 42}
	s := NewSink("mono", clk.now)

	prev := int64(0)
	for i := 0; i < 10; i++ {
		snap := s.Snapshot(0, 0)
		if snap.Timestamp <= prev {
			t.Fatalf("timestamp %d not after %d", snap.Timestamp, prev)
		}
		prev = snap.Timestamp
	}
}

// Diff yields component-wise non-negative differences with recomputed
// rates: 2 hits + 1 miss, then 1 hit + 2 misses → diff {hits=1,
// misses=2, requests=3, hitRate=1/3}.
func TestSnapshot_Diff(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: 1}
	s := NewSink("diff", clk.now)

	s.RecordRequest()
	s.RecordHit()
	s.RecordRequest()
	s.RecordHit()
	s.RecordRequest()
	s.RecordMiss()
	a := s.Snapshot(0, 0)

	clk.add(time.Second)
	s.RecordRequest()
	s.RecordHit()
	s.RecordRequest()
	s.RecordMiss()
	s.RecordRequest()
	s.RecordMiss()
	b := s.Snapshot(0, 0)

	d := b.Diff(a)
	if d.HitCount != 1 || d.MissCount != 2 || d.RequestCount != 3 {
		t.Fatalf("diff counters wrong: %+v", d)
	}
	if want := 1.0 / 3.0; d.HitRate != want {
		t.Fatalf("diff hitRate want %v, got %v", want, d.HitRate)
	}
	if d.Timestamp != b.Timestamp {
		t.Fatalf("diff timestamp must be the later instant")
	}

	// Reversed diff clamps to zero, never negative.
	r := a.Diff(b)
	if r.HitCount != 0 || r.MissCount != 0 || r.RequestCount != 0 {
		t.Fatalf("reversed diff must clamp to zero: %+v", r)
	}
}

// JSON serialization carries the stable field names.
func TestSnapshot_JSONFieldNames(t *testing.T) {
	t.Parallel()

	s := NewSink("json-cache", nil)
	s.RecordRequest()
	s.RecordHit()

	raw, err := s.Snapshot(3, 8).JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{
		"cacheName", "timestamp", "requestCount", "hitCount", "missCount",
		"loadSuccessCount", "loadFailureCount", "evictionCount",
		"hitRate", "missRate", "averageLoadTimeMillis", "totalLoadTimeMillis",
		"currentSize", "maxSize", "fillPercent",
	} {
		if _, ok := m[field]; !ok {
			t.Fatalf("JSON missing stable field %q: %s", field, raw)
		}
	}
	if m["cacheName"] != "json-cache" {
		t.Fatalf("cacheName want json-cache, got %v", m["cacheName"])
	}
}

// fillPercent is -1 for unbounded caches and proportional otherwise.
func TestSnapshot_FillPercent(t *testing.T) {
	t.Parallel()

	s := NewSink("fill", nil)
	if got := s.Snapshot(7, 0).FillPercent; got != -1 {
		t.Fatalf("unbounded want -1, got %v", got)
	}
	if got := s.Snapshot(-1, 10).FillPercent; got != -1 {
		t.Fatalf("negative size want -1, got %v", got)
	}
	if got := s.Snapshot(25, 100).FillPercent; got != 25 {
		t.Fatalf("want 25, got %v", got)
	}
}

// Reset zeroes counters; timestamps keep climbing.
func TestSink_Reset(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: 10}
	s := NewSink("reset", clk.now)
	s.RecordHit()
	s.RecordMiss()
	before := s.Snapshot(0, 0)

	s.Reset()
	after := s.Snapshot(0, 0)
	if after.HitCount != 0 || after.MissCount != 0 {
		t.Fatalf("counters must be zero after reset: %+v", after)
	}
	if after.Timestamp <= before.Timestamp {
		t.Fatal("timestamps must stay monotonic across reset")
	}
}

// A nil sink swallows everything and snapshots cleanly — caches with
// metrics disabled carry a nil *Sink.
func TestSink_NilSafe(t *testing.T) {
	t.Parallel()

	var s *Sink
	s.RecordRequest()
	s.RecordHit()
	s.RecordMiss()
	s.RecordLoadSuccess(1)
	s.RecordLoadFailure()
	s.RecordEviction(1)
	s.RecordPut()
	s.RecordRemove()
	s.Reset()

	snap := s.Snapshot(2, 4)
	if snap.CurrentSize != 2 || snap.MaxSize != 4 || snap.FillPercent != 50 {
		t.Fatalf("nil sink snapshot must still carry sizes: %+v", snap)
	}
}

func TestSnapshot_Summary(t *testing.T) {
	t.Parallel()

	s := NewSink("sum-cache", nil)
	s.RecordRequest()
	s.RecordHit()
	got := s.Snapshot(1, 2).Summary()
	if got == "" || !contains(got, "sum-cache") || !contains(got, "hits=1") {
		t.Fatalf("summary missing expected fragments: %q", got)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
