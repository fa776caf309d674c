// Package metrics provides the lock-free counter sink for the cache
// engine: atomic counters, immutable snapshots with component-wise diffs,
// JSON and human-readable summaries, and health verdicts against
// configurable thresholds.
package metrics

import (
	"time"

	"github.com/IvanBrykalov/collcache/internal/util"
)

// Sink accumulates cache counters. All record methods are safe for
// concurrent use and every method tolerates a nil receiver, so a cache
// running with metrics disabled simply carries a nil *Sink.
//
// Counters are padded to separate cache lines: hit and miss are bumped
// from unrelated goroutines and must not false-share.
type Sink struct {
	name string
	now  func() int64

	requests    util.PaddedUint64
	hits        util.PaddedUint64
	misses      util.PaddedUint64
	loadSuccess util.PaddedUint64
	loadFailure util.PaddedUint64
	loadNanos   util.PaddedInt64
	evictions   util.PaddedUint64
	puts        util.PaddedUint64
	removes     util.PaddedUint64

	// lastStamp enforces strictly monotonic snapshot timestamps even if
	// the clock is coarse enough to repeat.
	lastStamp util.PaddedInt64
}

// NewSink creates a sink for the named cache. now supplies nanoseconds
// since epoch; nil falls back to time.Now.
func NewSink(name string, now func() int64) *Sink {
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}
	return &Sink{name: name, now: now}
}

// Name returns the cache name the sink was created with.
func (s *Sink) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// RecordRequest counts one lookup request. Requests are bumped at the top
// of the operation, before the hit/miss outcome is known, so a concurrent
// snapshot may briefly read requests > hits+misses.
func (s *Sink) RecordRequest() {
	if s == nil {
		return
	}
	s.requests.Add(1)
}

// RecordHit counts a present-and-fresh lookup.
func (s *Sink) RecordHit() {
	if s == nil {
		return
	}
	s.hits.Add(1)
}

// RecordMiss counts an absent, expired, or cleared lookup.
func (s *Sink) RecordMiss() {
	if s == nil {
		return
	}
	s.misses.Add(1)
}

// RecordLoadSuccess counts a successful loader invocation and its latency.
func (s *Sink) RecordLoadSuccess(nanos int64) {
	if s == nil {
		return
	}
	s.loadSuccess.Add(1)
	if nanos > 0 {
		s.loadNanos.Add(nanos)
	}
}

// RecordLoadFailure counts a failed loader invocation.
func (s *Sink) RecordLoadFailure() {
	if s == nil {
		return
	}
	s.loadFailure.Add(1)
}

// RecordEviction counts n entries removed by capacity, expiry, or cell
// reclamation.
func (s *Sink) RecordEviction(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.evictions.Add(uint64(n))
}

// RecordPut counts an install or replace.
func (s *Sink) RecordPut() {
	if s == nil {
		return
	}
	s.puts.Add(1)
}

// RecordRemove counts an explicit invalidation.
func (s *Sink) RecordRemove() {
	if s == nil {
		return
	}
	s.removes.Add(1)
}

// Reset zeroes every counter. Snapshot timestamps stay monotonic across
// resets.
func (s *Sink) Reset() {
	if s == nil {
		return
	}
	s.requests.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
	s.loadSuccess.Store(0)
	s.loadFailure.Store(0)
	s.loadNanos.Store(0)
	s.evictions.Store(0)
	s.puts.Store(0)
	s.removes.Store(0)
}

// stamp returns a strictly increasing nanosecond timestamp for this sink.
func (s *Sink) stamp() int64 {
	for {
		now := s.now()
		last := s.lastStamp.Load()
		if now <= last {
			now = last + 1
		}
		if s.lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

// Snapshot captures the counters together with the caller-supplied size
// bounds. Each counter is read atomically; the set is not one global
// atomic cut, which is fine for observability purposes.
func (s *Sink) Snapshot(currentSize, maxSize int) Snapshot {
	if s == nil {
		return Snapshot{CurrentSize: currentSize, MaxSize: maxSize, FillPercent: fillPercent(currentSize, maxSize)}
	}
	snap := Snapshot{
		CacheName:        s.name,
		Timestamp:        s.stamp(),
		RequestCount:     s.requests.Load(),
		HitCount:         s.hits.Load(),
		MissCount:        s.misses.Load(),
		LoadSuccessCount: s.loadSuccess.Load(),
		LoadFailureCount: s.loadFailure.Load(),
		EvictionCount:    s.evictions.Load(),
		PutCount:         s.puts.Load(),
		RemoveCount:      s.removes.Load(),
		TotalLoadNanos:   s.loadNanos.Load(),
		CurrentSize:      currentSize,
		MaxSize:          maxSize,
	}
	snap.refreshDerived()
	return snap
}
