package metrics

import (
	"encoding/json"
	"fmt"
)

// Snapshot is an immutable copy of the sink counters at one instant plus
// the size bounds of the owning cache. The JSON field names are stable
// and consumed by external tooling; do not rename them.
type Snapshot struct {
	CacheName        string `json:"cacheName"`
	Timestamp        int64  `json:"timestamp"`
	RequestCount     uint64 `json:"requestCount"`
	HitCount         uint64 `json:"hitCount"`
	MissCount        uint64 `json:"missCount"`
	LoadSuccessCount uint64 `json:"loadSuccessCount"`
	LoadFailureCount uint64 `json:"loadFailureCount"`
	EvictionCount    uint64 `json:"evictionCount"`
	PutCount         uint64 `json:"putCount"`
	RemoveCount      uint64 `json:"removeCount"`

	HitRate               float64 `json:"hitRate"`
	MissRate              float64 `json:"missRate"`
	AverageLoadTimeMillis float64 `json:"averageLoadTimeMillis"`
	TotalLoadTimeMillis   int64   `json:"totalLoadTimeMillis"`
	TotalLoadNanos        int64   `json:"-"`

	CurrentSize int     `json:"currentSize"`
	MaxSize     int     `json:"maxSize"`
	FillPercent float64 `json:"fillPercent"`
}

// refreshDerived recomputes the rate fields from the raw counters.
func (s *Snapshot) refreshDerived() {
	lookups := s.HitCount + s.MissCount
	if lookups == 0 {
		lookups = 1
	}
	s.HitRate = float64(s.HitCount) / float64(lookups)
	s.MissRate = float64(s.MissCount) / float64(lookups)

	loads := s.LoadSuccessCount
	if loads == 0 {
		loads = 1
	}
	s.AverageLoadTimeMillis = float64(s.TotalLoadNanos) / float64(loads) / 1e6
	s.TotalLoadTimeMillis = s.TotalLoadNanos / 1e6
	s.FillPercent = fillPercent(s.CurrentSize, s.MaxSize)
}

func fillPercent(current, max int) float64 {
	if current < 0 || max <= 0 {
		return -1
	}
	return 100 * float64(current) / float64(max)
}

// AverageLoadNanos returns the mean successful-load latency.
func (s Snapshot) AverageLoadNanos() int64 {
	loads := s.LoadSuccessCount
	if loads == 0 {
		loads = 1
	}
	return s.TotalLoadNanos / int64(loads)
}

// FailureRate returns failed loads over all loads.
func (s Snapshot) FailureRate() float64 {
	loads := s.LoadSuccessCount + s.LoadFailureCount
	if loads == 0 {
		loads = 1
	}
	return float64(s.LoadFailureCount) / float64(loads)
}

// Diff returns the component-wise difference s − earlier, clamped at
// zero, with the later of the two timestamps and the receiver's size bounds.
// Rates are recomputed from the diffed counters, so the result reads as
// "what happened between the two snapshots".
func (s Snapshot) Diff(earlier Snapshot) Snapshot {
	d := Snapshot{
		CacheName:        s.CacheName,
		Timestamp:        maxInt64(s.Timestamp, earlier.Timestamp),
		RequestCount:     subClamp(s.RequestCount, earlier.RequestCount),
		HitCount:         subClamp(s.HitCount, earlier.HitCount),
		MissCount:        subClamp(s.MissCount, earlier.MissCount),
		LoadSuccessCount: subClamp(s.LoadSuccessCount, earlier.LoadSuccessCount),
		LoadFailureCount: subClamp(s.LoadFailureCount, earlier.LoadFailureCount),
		EvictionCount:    subClamp(s.EvictionCount, earlier.EvictionCount),
		PutCount:         subClamp(s.PutCount, earlier.PutCount),
		RemoveCount:      subClamp(s.RemoveCount, earlier.RemoveCount),
		CurrentSize:      s.CurrentSize,
		MaxSize:          s.MaxSize,
	}
	if s.TotalLoadNanos > earlier.TotalLoadNanos {
		d.TotalLoadNanos = s.TotalLoadNanos - earlier.TotalLoadNanos
	}
	d.refreshDerived()
	return d
}

func subClamp(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// JSON serializes the snapshot with the stable field names.
func (s Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Summary renders a short human-readable report.
func (s Snapshot) Summary() string {
	fill := "unbounded"
	if s.FillPercent >= 0 {
		fill = fmt.Sprintf("%.1f%%", s.FillPercent)
	}
	return fmt.Sprintf(
		"%s: size=%d/%d (%s) requests=%d hits=%d (%.1f%%) misses=%d loads=%d ok/%d failed (avg %.2fms) evictions=%d puts=%d removes=%d",
		s.CacheName, s.CurrentSize, s.MaxSize, fill,
		s.RequestCount, s.HitCount, s.HitRate*100, s.MissCount,
		s.LoadSuccessCount, s.LoadFailureCount, s.AverageLoadTimeMillis,
		s.EvictionCount, s.PutCount, s.RemoveCount,
	)
}
