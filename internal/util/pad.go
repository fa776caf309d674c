package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a safe default for current CPUs; the runtime's own
// constant is unexported.
const CacheLineSize = 64

// PaddedUint64 is an atomic uint64 padded to exactly one cache line.
// Metric counters that are bumped from many goroutines each get their own
// line so independent increments do not false-share.
type PaddedUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

// PaddedInt64 is the signed counterpart (load-time accumulators).
type PaddedInt64 struct {
	atomic.Int64
	_ [CacheLineSize - 8]byte
}

// Compile-time size checks: each padded counter must occupy one line.
var (
	_ [CacheLineSize - int(unsafe.Sizeof(PaddedUint64{}))]byte
	_ [CacheLineSize - int(unsafe.Sizeof(PaddedInt64{}))]byte
)
