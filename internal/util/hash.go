// Package util contains internal helpers shared by the cache packages
// (key hashing, shard sizing, padded counters).
package util

import "fmt"

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// HashKey hashes common key types with 64-bit FNV-1a for shard selection.
// Supported: string, []byte, [16]byte, [32]byte, [64]byte, every int/uint width,
// uintptr, and fmt.Stringer as a last resort. Unsupported key types
// panic: silently degenerate hashing would funnel a whole cache into one
// shard, which is far harder to notice than a panic at first use.
func HashKey[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return hashBytes([]byte(v))
	case []byte:
		return hashBytes(v)
	case [16]byte:
		return hashBytes(v[:])
	case [32]byte:
		return hashBytes(v[:])
	case [64]byte:
		return hashBytes(v[:])
	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))
	case fmt.Stringer:
		return hashBytes([]byte(v.String()))
	default:
		panic(fmt.Sprintf("util.HashKey: unsupported key type %T; convert the key to string", k))
	}
}

func hashBytes(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// hashUint64 hashes the 8 little-endian bytes of u without allocating.
func hashUint64(u uint64) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= u & 0xff
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
