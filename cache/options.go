// options.go: configuration surface, enums, and normalization.
package cache

import (
	"strings"
	"time"

	"github.com/agilira/go-timecache"

	"github.com/IvanBrykalov/collcache/policy"
	"github.com/IvanBrykalov/collcache/policy/age"
	"github.com/IvanBrykalov/collcache/policy/fifo"
	"github.com/IvanBrykalov/collcache/policy/lfu"
	"github.com/IvanBrykalov/collcache/policy/lru"
	"github.com/IvanBrykalov/collcache/policy/random"
)

// EvictionPolicy selects the victim strategy by its string identifier.
type EvictionPolicy string

const (
	EvictLRU    EvictionPolicy = "LRU"
	EvictLFU    EvictionPolicy = "LFU"
	EvictFIFO   EvictionPolicy = "FIFO"
	EvictRandom EvictionPolicy = "RANDOM"
	// EvictTTL evicts the oldest entry by creation instant.
	EvictTTL EvictionPolicy = "TTL"
)

// ParseEvictionPolicy resolves a case-insensitive identifier.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch p := EvictionPolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case EvictLRU, EvictLFU, EvictFIFO, EvictRandom, EvictTTL:
		return p, nil
	default:
		return "", NewErrInvalidConfig("evictionPolicy", s, "unknown policy identifier")
	}
}

// RefreshStrategy controls when stale values are re-fetched.
type RefreshStrategy string

const (
	// RefreshOnMiss re-fetches only after an entry has expired.
	RefreshOnMiss RefreshStrategy = "ON_MISS"
	// RefreshAhead re-fetches in the background once an entry crosses a
	// configurable fraction of its access TTL.
	RefreshAhead RefreshStrategy = "REFRESH_AHEAD"
)

// ParseRefreshStrategy resolves a case-insensitive identifier.
func ParseRefreshStrategy(s string) (RefreshStrategy, error) {
	switch r := RefreshStrategy(strings.ToUpper(strings.TrimSpace(s))); r {
	case RefreshOnMiss, RefreshAhead:
		return r, nil
	default:
		return "", NewErrInvalidConfig("refreshStrategy", s, "unknown refresh strategy")
	}
}

// WriteStrategy controls how mutations reach the configured Writer.
type WriteStrategy string

const (
	ReadOnly     WriteStrategy = "READ_ONLY"
	WriteThrough WriteStrategy = "WRITE_THROUGH"
	WriteBehind  WriteStrategy = "WRITE_BEHIND"
)

// ParseWriteStrategy resolves a case-insensitive identifier.
func ParseWriteStrategy(s string) (WriteStrategy, error) {
	switch w := WriteStrategy(strings.ToUpper(strings.TrimSpace(s))); w {
	case ReadOnly, WriteThrough, WriteBehind:
		return w, nil
	default:
		return "", NewErrInvalidConfig("writeStrategy", s, "unknown write strategy")
	}
}

// ReferenceType selects how values are held (see refcell.go).
type ReferenceType string

const (
	RefStrong ReferenceType = "STRONG"
	RefSoft   ReferenceType = "SOFT"
	RefWeak   ReferenceType = "WEAK"
)

// ParseReferenceType resolves a case-insensitive identifier.
func ParseReferenceType(s string) (ReferenceType, error) {
	switch r := ReferenceType(strings.ToUpper(strings.TrimSpace(s))); r {
	case RefStrong, RefSoft, RefWeak:
		return r, nil
	default:
		return "", NewErrInvalidConfig("referenceType", s, "unknown reference type")
	}
}

// LoadStrategy controls where the loader runs on a miss.
type LoadStrategy string

const (
	// LoadSync runs the loader on the calling goroutine.
	LoadSync LoadStrategy = "SYNC"
	// LoadAsync runs the loader on a detached worker; callers without a
	// prior value wait on the shared promise.
	LoadAsync LoadStrategy = "ASYNC"
)

// ParseLoadStrategy resolves a case-insensitive identifier.
func ParseLoadStrategy(s string) (LoadStrategy, error) {
	switch l := LoadStrategy(strings.ToUpper(strings.TrimSpace(s))); l {
	case LoadSync, LoadAsync:
		return l, nil
	default:
		return "", NewErrInvalidConfig("loadStrategy", s, "unknown load strategy")
	}
}

// Clock provides time in UnixNano; injectable for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// systemClock reads the cached time source, which is much cheaper than
// time.Now() on the hot path.
type systemClock struct{}

func (systemClock) NowUnixNano() int64 { return timecache.CachedTimeNano() }

// Options configures a cache. The zero value is usable for an unbounded
// LRU cache with metrics enabled; New normalizes everything else through
// Validate.
type Options[K comparable, V any] struct {
	// Name identifies the cache in metrics, logs, and the management
	// registry. Empty defaults to "collcache".
	Name string

	// MaxSize bounds the entry count; 0 means unbounded.
	MaxSize int

	// Shards is the stripe count for the entry table. <=0 picks a
	// CPU-derived default; the value is rounded up to a power of two.
	Shards int

	// AccessTTL expires entries this long after their last access.
	// 0 disables idle expiry.
	AccessTTL time.Duration

	// AbsoluteTTL expires entries this long after creation regardless of
	// access. 0 disables the hard cap.
	AbsoluteTTL time.Duration

	// EvictionPolicy picks a built-in victim strategy. Ignored when
	// Policy is set. Empty defaults to LRU.
	EvictionPolicy EvictionPolicy

	// Policy overrides EvictionPolicy with a custom tracker factory.
	Policy policy.Factory[K]

	// ReferenceType selects strong, soft, or weak value cells. Soft and
	// weak cells enable the background reclaimer.
	ReferenceType ReferenceType

	// Loader fills misses. Required for GetOrLoad and refresh-ahead.
	Loader Loader[K, V]

	// Writer receives mutations per WriteStrategy.
	Writer Writer[K, V]

	// WriteStrategy defaults to READ_ONLY. THROUGH and BEHIND require a
	// Writer.
	WriteStrategy WriteStrategy

	// LoadStrategy defaults to SYNC.
	LoadStrategy LoadStrategy

	// RefreshStrategy defaults to ON_MISS. REFRESH_AHEAD requires a
	// Loader; it only acts on entries with a positive idle window
	// (AccessTTL or a PutWithTTL override).
	RefreshStrategy RefreshStrategy

	// RefreshAheadFactor is the fraction of AccessTTL after which an
	// entry becomes refresh-eligible. Must sit in (0,1); 0 defaults to
	// 0.75.
	RefreshAheadFactor float64

	// RefreshAheadWorkers bounds concurrent background refreshes.
	// <=0 defaults to 1.
	RefreshAheadWorkers int

	// Write-behind tuning. Zero values take the defaults noted on each
	// field.
	WriteBehindBatchSize  int           // drain threshold; default 16
	WriteBehindDelay      time.Duration // drain interval; default 1s
	WriteBehindMaxRetries int           // retries per batch after the first attempt; <=0 default 3
	WriteBehindRetryDelay time.Duration // backoff between attempts; default 1s
	WriteBehindQueueSize  int           // pending-op bound, producers block when full; default 1024

	// EnableAutoCleanup starts the expired-entry sweep loop.
	EnableAutoCleanup bool
	// CleanupInterval is the sweep period; default 1 minute.
	CleanupInterval time.Duration

	// ReclaimInterval is the soft/weak cell sweep period; default 5s.
	ReclaimInterval time.Duration

	// DisableMetrics turns the counter sink off entirely.
	DisableMetrics bool

	// EnableManagement registers the cache's Admin view in the global
	// management registry under its name (see LookupAdmin).
	EnableManagement bool

	// ShutdownTimeout caps Close's write-behind flush; default 5s.
	// Items still queued at the deadline are dropped with a warning.
	ShutdownTimeout time.Duration

	// Clock overrides the time source (tests). Nil uses the cached
	// system clock.
	Clock Clock

	// Logger receives worker diagnostics. Nil discards them.
	Logger Logger
}

// DefaultOptions returns the baseline configuration: unbounded LRU,
// strong references, synchronous loads, read-only persistence.
func DefaultOptions[K comparable, V any]() Options[K, V] {
	return Options[K, V]{
		Name:            "collcache",
		EvictionPolicy:  EvictLRU,
		ReferenceType:   RefStrong,
		WriteStrategy:   ReadOnly,
		LoadStrategy:    LoadSync,
		RefreshStrategy: RefreshOnMiss,
	}
}

// Validate checks the options and applies defaults in place. It is called
// by New; standalone use is handy to inspect the normalized form.
func (o *Options[K, V]) Validate() error {
	if o.Name == "" {
		o.Name = "collcache"
	}
	if o.MaxSize < 0 {
		return NewErrInvalidConfig("maxSize", o.MaxSize, "must be >= 0 (0 = unbounded)")
	}
	if o.AccessTTL < 0 {
		return NewErrInvalidConfig("timeoutSec", o.AccessTTL, "must be >= 0")
	}
	if o.AbsoluteTTL < 0 {
		return NewErrInvalidConfig("forcedTimeoutSec", o.AbsoluteTTL, "must be >= 0")
	}

	if o.EvictionPolicy == "" {
		o.EvictionPolicy = EvictLRU
	} else if p, err := ParseEvictionPolicy(string(o.EvictionPolicy)); err != nil {
		return err
	} else {
		o.EvictionPolicy = p
	}
	if o.ReferenceType == "" {
		o.ReferenceType = RefStrong
	} else if r, err := ParseReferenceType(string(o.ReferenceType)); err != nil {
		return err
	} else {
		o.ReferenceType = r
	}
	if o.WriteStrategy == "" {
		o.WriteStrategy = ReadOnly
	} else if w, err := ParseWriteStrategy(string(o.WriteStrategy)); err != nil {
		return err
	} else {
		o.WriteStrategy = w
	}
	if o.LoadStrategy == "" {
		o.LoadStrategy = LoadSync
	} else if l, err := ParseLoadStrategy(string(o.LoadStrategy)); err != nil {
		return err
	} else {
		o.LoadStrategy = l
	}
	if o.RefreshStrategy == "" {
		o.RefreshStrategy = RefreshOnMiss
	} else if r, err := ParseRefreshStrategy(string(o.RefreshStrategy)); err != nil {
		return err
	} else {
		o.RefreshStrategy = r
	}

	if o.WriteStrategy != ReadOnly && o.Writer == nil {
		return NewErrInvalidConfig("writeStrategy", o.WriteStrategy, "requires a Writer")
	}
	if o.RefreshStrategy == RefreshAhead {
		if o.Loader == nil {
			return NewErrInvalidConfig("refreshStrategy", o.RefreshStrategy, "requires a Loader")
		}
		if o.RefreshAheadFactor == 0 {
			o.RefreshAheadFactor = 0.75
		}
		if o.RefreshAheadFactor <= 0 || o.RefreshAheadFactor >= 1 {
			return NewErrInvalidConfig("refreshAheadFactor", o.RefreshAheadFactor, "must be in (0,1)")
		}
		if o.RefreshAheadWorkers <= 0 {
			o.RefreshAheadWorkers = 1
		}
	}

	if o.WriteStrategy == WriteBehind {
		if o.WriteBehindBatchSize <= 0 {
			o.WriteBehindBatchSize = 16
		}
		if o.WriteBehindDelay <= 0 {
			o.WriteBehindDelay = time.Second
		}
		if o.WriteBehindMaxRetries <= 0 {
			o.WriteBehindMaxRetries = 3
		}
		if o.WriteBehindRetryDelay <= 0 {
			o.WriteBehindRetryDelay = time.Second
		}
		if o.WriteBehindQueueSize <= 0 {
			o.WriteBehindQueueSize = 1024
		}
	}

	if o.EnableAutoCleanup && o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Minute
	}
	if o.ReclaimInterval <= 0 {
		o.ReclaimInterval = 5 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 5 * time.Second
	}

	if o.Clock == nil {
		o.Clock = systemClock{}
	}
	if o.Logger == nil {
		o.Logger = NoOpLogger{}
	}
	if o.Policy == nil {
		o.Policy = builtinPolicy[K](o.EvictionPolicy, o.Clock)
	}
	return nil
}

// builtinPolicy maps the enum to a tracker factory.
func builtinPolicy[K comparable](p EvictionPolicy, clk Clock) policy.Factory[K] {
	switch p {
	case EvictLFU:
		return lfu.New[K]()
	case EvictFIFO:
		return fifo.New[K]()
	case EvictRandom:
		return random.New[K]()
	case EvictTTL:
		return age.New[K](clk.NowUnixNano)
	default:
		return lru.New[K]()
	}
}
