// hotreload.go: dynamic configuration with Argus integration.
//
// A watched config file drives the runtime-adjustable subset of the
// configuration surface: both TTLs and the refresh-ahead factor apply
// atomically to the running cache. Structural settings (maxSize,
// evictionPolicy, writeStrategy, referenceType, shard count, worker
// pools) require reconstruction; changes to them are logged and left
// unapplied.
package cache

import (
	"math"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// RuntimeConfig is the hot-applicable slice of the configuration.
type RuntimeConfig struct {
	AccessTTL          time.Duration
	AbsoluteTTL        time.Duration
	RefreshAheadFactor float64
}

// HotConfig watches a configuration file and applies changes to a
// running cache.
type HotConfig[K comparable, V any] struct {
	c       *cache[K, V]
	watcher *argus.Watcher
	log     Logger

	mu      sync.RWMutex
	current RuntimeConfig

	// OnReload, when set, is called after a successful apply. Keep it
	// fast and non-blocking.
	OnReload func(old, new RuntimeConfig)
}

// HotConfigOptions configures the watcher.
type HotConfigOptions struct {
	// ConfigPath is the file to watch. JSON, YAML, TOML, HCL, INI, and
	// Properties formats are supported by the watcher.
	ConfigPath string

	// PollInterval is the change-detection period. Default 1s, floor
	// 100ms.
	PollInterval time.Duration

	// OnReload is called after each successful apply.
	OnReload func(old, new RuntimeConfig)

	// Logger for reload diagnostics; nil falls back to the cache's.
	Logger Logger
}

// NewHotConfig wires a watcher to the target cache. The target must be a
// cache built by New in this package.
func NewHotConfig[K comparable, V any](target Cache[K, V], opts HotConfigOptions) (*HotConfig[K, V], error) {
	impl, ok := target.(*cache[K, V])
	if !ok {
		return nil, NewErrInvalidConfig("target", target, "not a cache constructed by this package")
	}
	if opts.ConfigPath == "" {
		return nil, NewErrInvalidConfig("configPath", "", "required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = impl.log
	}

	hc := &HotConfig[K, V]{
		c:        impl,
		log:      opts.Logger,
		OnReload: opts.OnReload,
		current: RuntimeConfig{
			AccessTTL:          time.Duration(impl.accessTTL.Load()),
			AbsoluteTTL:        time.Duration(impl.absoluteTTL.Load()),
			RefreshAheadFactor: impl.refreshFactor(),
		},
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleChange,
		argus.Config{PollInterval: opts.PollInterval})
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher
	return hc, nil
}

// Start begins watching. Safe to call when already running.
func (hc *HotConfig[K, V]) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops the watcher.
func (hc *HotConfig[K, V]) Stop() error {
	return hc.watcher.Stop()
}

// Current returns the last applied runtime configuration.
func (hc *HotConfig[K, V]) Current() RuntimeConfig {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.current
}

// handleChange is the watcher callback.
func (hc *HotConfig[K, V]) handleChange(data map[string]interface{}) {
	section := cacheSection(data)

	hc.mu.Lock()
	old := hc.current
	next := old

	if v, ok := section[cfgTimeoutSec]; ok {
		if sec, ok := intValue(v); ok && sec >= 0 {
			next.AccessTTL = time.Duration(sec) * time.Second
		}
	}
	if v, ok := section[cfgForcedTimeoutSec]; ok {
		if sec, ok := intValue(v); ok && sec >= 0 {
			next.AbsoluteTTL = time.Duration(sec) * time.Second
		}
	}
	if v, ok := section[cfgRefreshAheadFactor]; ok {
		if f, ok := floatValue(v); ok && f > 0 && f < 1 {
			next.RefreshAheadFactor = f
		}
	}

	hc.c.accessTTL.Store(int64(next.AccessTTL))
	hc.c.absoluteTTL.Store(int64(next.AbsoluteTTL))
	hc.c.refreshFactorBits.Store(math.Float64bits(next.RefreshAheadFactor))
	hc.current = next
	hc.mu.Unlock()

	for _, key := range []string{
		cfgMaxSize, cfgEvictionPolicy, cfgWriteStrategy, cfgReferenceType,
		cfgLoadStrategy, cfgRefreshStrategy, cfgRefreshAheadThreads,
		cfgWriteBehindBatchSize, cfgWriteBehindDelayMs,
		cfgWriteBehindMaxRetries, cfgWriteBehindRetryDelayMs,
	} {
		if _, ok := section[key]; ok {
			hc.log.Warn("config change requires cache reconstruction, not applied",
				"cache", hc.c.opt.Name, "key", key)
		}
	}

	if next != old {
		hc.log.Info("runtime configuration reloaded", "cache", hc.c.opt.Name,
			"accessTTL", next.AccessTTL, "absoluteTTL", next.AbsoluteTTL,
			"refreshAheadFactor", next.RefreshAheadFactor)
	}
	if hc.OnReload != nil {
		hc.OnReload(old, next)
	}
}

// cacheSection tolerates both nested ({"cache": {...}}) and flat files.
func cacheSection(data map[string]interface{}) map[string]interface{} {
	if nested, ok := data["cache"].(map[string]interface{}); ok {
		return nested
	}
	return data
}
