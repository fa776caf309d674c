// config.go: the string-keyed configuration surface.
//
// Caches are usually configured in code through Options, but deployments
// that drive them from config files (including the hot-reload watcher)
// speak in flat string keys. This file maps those keys onto Options.
package cache

import "time"

// Recognized configuration keys.
const (
	cfgTimeoutSec              = "timeoutSec"
	cfgForcedTimeoutSec        = "forcedTimeoutSec"
	cfgMaxSize                 = "maxSize"
	cfgEvictionPolicy          = "evictionPolicy"
	cfgRefreshStrategy         = "refreshStrategy"
	cfgRefreshAheadFactor      = "refreshAheadFactor"
	cfgRefreshAheadThreads     = "refreshAheadThreads"
	cfgWriteStrategy           = "writeStrategy"
	cfgWriteBehindBatchSize    = "writeBehindBatchSize"
	cfgWriteBehindDelayMs      = "writeBehindDelayMs"
	cfgWriteBehindMaxRetries   = "writeBehindMaxRetries"
	cfgWriteBehindRetryDelayMs = "writeBehindRetryDelayMs"
	cfgLoadStrategy            = "loadStrategy"
	cfgReferenceType           = "referenceType"
	cfgEnableMetrics           = "enableMetrics"
	cfgEnableJmx               = "enableJmx"
	cfgCacheName               = "cacheName"
	cfgEnableAutoCleanup       = "enableAutoCleanup"
	cfgCleanupIntervalMinutes  = "cleanupIntervalMinutes"
)

// ApplyConfigMap merges the recognized keys of data into o. Collaborators
// (Loader, Writer, Policy, Clock, Logger) never come from configuration
// and are left alone. Unknown keys are ignored so config files can carry
// sections for other components. Invalid numeric and enum values fail
// with the invalid-config kind; a cacheName that is not a string, or a
// flag that is not a bool, is ignored. Keys are applied in a fixed order
// and an error leaves the keys applied before the failing one in place,
// so validate afterwards.
func ApplyConfigMap[K comparable, V any](o *Options[K, V], data map[string]interface{}) error {
	if v, ok := data[cfgCacheName]; ok {
		if s, ok := v.(string); ok {
			o.Name = s
		}
	}
	if v, ok := data[cfgTimeoutSec]; ok {
		sec, ok := intValue(v)
		if !ok || sec < 0 {
			return NewErrInvalidConfig(cfgTimeoutSec, v, "must be an integer >= 0")
		}
		o.AccessTTL = time.Duration(sec) * time.Second
	}
	if v, ok := data[cfgForcedTimeoutSec]; ok {
		sec, ok := intValue(v)
		if !ok || sec < 0 {
			return NewErrInvalidConfig(cfgForcedTimeoutSec, v, "must be an integer >= 0")
		}
		o.AbsoluteTTL = time.Duration(sec) * time.Second
	}
	if v, ok := data[cfgMaxSize]; ok {
		n, ok := intValue(v)
		if !ok || n < 0 {
			return NewErrInvalidConfig(cfgMaxSize, v, "must be an integer >= 0 (0 = unbounded)")
		}
		o.MaxSize = n
	}
	if v, ok := data[cfgEvictionPolicy]; ok {
		s, _ := v.(string)
		p, err := ParseEvictionPolicy(s)
		if err != nil {
			return err
		}
		o.EvictionPolicy = p
	}
	if v, ok := data[cfgRefreshStrategy]; ok {
		s, _ := v.(string)
		r, err := ParseRefreshStrategy(s)
		if err != nil {
			return err
		}
		o.RefreshStrategy = r
	}
	if v, ok := data[cfgRefreshAheadFactor]; ok {
		f, ok := floatValue(v)
		if !ok || f <= 0 || f >= 1 {
			return NewErrInvalidConfig(cfgRefreshAheadFactor, v, "must be in (0,1)")
		}
		o.RefreshAheadFactor = f
	}
	if v, ok := data[cfgRefreshAheadThreads]; ok {
		n, ok := intValue(v)
		if !ok || n < 1 {
			return NewErrInvalidConfig(cfgRefreshAheadThreads, v, "must be an integer >= 1")
		}
		o.RefreshAheadWorkers = n
	}
	if v, ok := data[cfgWriteStrategy]; ok {
		s, _ := v.(string)
		w, err := ParseWriteStrategy(s)
		if err != nil {
			return err
		}
		o.WriteStrategy = w
	}
	if v, ok := data[cfgWriteBehindBatchSize]; ok {
		n, ok := intValue(v)
		if !ok || n < 1 {
			return NewErrInvalidConfig(cfgWriteBehindBatchSize, v, "must be an integer >= 1")
		}
		o.WriteBehindBatchSize = n
	}
	if v, ok := data[cfgWriteBehindDelayMs]; ok {
		n, ok := intValue(v)
		if !ok || n < 0 {
			return NewErrInvalidConfig(cfgWriteBehindDelayMs, v, "must be an integer >= 0")
		}
		o.WriteBehindDelay = time.Duration(n) * time.Millisecond
	}
	if v, ok := data[cfgWriteBehindMaxRetries]; ok {
		n, ok := intValue(v)
		if !ok || n < 0 {
			return NewErrInvalidConfig(cfgWriteBehindMaxRetries, v, "must be an integer >= 0")
		}
		o.WriteBehindMaxRetries = n
	}
	if v, ok := data[cfgWriteBehindRetryDelayMs]; ok {
		n, ok := intValue(v)
		if !ok || n < 0 {
			return NewErrInvalidConfig(cfgWriteBehindRetryDelayMs, v, "must be an integer >= 0")
		}
		o.WriteBehindRetryDelay = time.Duration(n) * time.Millisecond
	}
	if v, ok := data[cfgLoadStrategy]; ok {
		s, _ := v.(string)
		l, err := ParseLoadStrategy(s)
		if err != nil {
			return err
		}
		o.LoadStrategy = l
	}
	if v, ok := data[cfgReferenceType]; ok {
		s, _ := v.(string)
		r, err := ParseReferenceType(s)
		if err != nil {
			return err
		}
		o.ReferenceType = r
	}
	if v, ok := data[cfgEnableMetrics]; ok {
		if b, ok := boolValue(v); ok {
			o.DisableMetrics = !b
		}
	}
	if v, ok := data[cfgEnableJmx]; ok {
		if b, ok := boolValue(v); ok {
			o.EnableManagement = b
		}
	}
	if v, ok := data[cfgEnableAutoCleanup]; ok {
		if b, ok := boolValue(v); ok {
			o.EnableAutoCleanup = b
		}
	}
	if v, ok := data[cfgCleanupIntervalMinutes]; ok {
		n, ok := intValue(v)
		if !ok || n < 1 {
			return NewErrInvalidConfig(cfgCleanupIntervalMinutes, v, "must be an integer >= 1")
		}
		o.CleanupInterval = time.Duration(n) * time.Minute
	}
	return nil
}

// OptionsFromConfig builds Options from a flat config map on top of the
// defaults. Collaborators still have to be set in code afterwards.
func OptionsFromConfig[K comparable, V any](data map[string]interface{}) (Options[K, V], error) {
	o := DefaultOptions[K, V]()
	if err := ApplyConfigMap(&o, data); err != nil {
		return o, err
	}
	return o, nil
}

// Decoded config files disagree about number types (JSON gives float64,
// YAML gives int); accept both everywhere.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func floatValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func boolValue(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
