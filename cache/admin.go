// admin.go: the observation surface and the management registry.
package cache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/IvanBrykalov/collcache/metrics"
)

// Admin is a read-mostly view over one cache: snapshots, serializations,
// health verdicts, and metrics reset. Values are cheap to copy.
type Admin struct {
	name     string
	snapshot func() metrics.Snapshot
	reset    func()
}

// NewAdmin builds an Admin view from a snapshot source and a reset hook.
// The cache constructs its own view; this is for sibling components
// (the ordered cache, external adapters) that carry a metrics sink of
// their own.
func NewAdmin(name string, snapshot func() metrics.Snapshot, reset func()) Admin {
	if reset == nil {
		reset = func() {}
	}
	return Admin{name: name, snapshot: snapshot, reset: reset}
}

// Name returns the cache name.
func (a Admin) Name() string { return a.name }

// Snapshot captures the current counters and size bounds.
func (a Admin) Snapshot() metrics.Snapshot { return a.snapshot() }

// JSON serializes a fresh snapshot with the stable field names.
func (a Admin) JSON() ([]byte, error) { return a.snapshot().JSON() }

// Summary renders a fresh snapshot for humans.
func (a Admin) Summary() string { return a.snapshot().Summary() }

// Health judges a fresh snapshot against the thresholds.
func (a Admin) Health(t metrics.Thresholds) metrics.Verdict {
	return metrics.Evaluate(a.snapshot(), t)
}

// ResetMetrics zeroes the counters.
func (a Admin) ResetMetrics() { a.reset() }

// ManagementName builds the hierarchical identifier
// "<domain>:type=<type>,name=<sanitized-name>" for this cache.
func (a Admin) ManagementName(domain, typ string) string {
	return fmt.Sprintf("%s:type=%s,name=%s", domain, typ, SanitizeName(a.name))
}

// SanitizeName replaces the characters that are structural in
// hierarchical identifiers (':', ',', '=', '"', '*', '?') with
// underscores.
func SanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', ',', '=', '"', '*', '?':
			return '_'
		default:
			return r
		}
	}, s)
}

// ManagementDomain is the default registry domain.
const ManagementDomain = "collcache"

// adminRegistry holds the Admin views of caches constructed with
// EnableManagement, keyed by cache name.
var adminRegistry sync.Map

func registerAdmin(a Admin) {
	adminRegistry.Store(a.name, a)
}

func unregisterAdmin(name string) {
	adminRegistry.Delete(name)
}

// LookupAdmin returns the registered Admin for a cache name.
func LookupAdmin(name string) (Admin, bool) {
	v, ok := adminRegistry.Load(name)
	if !ok {
		return Admin{}, false
	}
	return v.(Admin), true
}

// Admins lists every registered Admin view.
func Admins() []Admin {
	var out []Admin
	adminRegistry.Range(func(_, v any) bool {
		out = append(out, v.(Admin))
		return true
	})
	return out
}
