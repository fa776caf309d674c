// shard.go: one stripe of the entry table.
package cache

import "sync"

// shard is a map stripe under its own RWMutex. Shards hold entries only;
// eviction ordering lives in the cache-level tracker, so shard locks are
// never taken before the tracker lock is already held (lock order:
// tracker → shard) or on their own for plain reads and installs.
type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*entry[V]
}

func newShard[K comparable, V any]() *shard[K, V] {
	return &shard[K, V]{m: make(map[K]*entry[V])}
}

func (s *shard[K, V]) get(k K) (*entry[V], bool) {
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	return e, ok
}

// put installs or replaces and reports whether the key already existed.
func (s *shard[K, V]) put(k K, e *entry[V]) bool {
	s.mu.Lock()
	_, existed := s.m[k]
	s.m[k] = e
	s.mu.Unlock()
	return existed
}

func (s *shard[K, V]) remove(k K) (*entry[V], bool) {
	s.mu.Lock()
	e, ok := s.m[k]
	if ok {
		delete(s.m, k)
	}
	s.mu.Unlock()
	return e, ok
}

// removeIf deletes k only while it still maps to want. Expiry and cell
// reclamation use it so a concurrent replacement is never torn down.
func (s *shard[K, V]) removeIf(k K, want *entry[V]) bool {
	s.mu.Lock()
	cur, ok := s.m[k]
	if ok && cur == want {
		delete(s.m, k)
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()
	return false
}

// replaceIfPresent swaps in a fresh entry carrying the old access
// metadata. Used by refresh-ahead: value and creation instant change,
// recency does not, and an already-removed key is never resurrected.
func (s *shard[K, V]) replaceIfPresent(k K, build func(old *entry[V]) *entry[V]) bool {
	s.mu.Lock()
	old, ok := s.m[k]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.m[k] = build(old)
	s.mu.Unlock()
	return true
}

func (s *shard[K, V]) len() int {
	s.mu.RLock()
	n := len(s.m)
	s.mu.RUnlock()
	return n
}

func (s *shard[K, V]) clear() int {
	s.mu.Lock()
	n := len(s.m)
	s.m = make(map[K]*entry[V])
	s.mu.Unlock()
	return n
}

// pair is a point-in-time (key, entry) copy used by the sweep loops.
type pair[K comparable, V any] struct {
	key K
	ent *entry[V]
}

// snapshotPairs copies the resident pairs under the read lock so sweeps
// can examine entries without holding it.
func (s *shard[K, V]) snapshotPairs(buf []pair[K, V]) []pair[K, V] {
	s.mu.RLock()
	for k, e := range s.m {
		buf = append(buf, pair[K, V]{key: k, ent: e})
	}
	s.mu.RUnlock()
	return buf
}
