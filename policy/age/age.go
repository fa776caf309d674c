// Package age implements oldest-entry eviction: the victim is the key
// with the earliest wall-clock creation instant. Unlike FIFO it follows
// the creation timestamp, so replacing a value (which re-creates the
// entry) moves the key to the young end.
package age

import "github.com/IvanBrykalov/collcache/policy"

type tracker[K comparable] struct {
	now     func() int64
	created map[K]int64
}

// New returns a Factory producing age trackers. now must yield
// monotonic-enough nanoseconds (the cache passes its Clock).
func New[K comparable](now func() int64) policy.Factory[K] {
	return func() policy.Tracker[K] {
		return &tracker[K]{now: now, created: make(map[K]int64)}
	}
}

// OnAccess is a no-op: age depends only on creation time.
func (p *tracker[K]) OnAccess(K) {}

// OnInsert stamps the key with the current instant. Re-insertion (value
// replacement) restamps it.
func (p *tracker[K]) OnInsert(k K) {
	p.created[k] = p.now()
}

func (p *tracker[K]) OnRemove(k K) {
	delete(p.created, k)
}

// Victim returns the key with the earliest creation instant.
func (p *tracker[K]) Victim() (K, bool) {
	var (
		victim K
		best   int64
		found  bool
	)
	for k, at := range p.created {
		if !found || at < best {
			victim, best, found = k, at, true
		}
	}
	return victim, found
}

func (p *tracker[K]) Clear() {
	clear(p.created)
}
