// Package random implements uniform random eviction.
package random

import (
	"math/rand/v2"

	"github.com/IvanBrykalov/collcache/policy"
)

// rnd keeps a dense key slice plus an index map so membership updates and
// uniform sampling are both O(1) (swap-with-last removal).
type rnd[K comparable] struct {
	keys []K
	idx  map[K]int
}

// New returns a Factory producing random-victim trackers.
func New[K comparable]() policy.Factory[K] {
	return func() policy.Tracker[K] {
		return &rnd[K]{idx: make(map[K]int)}
	}
}

// OnAccess is a no-op: random eviction ignores access patterns.
func (p *rnd[K]) OnAccess(K) {}

func (p *rnd[K]) OnInsert(k K) {
	if _, ok := p.idx[k]; ok {
		return
	}
	p.idx[k] = len(p.keys)
	p.keys = append(p.keys, k)
}

func (p *rnd[K]) OnRemove(k K) {
	i, ok := p.idx[k]
	if !ok {
		return
	}
	last := len(p.keys) - 1
	if i != last {
		p.keys[i] = p.keys[last]
		p.idx[p.keys[i]] = i
	}
	var zero K
	p.keys[last] = zero
	p.keys = p.keys[:last]
	delete(p.idx, k)
}

// Victim returns a uniformly random tracked key.
func (p *rnd[K]) Victim() (K, bool) {
	if len(p.keys) == 0 {
		var zero K
		return zero, false
	}
	return p.keys[rand.IntN(len(p.keys))], true
}

func (p *rnd[K]) Clear() {
	p.keys = nil
	clear(p.idx)
}
