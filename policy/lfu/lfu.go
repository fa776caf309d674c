// Package lfu implements least-frequently-used eviction with
// earliest-insertion tie-breaking.
package lfu

import "github.com/IvanBrykalov/collcache/policy"

type record struct {
	count uint64
	seq   uint64 // insertion order, breaks count ties
}

// lfu counts accesses per key. Victim selection is a linear scan over the
// tracked set; O(1) bookkeeping, O(n) victim. Fine up to the cache sizes
// this engine targets — a bucketed frequency list can replace the scan
// behind the same contract if it ever shows up in profiles.
type lfu[K comparable] struct {
	recs map[K]*record
	seq  uint64
}

// New returns a Factory producing LFU trackers.
func New[K comparable]() policy.Factory[K] {
	return func() policy.Tracker[K] {
		return &lfu[K]{recs: make(map[K]*record)}
	}
}

func (p *lfu[K]) OnAccess(k K) {
	if r, ok := p.recs[k]; ok {
		r.count++
	}
}

func (p *lfu[K]) OnInsert(k K) {
	if _, ok := p.recs[k]; ok {
		p.OnAccess(k)
		return
	}
	p.seq++
	p.recs[k] = &record{seq: p.seq}
}

func (p *lfu[K]) OnRemove(k K) {
	delete(p.recs, k)
}

// Victim returns the key with the lowest access count; among equal counts
// the earliest-inserted key loses.
func (p *lfu[K]) Victim() (K, bool) {
	var (
		victim K
		best   *record
	)
	for k, r := range p.recs {
		if best == nil || r.count < best.count || (r.count == best.count && r.seq < best.seq) {
			victim, best = k, r
		}
	}
	return victim, best != nil
}

func (p *lfu[K]) Clear() {
	clear(p.recs)
	p.seq = 0
}
