// Package lru implements the least-recently-used eviction strategy.
package lru

import (
	"container/list"

	"github.com/IvanBrykalov/collcache/policy"
)

// lru keeps an intrusive recency list: front is the most recently used
// key, back is the victim. All operations are O(1).
type lru[K comparable] struct {
	order *list.List
	idx   map[K]*list.Element // element.Value is K
}

// New returns a Factory producing LRU trackers.
func New[K comparable]() policy.Factory[K] {
	return func() policy.Tracker[K] {
		return &lru[K]{order: list.New(), idx: make(map[K]*list.Element)}
	}
}

// OnAccess promotes the key to most-recent.
func (p *lru[K]) OnAccess(k K) {
	if el, ok := p.idx[k]; ok {
		p.order.MoveToFront(el)
	}
}

// OnInsert places a new key at most-recent. Re-inserting a tracked key is
// treated as an access.
func (p *lru[K]) OnInsert(k K) {
	if el, ok := p.idx[k]; ok {
		p.order.MoveToFront(el)
		return
	}
	p.idx[k] = p.order.PushFront(k)
}

func (p *lru[K]) OnRemove(k K) {
	if el, ok := p.idx[k]; ok {
		p.order.Remove(el)
		delete(p.idx, k)
	}
}

// Victim returns the least-recently-accessed key.
func (p *lru[K]) Victim() (K, bool) {
	el := p.order.Back()
	if el == nil {
		var zero K
		return zero, false
	}
	return el.Value.(K), true
}

func (p *lru[K]) Clear() {
	p.order.Init()
	clear(p.idx)
}
