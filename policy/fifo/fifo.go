// Package fifo implements first-in-first-out eviction: the victim is the
// earliest-inserted key and accesses never reorder.
package fifo

import (
	"container/list"

	"github.com/IvanBrykalov/collcache/policy"
)

type fifo[K comparable] struct {
	order *list.List // front = newest insertion, back = victim
	idx   map[K]*list.Element
}

// New returns a Factory producing FIFO trackers.
func New[K comparable]() policy.Factory[K] {
	return func() policy.Tracker[K] {
		return &fifo[K]{order: list.New(), idx: make(map[K]*list.Element)}
	}
}

// OnAccess is a no-op: FIFO order depends only on insertion.
func (p *fifo[K]) OnAccess(K) {}

// OnInsert appends the key at the newest position; a key already tracked
// keeps its original queue slot.
func (p *fifo[K]) OnInsert(k K) {
	if _, ok := p.idx[k]; ok {
		return
	}
	p.idx[k] = p.order.PushFront(k)
}

func (p *fifo[K]) OnRemove(k K) {
	if el, ok := p.idx[k]; ok {
		p.order.Remove(el)
		delete(p.idx, k)
	}
}

// Victim returns the earliest-inserted key.
func (p *fifo[K]) Victim() (K, bool) {
	el := p.order.Back()
	if el == nil {
		var zero K
		return zero, false
	}
	return el.Value.(K), true
}

func (p *fifo[K]) Clear() {
	p.order.Init()
	clear(p.idx)
}
