// Package taskqueue implements the priority task queue: a binary min-heap
// ordered by (−priority, created_at) feeding a bounded worker pool, with
// cancellation and status queries.
package taskqueue

import (
	"time"

	"github.com/holomesh/cadopt/internal/domain"
)

// BoostConfig configures the heap's optional starvation-prevention age
// boost. It defaults to disabled (BoostInterval 0) so the strict
// (−priority, created_at) ordering holds without surprise reordering;
// long-running deployments may opt in.
type BoostConfig struct {
	BoostInterval time.Duration
	MaxBoost      int
}

// DefaultBoostConfig disables starvation prevention.
func DefaultBoostConfig() BoostConfig {
	return BoostConfig{BoostInterval: 0, MaxBoost: 0}
}

// heap is a binary min-heap over *domain.Task ordered so the highest
// effective priority (ties broken by earliest created_at) pops first. It
// holds no lock of its own; Pool serializes all access under its own
// mutex.
type heap struct {
	items []*domain.Task
	boost BoostConfig
	now   func() time.Time
}

func newHeap(boost BoostConfig, now func() time.Time) *heap {
	return &heap{boost: boost, now: now}
}

func (h *heap) push(t *domain.Task) {
	h.items = append(h.items, t)
	h.siftUp(len(h.items) - 1)
}

func (h *heap) pop() (*domain.Task, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	// Age boost shifts effective priorities as tasks wait, so the order
	// established at push time may be stale by pop time.
	if h.boost.BoostInterval > 0 {
		h.heapify()
	}
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return top, true
}

func (h *heap) len() int {
	return len(h.items)
}

func (h *heap) heapify() {
	for i := len(h.items)/2 - 1; i >= 0; i-- {
		h.siftDown(i)
	}
}

// effectivePriority adds an age-based boost to Priority when BoostInterval
// is configured, so indefinitely-starved low-priority tasks eventually
// surface.
func (h *heap) effectivePriority(t *domain.Task) int {
	if h.boost.BoostInterval <= 0 {
		return t.Priority
	}
	age := h.now().Sub(t.CreatedAt)
	boost := int(age / h.boost.BoostInterval)
	if boost > h.boost.MaxBoost {
		boost = h.boost.MaxBoost
	}
	return t.Priority + boost
}

// less reports whether item i should be dequeued before item j: higher
// effective priority first, then earlier created_at (FIFO within ties).
func (h *heap) less(i, j int) bool {
	pi := h.effectivePriority(h.items[i])
	pj := h.effectivePriority(h.items[j])
	if pi != pj {
		return pi > pj
	}
	return h.items[i].CreatedAt.Before(h.items[j].CreatedAt)
}

func (h *heap) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if h.less(idx, parent) {
			h.items[idx], h.items[parent] = h.items[parent], h.items[idx]
			idx = parent
		} else {
			break
		}
	}
}

func (h *heap) siftDown(idx int) {
	n := len(h.items)
	for {
		best := idx
		left, right := 2*idx+1, 2*idx+2
		if left < n && h.less(left, best) {
			best = left
		}
		if right < n && h.less(right, best) {
			best = right
		}
		if best == idx {
			break
		}
		h.items[idx], h.items[best] = h.items[best], h.items[idx]
		idx = best
	}
}
