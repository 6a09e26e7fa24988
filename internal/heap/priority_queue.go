// Package heap implements a generic min-priority queue used by the peer
// store for BEP-40 canonical-priority candidate ranking (§4.5).
package heap

import (
	"container/heap"
	"errors"
)

// Item is one priority queue entry. Lower Priority values pop first.
type Item struct {
	Value    interface{}
	Priority int
}

// ErrEmptyQueue is returned by Pop when the queue has no items left.
var ErrEmptyQueue = errors.New("heap: priority queue is empty")

// PriorityQueue is a min-heap of *Item ordered by Priority.
type PriorityQueue struct {
	items innerHeap
}

// NewPriorityQueue builds a PriorityQueue containing items, heapified.
func NewPriorityQueue(items ...*Item) *PriorityQueue {
	h := make(innerHeap, len(items))
	copy(h, items)
	heap.Init(&h)
	return &PriorityQueue{items: h}
}

// Push adds item to the queue.
func (pq *PriorityQueue) Push(item *Item) {
	heap.Push(&pq.items, item)
}

// Pop removes and returns the lowest-priority item.
func (pq *PriorityQueue) Pop() (*Item, error) {
	if pq.items.Len() == 0 {
		return nil, ErrEmptyQueue
	}
	return heap.Pop(&pq.items).(*Item), nil
}

// Len returns the number of items currently queued.
func (pq *PriorityQueue) Len() int {
	return pq.items.Len()
}

// innerHeap implements container/heap.Interface over []*Item.
type innerHeap []*Item

func (h innerHeap) Len() int            { return len(h) }
func (h innerHeap) Less(i, j int) bool  { return h[i].Priority < h[j].Priority }
func (h innerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *innerHeap) Push(x interface{}) { *h = append(*h, x.(*Item)) }
func (h *innerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
