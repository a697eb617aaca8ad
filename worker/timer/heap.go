package timer

import (
	"time"

	"github.com/northbridge-labs/taskflow/item"
)

// pending is one entry in the deadline heap.
type pending struct {
	deadline time.Time
	item     *item.TimerItem
}

// deadlineHeap orders pending entries earliest-deadline-first. It
// implements container/heap.Interface.
type deadlineHeap []*pending

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *deadlineHeap) Push(x any) {
	*h = append(*h, x.(*pending))
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
