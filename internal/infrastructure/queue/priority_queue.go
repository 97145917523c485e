package queue

import (
	"container/heap"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// queueItem is one enqueued payload with its delivery bookkeeping.
type queueItem struct {
	payload  *syncdomain.JobPayload
	priority int
	seq      uint64
	attempts int
}

// itemHeap orders items by priority descending, then arrival order. The seq
// tiebreak keeps equal-priority delivery FIFO.
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(*queueItem))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*itemHeap)(nil)
