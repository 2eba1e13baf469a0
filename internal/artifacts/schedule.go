package artifacts

import (
	"container/heap"
	"time"
)

// deadline is one scheduled expiration. Entries are never removed from the
// heap early; a popped deadline that no longer matches the live entry is
// ignored.
type deadline struct {
	id string
	at time.Time
}

type deadlineHeap []deadline

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h deadlineHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *deadlineHeap) Push(x any) { *h = append(*h, x.(deadline)) }

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h deadlineHeap) peek() (deadline, bool) {
	if len(h) == 0 {
		return deadline{}, false
	}
	return h[0], true
}

func (h *deadlineHeap) push(d deadline) {
	heap.Push(h, d)
}

func (h *deadlineHeap) pop() deadline {
	return heap.Pop(h).(deadline)
}
