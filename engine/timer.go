package engine

import (
	"container/heap"
	"context"
	"time"
)

// timerQueue is a min-heap of scheduled tasks: expiry checks, retry
// backoffs, and the daily boundary all go through it instead of ad hoc
// sleeping. Tasks fire during the engine cycle, on the engine goroutine.
type timerQueue struct {
	h taskHeap
	n int
}

type timerTask struct {
	at  time.Time
	seq int // tie-break so equal deadlines fire in schedule order
	fn  func(ctx context.Context, now time.Time)
}

func newTimerQueue() *timerQueue {
	return &timerQueue{}
}

func (q *timerQueue) Schedule(at time.Time, fn func(ctx context.Context, now time.Time)) {
	q.n++
	heap.Push(&q.h, &timerTask{at: at, seq: q.n, fn: fn})
}

// PopDue removes and returns all tasks due at or before now, in deadline
// order.
func (q *timerQueue) PopDue(now time.Time) []*timerTask {
	var due []*timerTask
	for q.h.Len() > 0 && !q.h[0].at.After(now) {
		due = append(due, heap.Pop(&q.h).(*timerTask))
	}
	return due
}

func (q *timerQueue) Len() int { return q.h.Len() }

type taskHeap []*timerTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*timerTask)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
