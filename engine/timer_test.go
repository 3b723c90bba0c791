package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerQueueFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	q := newTimerQueue()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var fired []int
	q.Schedule(base.Add(3*time.Second), func(context.Context, time.Time) { fired = append(fired, 3) })
	q.Schedule(base.Add(1*time.Second), func(context.Context, time.Time) { fired = append(fired, 1) })
	q.Schedule(base.Add(2*time.Second), func(context.Context, time.Time) { fired = append(fired, 2) })

	assert.Empty(t, q.PopDue(base))

	due := q.PopDue(base.Add(2 * time.Second))
	for _, task := range due {
		task.fn(context.Background(), base)
	}
	assert.Equal(t, []int{1, 2}, fired)
	assert.Equal(t, 1, q.Len())

	for _, task := range q.PopDue(base.Add(time.Minute)) {
		task.fn(context.Background(), base)
	}
	assert.Equal(t, []int{1, 2, 3}, fired)
	assert.Zero(t, q.Len())
}

func TestTimerQueueEqualDeadlinesKeepScheduleOrder(t *testing.T) {
	t.Parallel()

	q := newTimerQueue()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(at, func(context.Context, time.Time) { fired = append(fired, i) })
	}
	for _, task := range q.PopDue(at) {
		task.fn(context.Background(), at)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, fired)
}

func TestIdempotencyKeyStableWithinBucket(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 10, 12, 0, 5, 0, time.UTC)
	a := sigAt(base)
	b := sigAt(base.Add(20 * time.Second)) // same minute bucket
	c := sigAt(base.Add(2 * time.Minute))

	assert.Equal(t, idempotencyKey(a, time.Minute), idempotencyKey(b, time.Minute))
	assert.NotEqual(t, idempotencyKey(a, time.Minute), idempotencyKey(c, time.Minute))

	d := a
	d.Tag = "other"
	assert.NotEqual(t, idempotencyKey(a, time.Minute), idempotencyKey(d, time.Minute))
}
