package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushOnFullQueueKeepsExistingItem(t *testing.T) {
	q := New[int](1)

	require.True(t, q.Push(1))
	assert.False(t, q.Push(2), "push on a full queue must be rejected")
	assert.False(t, q.Push(3))
	assert.Equal(t, 1, q.Len())

	item, ok := q.Pop(10 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 1, item, "the queued item must survive rejected pushes")

	stats := q.Stats()
	assert.Equal(t, uint64(1), stats.Pushed)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(1), stats.Popped)
	assert.Equal(t, 1, stats.MaxDepth)
}

func TestPushNeverBlocks(t *testing.T) {
	q := New[int](1)

	start := time.Now()
	for i := 0; i < 10000; i++ {
		q.Push(i)
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, q.Len())
}

func TestPopTimesOutOnEmptyQueue(t *testing.T) {
	q := New[string](1)

	start := time.Now()
	_, ok := q.Pop(30 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestPopZeroTimeoutDoesNotWait(t *testing.T) {
	q := New[int](1)

	_, ok := q.Pop(0)
	assert.False(t, ok)

	q.Push(5)
	v, ok := q.Pop(0)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestPopWakesOnPush(t *testing.T) {
	q := New[int](1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(42)
	}()

	v, ok := q.Pop(time.Second)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCapacityIsFixed(t *testing.T) {
	q := New[int](3)
	assert.Equal(t, 3, q.Cap())

	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{0, 1, 2}, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 3, q.Stats().MaxDepth)

	assert.Equal(t, 1, New[int](0).Cap())
	assert.Equal(t, 1, New[int](-4).Cap())
}

func TestConcurrentProducerConsumer(t *testing.T) {
	q := New[int](1)
	const total = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Push(i)
		}
	}()

	received := 0
	last := -1
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		v, ok := q.Pop(5 * time.Millisecond)
		if ok {
			assert.Greater(t, v, last, "items must come out in push order")
			last = v
			received++
			continue
		}
		select {
		case <-done:
			if q.Len() == 0 {
				stats := q.Stats()
				assert.Equal(t, uint64(total), stats.Pushed+stats.Dropped)
				assert.Equal(t, uint64(received), stats.Popped)
				assert.LessOrEqual(t, stats.MaxDepth, 1)
				return
			}
		default:
		}
	}
}
