// Package queue provides the bounded latest-wins buffers that join the
// pipeline stages.
//
// Producers never block: Push on a full queue rejects the new item and the
// caller keeps ownership of it. Consumers wait at most a caller-supplied
// timeout in Pop, which is what bounds every stage's reaction time to a stop
// request.
package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats counts queue traffic since construction.
type Stats struct {
	Pushed   uint64
	Dropped  uint64
	Popped   uint64
	MaxDepth int
}

// Queue is a fixed-capacity FIFO safe for one producer and one consumer
// (additional producers are also safe, ordering between them is not defined).
type Queue[T any] struct {
	items    chan T
	pushed   atomic.Uint64
	dropped  atomic.Uint64
	popped   atomic.Uint64
	mu       sync.Mutex
	maxDepth int
}

// New creates a queue holding at most capacity items. Capacity below 1 is
// raised to 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make(chan T, capacity)}
}

// Push enqueues item without blocking. It returns false, leaving the queue
// unchanged, when the queue is full.
func (q *Queue[T]) Push(item T) bool {
	select {
	case q.items <- item:
		q.pushed.Add(1)
		q.observeDepth()
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop waits up to timeout for an item. The boolean is false on timeout.
func (q *Queue[T]) Pop(timeout time.Duration) (T, bool) {
	select {
	case item := <-q.items:
		q.popped.Add(1)
		return item, true
	default:
	}

	var zero T
	if timeout <= 0 {
		return zero, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.items:
		q.popped.Add(1)
		return item, true
	case <-timer.C:
		return zero, false
	}
}

// Drain removes and returns everything currently buffered.
func (q *Queue[T]) Drain() []T {
	var out []T
	for {
		select {
		case item := <-q.items:
			q.popped.Add(1)
			out = append(out, item)
		default:
			return out
		}
	}
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) Cap() int {
	return cap(q.items)
}

func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	depth := q.maxDepth
	q.mu.Unlock()

	return Stats{
		Pushed:   q.pushed.Load(),
		Dropped:  q.dropped.Load(),
		Popped:   q.popped.Load(),
		MaxDepth: depth,
	}
}

func (q *Queue[T]) observeDepth() {
	depth := len(q.items)

	q.mu.Lock()
	if depth > q.maxDepth {
		q.maxDepth = depth
	}
	q.mu.Unlock()
}
