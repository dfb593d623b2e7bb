// Package pipeline runs capture, inference and display as three concurrent
// stages joined by bounded latest-wins frame queues.
package pipeline

import (
	"time"

	"reflex-vision/internal/opencv/safe"
	"reflex-vision/internal/queue"
)

// Camera produces frames. A false return is a transient read failure; the
// capture stage retries immediately.
type Camera interface {
	Read() (*safe.Mat, bool)
	Close() error
}

// Sink shows frames and reports user quit requests. All calls come from the
// display goroutine except Close, which may come from elsewhere.
type Sink interface {
	Render(frame *safe.Mat) error
	QuitRequested() bool
	Close() error
}

// FrameQueue is the part of queue.Queue the stages use.
type FrameQueue interface {
	Push(frame *safe.Mat) bool
	Pop(timeout time.Duration) (*safe.Mat, bool)
	Drain() []*safe.Mat
	Len() int
	Stats() queue.Stats
}

var _ FrameQueue = (*queue.Queue[*safe.Mat])(nil)
