package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/geometry"
	"reflex-vision/internal/opencv/memory"
	"reflex-vision/internal/opencv/safe"
	"reflex-vision/internal/queue"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const (
	frameCols = 64
	frameRows = 48
)

// uniformFrame returns a tracked BGR frame with every channel set to value.
func uniformFrame(t testing.TB, tracker safe.MemoryTracker, value int) *safe.Mat {
	t.Helper()

	v := float64(value)
	raw := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), frameRows, frameCols, gocv.MatTypeCV8UC3)
	frame, err := safe.Adopt(raw, tracker, "capture")
	require.NoError(t, err)
	return frame
}

func centerValue(m *safe.Mat) int {
	v, err := m.GetUCharAt3(m.Rows()/2, m.Cols()/3, 0)
	if err != nil {
		return -1
	}
	return int(v)
}

// scriptedCamera yields one uniform frame per value, paced by interval, then
// fails every read.
type scriptedCamera struct {
	t        testing.TB
	tracker  *memory.Tracker
	values   []int
	interval time.Duration
	failures int

	mu        sync.Mutex
	next      int
	exhausted atomic.Bool
	closed    atomic.Bool
}

func (c *scriptedCamera) Read() (*safe.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failures > 0 {
		c.failures--
		return nil, false
	}
	if c.next >= len(c.values) {
		c.exhausted.Store(true)
		time.Sleep(time.Millisecond)
		return nil, false
	}

	time.Sleep(c.interval)
	frame := uniformFrame(c.t, c.tracker, c.values[c.next])
	c.next++
	return frame, true
}

func (c *scriptedCamera) Close() error {
	c.closed.Store(true)
	return nil
}

// fixedModel returns the same detection for every frame, or errors on the
// frames listed in failOn (1-based call numbers).
type fixedModel struct {
	dets   detection.Set
	failOn map[int]bool
	calls  int
	closed atomic.Bool
}

func newFixedModel() *fixedModel {
	return &fixedModel{
		dets: detection.Set{{
			Label:      "Wear long pants",
			Confidence: 0.9,
			Box:        geometry.NewRect(2, 2, 10, 10),
		}},
	}
}

func (m *fixedModel) Infer(frame *safe.Mat, targetSize int) (detection.Set, error) {
	m.calls++
	if m.failOn[m.calls] {
		return nil, errors.New("model exploded")
	}
	return m.dets, nil
}

func (m *fixedModel) Close() error {
	m.closed.Store(true)
	return nil
}

// recordingSink remembers the probe value of every rendered frame.
type recordingSink struct {
	delay     time.Duration
	quitAfter int
	renderErr error

	mu         sync.Mutex
	values     []int
	lastRender time.Time
	quit       atomic.Bool
	closed     atomic.Bool
}

func (s *recordingSink) Render(frame *safe.Mat) error {
	if s.renderErr != nil {
		return s.renderErr
	}
	v := centerValue(frame)
	time.Sleep(s.delay)

	s.mu.Lock()
	s.values = append(s.values, v)
	s.lastRender = time.Now()
	if s.quitAfter > 0 && len(s.values) >= s.quitAfter {
		s.quit.Store(true)
	}
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) QuitRequested() bool {
	return s.quit.Load()
}

func (s *recordingSink) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *recordingSink) rendered() ([]int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.values...), s.lastRender
}

// spyQueue records the deepest the queue has been right after a push and
// the probe value of the last accepted frame.
type spyQueue struct {
	*queue.Queue[*safe.Mat]

	mu           sync.Mutex
	maxLen       int
	lastAccepted int
}

func newSpyQueue(capacity int) *spyQueue {
	return &spyQueue{Queue: queue.New[*safe.Mat](capacity), lastAccepted: -1}
}

func (s *spyQueue) Push(frame *safe.Mat) bool {
	v := centerValue(frame)
	ok := s.Queue.Push(frame)

	s.mu.Lock()
	if l := s.Queue.Len(); l > s.maxLen {
		s.maxLen = l
	}
	if ok {
		s.lastAccepted = v
	}
	s.mu.Unlock()
	return ok
}

func (s *spyQueue) snapshot() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLen, s.lastAccepted
}

func closeAll(frames []*safe.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
