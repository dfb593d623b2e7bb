package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopSignal(t *testing.T) {
	s := NewStopSignal()
	assert.False(t, s.Stopped())

	select {
	case <-s.Done():
		t.Fatal("done closed before Stop")
	default:
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	assert.True(t, s.Stopped())
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after Stop")
	}

	s.Stop()
	assert.True(t, s.Stopped(), "stop is permanent")
}

func TestFPSCounter(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	f := NewFPSCounter(clock)
	for i := 0; i < 9; i++ {
		now = now.Add(100 * time.Millisecond)
		assert.Equal(t, 0.0, f.Tick(), "no estimate before a full second")
	}

	now = now.Add(100 * time.Millisecond)
	assert.InDelta(t, 10.0, f.Tick(), 1e-9)

	// the estimate holds until the next window closes
	now = now.Add(500 * time.Millisecond)
	assert.InDelta(t, 10.0, f.Tick(), 1e-9)

	now = now.Add(1500 * time.Millisecond)
	assert.InDelta(t, 1.0, f.Tick(), 1e-9)
	assert.InDelta(t, 1.0, f.FPS(), 1e-9)
}
