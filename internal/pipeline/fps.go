package pipeline

import "time"

// FPSCounter measures displayed frames per second over windows of at least
// one second. The reported value changes only when a window closes.
type FPSCounter struct {
	now    func() time.Time
	start  time.Time
	frames int
	fps    float64
}

// NewFPSCounter starts the first window immediately. now defaults to
// time.Now.
func NewFPSCounter(now func() time.Time) *FPSCounter {
	if now == nil {
		now = time.Now
	}
	return &FPSCounter{now: now, start: now()}
}

// Tick records one frame and returns the current estimate.
func (f *FPSCounter) Tick() float64 {
	f.frames++

	elapsed := f.now().Sub(f.start)
	if elapsed >= time.Second {
		f.fps = float64(f.frames) / elapsed.Seconds()
		f.frames = 0
		f.start = f.now()
	}

	return f.fps
}

func (f *FPSCounter) FPS() float64 {
	return f.fps
}
