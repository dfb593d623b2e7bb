package pipeline

import (
	"fmt"
	"image"
	"runtime"
	"time"

	"reflex-vision/internal/geometry"
	"reflex-vision/internal/logger"
	"reflex-vision/internal/opencv/conversion"
	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const displayComponent = "Display"

// DisplayOptions sizes the output window.
type DisplayOptions struct {
	Width   int
	Height  int
	ShowFPS bool
	Poll    time.Duration
	// Now is the FPS clock, time.Now when nil.
	Now func() time.Time
}

// Display fits annotated frames to the output size, stamps the frame rate
// and hands them to the sink. It is the only stage that reacts to user
// input: a quit request from the sink stops the whole pipeline.
type Display struct {
	sink  Sink
	in    FrameQueue
	stop  *StopSignal
	log   logger.Logger
	opts  DisplayOptions
	fps   *FPSCounter
	stats displayCounters
}

func NewDisplay(sink Sink, in FrameQueue, stop *StopSignal, log logger.Logger, opts DisplayOptions) *Display {
	return &Display{
		sink: sink,
		in:   in,
		stop: stop,
		log:  log,
		opts: opts,
		fps:  NewFPSCounter(opts.Now),
	}
}

// Run loops until the stop signal is set, then closes the sink. The calling
// goroutine is locked to its OS thread for the lifetime of the loop.
func (d *Display) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if err := d.sink.Close(); err != nil {
			d.log.Error(displayComponent, err, map[string]interface{}{"stage": "close sink"})
		}
		d.log.Debug(displayComponent, "display stopped", nil)
	}()

	for !d.stop.Stopped() {
		d.step()
	}
}

func (d *Display) step() {
	if frame, ok := d.in.Pop(d.opts.Poll); ok {
		d.show(frame)
	}

	if d.sink.QuitRequested() {
		d.log.Info(displayComponent, "quit requested", nil)
		d.stop.Stop()
	}
}

func (d *Display) show(frame *safe.Mat) {
	scaled, err := conversion.ScaleAndCenterCrop(frame, d.opts.Width, d.opts.Height)
	frame.Close()
	if err != nil {
		d.stats.errors.Add(1)
		d.log.Warning(displayComponent, "scaling failed, frame skipped", map[string]interface{}{"error": err.Error()})
		return
	}
	defer scaled.Close()

	fps := d.fps.Tick()
	d.stats.setFPS(fps)

	if d.opts.ShowFPS {
		drawFPS(scaled, fps)
	}

	if err := d.sink.Render(scaled); err != nil {
		d.stats.errors.Add(1)
		d.log.Warning(displayComponent, "render failed", map[string]interface{}{"error": err.Error()})
		return
	}
	d.stats.frames.Add(1)
}

func drawFPS(frame *safe.Mat, fps float64) {
	m := frame.GetMat()
	gocv.PutText(&m, fmt.Sprintf("FPS: %.1f", fps), image.Pt(20, 40),
		gocv.FontHersheySimplex, 1.0, geometry.Green.RGBA(), 2)
}

func (d *Display) Stats() DisplayStats {
	return d.stats.snapshot()
}
