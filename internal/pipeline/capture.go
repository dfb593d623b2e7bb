package pipeline

import (
	"reflex-vision/internal/logger"
	"reflex-vision/internal/opencv/conversion"
)

const captureComponent = "Capture"

// Capture reads the camera as fast as it delivers, mirrors every frame and
// offers it to the inference queue. Frames the queue rejects are discarded.
type Capture struct {
	camera Camera
	out    FrameQueue
	stop   *StopSignal
	log    logger.Logger
	stats  captureCounters
}

func NewCapture(camera Camera, out FrameQueue, stop *StopSignal, log logger.Logger) *Capture {
	return &Capture{
		camera: camera,
		out:    out,
		stop:   stop,
		log:    log,
	}
}

// Run loops until the stop signal is set, then releases the camera. Read
// failures are retried immediately without limit.
func (c *Capture) Run() {
	defer func() {
		if err := c.camera.Close(); err != nil {
			c.log.Error(captureComponent, err, map[string]interface{}{"stage": "close camera"})
		}
		c.log.Debug(captureComponent, "capture stopped", nil)
	}()

	for !c.stop.Stopped() {
		c.step()
	}
}

func (c *Capture) step() {
	frame, ok := c.camera.Read()
	if !ok {
		c.stats.readFailures.Add(1)
		return
	}

	mirrored, err := conversion.MirrorHorizontal(frame)
	frame.Close()
	if err != nil {
		c.log.Warning(captureComponent, "mirror failed", map[string]interface{}{"error": err.Error()})
		return
	}

	c.stats.frames.Add(1)
	if !c.out.Push(mirrored) {
		mirrored.Close()
		c.stats.dropped.Add(1)
	}
}

func (c *Capture) Stats() CaptureStats {
	return c.stats.snapshot()
}
