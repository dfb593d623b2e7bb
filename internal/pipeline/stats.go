package pipeline

import (
	"math"
	"sync/atomic"
	"time"

	"reflex-vision/internal/queue"
)

type CaptureStats struct {
	Frames       uint64
	ReadFailures uint64
	Dropped      uint64
}

type InferenceStats struct {
	Frames     uint64
	Errors     uint64
	Dropped    uint64
	Detections uint64
	AvgLatency time.Duration
}

type DisplayStats struct {
	Frames uint64
	Errors uint64
	FPS    float64
}

// Stats is a snapshot of the whole pipeline.
type Stats struct {
	Capture      CaptureStats
	Inference    InferenceStats
	Display      DisplayStats
	CaptureQueue queue.Stats
	ResultQueue  queue.Stats
}

// Fields flattens s for structured logging.
func (s Stats) Fields() map[string]interface{} {
	return map[string]interface{}{
		"captured":            s.Capture.Frames,
		"read_failures":       s.Capture.ReadFailures,
		"capture_dropped":     s.Capture.Dropped,
		"inferred":            s.Inference.Frames,
		"inference_errors":    s.Inference.Errors,
		"inference_dropped":   s.Inference.Dropped,
		"detections":          s.Inference.Detections,
		"avg_inference_ms":    s.Inference.AvgLatency.Milliseconds(),
		"displayed":           s.Display.Frames,
		"render_errors":       s.Display.Errors,
		"fps":                 math.Round(s.Display.FPS*10) / 10,
		"capture_queue_depth": s.CaptureQueue.MaxDepth,
		"result_queue_depth":  s.ResultQueue.MaxDepth,
	}
}

type captureCounters struct {
	frames       atomic.Uint64
	readFailures atomic.Uint64
	dropped      atomic.Uint64
}

func (c *captureCounters) snapshot() CaptureStats {
	return CaptureStats{
		Frames:       c.frames.Load(),
		ReadFailures: c.readFailures.Load(),
		Dropped:      c.dropped.Load(),
	}
}

type inferenceCounters struct {
	frames     atomic.Uint64
	errors     atomic.Uint64
	dropped    atomic.Uint64
	detections atomic.Uint64
	latency    atomic.Int64
}

func (c *inferenceCounters) observe(latency time.Duration, detections int) {
	c.frames.Add(1)
	c.detections.Add(uint64(detections))
	c.latency.Add(int64(latency))
}

func (c *inferenceCounters) snapshot() InferenceStats {
	s := InferenceStats{
		Frames:     c.frames.Load(),
		Errors:     c.errors.Load(),
		Dropped:    c.dropped.Load(),
		Detections: c.detections.Load(),
	}
	if s.Frames > 0 {
		s.AvgLatency = time.Duration(c.latency.Load() / int64(s.Frames))
	}
	return s
}

type displayCounters struct {
	frames  atomic.Uint64
	errors  atomic.Uint64
	fpsBits atomic.Uint64
}

func (c *displayCounters) setFPS(fps float64) {
	c.fpsBits.Store(math.Float64bits(fps))
}

func (c *displayCounters) snapshot() DisplayStats {
	return DisplayStats{
		Frames: c.frames.Load(),
		Errors: c.errors.Load(),
		FPS:    math.Float64frombits(c.fpsBits.Load()),
	}
}
