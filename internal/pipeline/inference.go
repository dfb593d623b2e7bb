package pipeline

import (
	"time"

	"reflex-vision/internal/annotate"
	"reflex-vision/internal/detection"
	"reflex-vision/internal/logger"
)

const inferenceComponent = "Inference"

// Inference takes the newest captured frame, runs the model on it and
// publishes the annotated copy. Model and annotation errors cost one frame
// and nothing else.
type Inference struct {
	model      detection.Model
	annotator  annotate.Annotator
	in         FrameQueue
	out        FrameQueue
	stop       *StopSignal
	log        logger.Logger
	targetSize int
	poll       time.Duration
	stats      inferenceCounters
}

func NewInference(model detection.Model, annotator annotate.Annotator, in, out FrameQueue,
	stop *StopSignal, log logger.Logger, targetSize int, poll time.Duration) *Inference {
	return &Inference{
		model:      model,
		annotator:  annotator,
		in:         in,
		out:        out,
		stop:       stop,
		log:        log,
		targetSize: targetSize,
		poll:       poll,
	}
}

// Run loops until the stop signal is set, then releases the model.
func (s *Inference) Run() {
	defer func() {
		if err := s.model.Close(); err != nil {
			s.log.Error(inferenceComponent, err, map[string]interface{}{"stage": "close model"})
		}
		s.log.Debug(inferenceComponent, "inference stopped", nil)
	}()

	for !s.stop.Stopped() {
		s.step()
	}
}

func (s *Inference) step() {
	frame, ok := s.in.Pop(s.poll)
	if !ok {
		return
	}
	defer frame.Close()

	start := time.Now()
	dets, err := s.model.Infer(frame, s.targetSize)
	if err != nil {
		s.stats.errors.Add(1)
		s.log.Warning(inferenceComponent, "inference failed, frame skipped", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	latency := time.Since(start)
	s.stats.observe(latency, len(dets))
	s.log.Debug(inferenceComponent, "frame inferred", map[string]interface{}{
		"latency_ms": latency.Milliseconds(),
		"labels":     dets.Labels(),
		"masks":      dets.HasPolygons(),
	})

	annotated, err := s.annotator.Annotate(frame, dets)
	if err != nil {
		s.stats.errors.Add(1)
		s.log.Warning(inferenceComponent, "annotation failed, frame skipped", map[string]interface{}{
			"error":      err.Error(),
			"detections": len(dets),
		})
		return
	}

	if !s.out.Push(annotated) {
		annotated.Close()
		s.stats.dropped.Add(1)
	}
}

func (s *Inference) Stats() InferenceStats {
	return s.stats.snapshot()
}
