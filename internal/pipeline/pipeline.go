package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"reflex-vision/internal/annotate"
	"reflex-vision/internal/detection"
	"reflex-vision/internal/logger"
	"reflex-vision/internal/opencv/safe"
	"reflex-vision/internal/queue"
)

const pipelineComponent = "Pipeline"

var ErrAlreadyRunning = errors.New("pipeline already started")

type Options struct {
	QueueCapacity int
	PollInterval  time.Duration
	// StatsInterval enables periodic stats logging when positive.
	StatsInterval time.Duration
	TargetSize    int
	Display       DisplayOptions
}

// Pipeline owns the two frame queues, the stop signal and the three stages.
// Camera, model and sink are owned by their stages from New onwards and are
// closed when Run returns.
type Pipeline struct {
	log      logger.Logger
	opts     Options
	stop     *StopSignal
	captureQ *queue.Queue[*safe.Mat]
	resultQ  *queue.Queue[*safe.Mat]

	capture   *Capture
	inference *Inference
	display   *Display

	started  atomic.Bool
	finished chan struct{}
}

func New(camera Camera, model detection.Model, annotator annotate.Annotator, sink Sink,
	opts Options, log logger.Logger) (*Pipeline, error) {
	switch {
	case camera == nil:
		return nil, errors.New("camera is nil")
	case model == nil:
		return nil, errors.New("model is nil")
	case annotator == nil:
		return nil, errors.New("annotator is nil")
	case sink == nil:
		return nil, errors.New("sink is nil")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	opts.Display.Poll = opts.PollInterval

	p := &Pipeline{
		log:      log,
		opts:     opts,
		stop:     NewStopSignal(),
		captureQ: queue.New[*safe.Mat](opts.QueueCapacity),
		resultQ:  queue.New[*safe.Mat](opts.QueueCapacity),
		finished: make(chan struct{}),
	}

	p.capture = NewCapture(camera, p.captureQ, p.stop, log)
	p.inference = NewInference(model, annotator, p.captureQ, p.resultQ, p.stop, log, opts.TargetSize, opts.PollInterval)
	p.display = NewDisplay(sink, p.resultQ, p.stop, log, opts.Display)

	return p, nil
}

// Run starts the stages and blocks until all of them have exited. Cancelling
// ctx, calling Shutdown, or a quit request from the sink stops the pipeline.
// Frames still queued at the end are released.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(p.finished)

	p.log.Info(pipelineComponent, "pipeline starting", map[string]interface{}{
		"queue_capacity": p.captureQ.Cap(),
		"poll_interval":  p.opts.PollInterval.String(),
		"target_size":    p.opts.TargetSize,
		"display_size":   [2]int{p.opts.Display.Width, p.opts.Display.Height},
	})

	go func() {
		select {
		case <-ctx.Done():
			p.log.Info(pipelineComponent, "stop requested", map[string]interface{}{"reason": ctx.Err().Error()})
			p.stop.Stop()
		case <-p.stop.Done():
		}
	}()

	if p.opts.StatsInterval > 0 {
		go p.monitor()
	}

	var wg sync.WaitGroup
	for _, run := range []func(){p.capture.Run, p.inference.Run, p.display.Run} {
		wg.Add(1)
		go func(run func()) {
			defer wg.Done()
			run()
		}(run)
	}
	wg.Wait()

	released := p.drain()
	fields := p.Stats().Fields()
	fields["released_frames"] = released
	p.log.Info(pipelineComponent, "pipeline stopped", fields)

	return nil
}

// Shutdown stops the pipeline and waits for Run to return. It is a no-op
// wait when Run was never called.
func (p *Pipeline) Shutdown() {
	p.stop.Stop()
	if p.started.Load() {
		<-p.finished
	}
}

// Stop requests a stop without waiting.
func (p *Pipeline) Stop() {
	p.stop.Stop()
}

// Done is closed once a stop has been requested.
func (p *Pipeline) Done() <-chan struct{} {
	return p.stop.Done()
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Capture:      p.capture.Stats(),
		Inference:    p.inference.Stats(),
		Display:      p.display.Stats(),
		CaptureQueue: p.captureQ.Stats(),
		ResultQueue:  p.resultQ.Stats(),
	}
}

func (p *Pipeline) monitor() {
	ticker := time.NewTicker(p.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.log.Info(pipelineComponent, "pipeline stats", p.Stats().Fields())
		case <-p.stop.Done():
			return
		}
	}
}

func (p *Pipeline) drain() int {
	released := 0
	for _, q := range []*queue.Queue[*safe.Mat]{p.captureQ, p.resultQ} {
		for _, frame := range q.Drain() {
			frame.Close()
			released++
		}
	}
	return released
}
