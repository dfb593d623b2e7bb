package config

import (
	"errors"
	"fmt"
	"strings"

	"reflex-vision/internal/annotate"
	"reflex-vision/internal/camera"
	"reflex-vision/internal/display"
	"reflex-vision/internal/logger"
	"reflex-vision/internal/model"
)

const (
	DisplayWindow = "window"
	DisplayFyne   = "fyne"

	TaskSegment = "segment"
	TaskDetect  = "detect"
)

// Validate reports every problem found, joined into one error wrapping
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Camera.Source) == "" {
		add("camera.source is empty")
	}
	if _, err := camera.ParseAPI(c.Camera.API); err != nil {
		add("camera.api: %w", err)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.BufferSize < 0 {
		add("camera width, height and buffer_size must not be negative")
	}

	switch c.Model.Backend {
	case model.BackendDNN, model.BackendONNXRuntime:
	default:
		add("model.backend %q is not one of dnn, onnxruntime", c.Model.Backend)
	}
	switch c.Model.Task {
	case TaskSegment, TaskDetect:
	default:
		add("model.task %q is not one of segment, detect", c.Model.Task)
	}
	if c.Model.Path == "" {
		add("model.path is empty")
	}
	if c.Model.TargetSize <= 0 || c.Model.TargetSize%32 != 0 {
		add("model.target_size %d must be a positive multiple of 32", c.Model.TargetSize)
	}
	if len(c.Model.Classes) == 0 {
		add("model.classes is empty")
	}
	if c.Model.Confidence < 0 || c.Model.Confidence > 1 {
		add("model.confidence %.2f outside [0,1]", c.Model.Confidence)
	}
	if c.Model.IoU < 0 || c.Model.IoU > 1 {
		add("model.iou %.2f outside [0,1]", c.Model.IoU)
	}
	switch c.Model.Device {
	case "cpu", "cuda":
	default:
		add("model.device %q is not one of cpu, cuda", c.Model.Device)
	}

	switch c.Display.Backend {
	case DisplayWindow, DisplayFyne:
	default:
		add("display.backend %q is not one of window, fyne", c.Display.Backend)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		add("display size %dx%d must be positive", c.Display.Width, c.Display.Height)
	}
	if _, err := display.ParseQuitKeys(c.Display.QuitKeys); err != nil {
		add("display.quit_keys: %w", err)
	}

	if c.Pipeline.QueueCapacity < 1 {
		add("pipeline.queue_capacity %d must be at least 1", c.Pipeline.QueueCapacity)
	}
	if c.Pipeline.PollInterval <= 0 {
		add("pipeline.poll_interval must be positive")
	}
	if c.Pipeline.StatsInterval < 0 {
		add("pipeline.stats_interval must not be negative")
	}
	if c.Pipeline.ShutdownTimeout <= c.Pipeline.PollInterval {
		add("pipeline.shutdown_timeout must exceed poll_interval")
	}

	switch c.Annotation.Mode {
	case annotate.ModeSegment, annotate.ModeDetect:
	default:
		add("annotation.mode %q is not one of segment, detect", c.Annotation.Mode)
	}
	if c.Annotation.Alpha < 0 || c.Annotation.Alpha > 1 {
		add("annotation.alpha %.2f outside [0,1]", c.Annotation.Alpha)
	}
	if c.Annotation.FontScale <= 0 || c.Annotation.TextThickness <= 0 || c.Annotation.BoxThickness <= 0 {
		add("annotation font_scale and thicknesses must be positive")
	}
	if _, err := c.ColorTable(); err != nil {
		add("annotation colors: %w", err)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		add("log.format %q is not one of console, json", c.Log.Format)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}
