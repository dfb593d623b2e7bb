// Package model runs YOLOv8 detection and segmentation networks exported to
// ONNX, through either the OpenCV DNN module or ONNX Runtime.
package model

import (
	"fmt"

	"reflex-vision/internal/detection"
)

const (
	BackendDNN         = "dnn"
	BackendONNXRuntime = "onnxruntime"
)

// Options configures a backend.
type Options struct {
	Backend    string
	Path       string
	Segment    bool
	TargetSize int
	Classes    []string
	Confidence float32
	IoU        float32
	Device     string
	// ORTLibrary points at the onnxruntime shared library; empty uses the
	// platform default search path.
	ORTLibrary string
}

func (o Options) decoder() *Decoder {
	return &Decoder{
		Classes:    o.Classes,
		Confidence: o.Confidence,
		IoU:        o.IoU,
		Segment:    o.Segment,
	}
}

// Load opens the backend named in opts.
func Load(opts Options) (detection.Model, error) {
	if len(opts.Classes) == 0 {
		return nil, fmt.Errorf("model has no classes")
	}

	switch opts.Backend {
	case BackendDNN, "":
		return NewDNN(opts)
	case BackendONNXRuntime:
		return NewONNX(opts)
	default:
		return nil, fmt.Errorf("unknown model backend %q", opts.Backend)
	}
}
