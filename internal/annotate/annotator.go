// Package annotate draws detection results onto frames.
package annotate

import (
	"fmt"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/opencv/safe"
)

const (
	ModeSegment = "segment"
	ModeDetect  = "detect"
)

// Annotator renders a detection set onto a copy of frame. The input frame is
// never modified.
type Annotator interface {
	Annotate(frame *safe.Mat, dets detection.Set) (*safe.Mat, error)
}

// Options tunes the segmentation renderer.
type Options struct {
	Alpha         float64
	FontScale     float64
	TextThickness int
	BoxThickness  int
	// NoLabelClass is filled and boxed but never given a text label.
	NoLabelClass string
}

func DefaultOptions() Options {
	return Options{
		Alpha:         0.4,
		FontScale:     0.8,
		TextThickness: 2,
		BoxThickness:  2,
		NoLabelClass:  "Face",
	}
}

// New returns the annotator for mode: ModeSegment fills mask polygons and
// avoids label collisions, ModeDetect draws plain boxes and labels.
func New(mode string, colors *ColorTable, opts Options) (Annotator, error) {
	switch mode {
	case ModeSegment, "":
		return NewSegmentation(colors, opts)
	case ModeDetect:
		return NewBoxes(), nil
	default:
		return nil, fmt.Errorf("unknown annotation mode %q", mode)
	}
}
