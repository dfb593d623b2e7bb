// Package detection defines the model-independent result types the
// annotation engine consumes and the contract inference backends implement.
package detection

import (
	"image"

	"reflex-vision/internal/geometry"
	"reflex-vision/internal/opencv/safe"
)

// UnknownLabel names a class index the model reports but the class list lacks.
const UnknownLabel = "Unknown"

// Detection is one recognised region of a frame.
type Detection struct {
	Label      string
	Confidence float64
	Box        geometry.Rect
	// Polygon outlines the segmentation mask in frame coordinates; nil when
	// the model produced boxes only.
	Polygon []image.Point
}

// HasPolygon reports whether the detection carries usable mask data.
func (d Detection) HasPolygon() bool {
	return len(d.Polygon) >= 3
}

// Set is the ordered output of one inference call.
type Set []Detection

// Labels lists labels in model output order.
func (s Set) Labels() []string {
	labels := make([]string, len(s))
	for i, d := range s {
		labels[i] = d.Label
	}
	return labels
}

// HasPolygons reports whether any detection carries a mask polygon.
func (s Set) HasPolygons() bool {
	for _, d := range s {
		if d.HasPolygon() {
			return true
		}
	}
	return false
}

// Model runs inference on a single frame. Implementations are used from one
// goroutine only and must not retain frame after returning.
type Model interface {
	Infer(frame *safe.Mat, targetSize int) (Set, error)
	Close() error
}

// LabelFor maps a class index to its name.
func LabelFor(classes []string, id int) string {
	if id < 0 || id >= len(classes) {
		return UnknownLabel
	}
	return classes[id]
}
