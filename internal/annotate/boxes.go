package annotate

import (
	"image"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/geometry"
	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Boxes is the cheap renderer for box-only results: one color, a label on a
// solid background above each box, no fills and no collision handling.
type Boxes struct {
	Color     geometry.Color
	FontScale float64
	Thickness int
	font      gocv.HersheyFont
}

func NewBoxes() *Boxes {
	return &Boxes{
		Color:     geometry.Blue,
		FontScale: 0.9,
		Thickness: 2,
		font:      gocv.FontHersheySimplex,
	}
}

func (b *Boxes) Annotate(frame *safe.Mat, dets detection.Set) (*safe.Mat, error) {
	if err := safe.ValidateFrame(frame, "box annotation"); err != nil {
		return nil, err
	}

	annotated, err := frame.CloneAs("annotate")
	if err != nil {
		return nil, err
	}

	m := annotated.GetMat()
	c := b.Color.RGBA()

	for _, d := range dets {
		gocv.Rectangle(&m, d.Box.Image(), c, b.Thickness)

		size := gocv.GetTextSize(d.Label, b.font, b.FontScale, b.Thickness)
		x, y := d.Box.X1, d.Box.Y1-10

		gocv.Rectangle(&m, image.Rect(x, y-size.Y-4, x+size.X, y), c, -1)
		gocv.PutTextWithParams(&m, d.Label, image.Pt(x, y-2), b.font, b.FontScale,
			geometry.White.RGBA(), b.Thickness, gocv.LineAA, false)
	}

	return annotated, nil
}
