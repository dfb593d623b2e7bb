package annotate

import (
	"fmt"
	"image"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/geometry"
	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// labelMargin lifts a label's baseline above the top edge of its box.
const labelMargin = 5

// LabelPlacement records where the label of dets[Index] is drawn.
type LabelPlacement struct {
	Index    int
	Rect     geometry.Rect
	Baseline int
}

// Segmentation fills mask polygons on a translucent overlay, outlines boxes
// and stacks labels without overlap.
type Segmentation struct {
	colors *ColorTable
	opts   Options
	font   gocv.HersheyFont
}

func NewSegmentation(colors *ColorTable, opts Options) (*Segmentation, error) {
	if colors == nil {
		return nil, fmt.Errorf("color table is nil")
	}
	if opts.Alpha < 0 || opts.Alpha > 1 {
		return nil, fmt.Errorf("alpha %.2f outside [0,1]", opts.Alpha)
	}
	if opts.FontScale <= 0 || opts.TextThickness <= 0 || opts.BoxThickness <= 0 {
		return nil, fmt.Errorf("font scale and thicknesses must be positive")
	}

	return &Segmentation{
		colors: colors,
		opts:   opts,
		font:   gocv.FontHersheySimplex,
	}, nil
}

// PlanLabels runs the label layout for dets without drawing anything.
func (s *Segmentation) PlanLabels(dets detection.Set) []LabelPlacement {
	layout := NewLabelLayout()
	placements := make([]LabelPlacement, 0, len(dets))

	for i, d := range dets {
		if d.Label == s.opts.NoLabelClass {
			continue
		}

		size, baseline := gocv.GetTextSizeWithBaseline(d.Label, s.font, s.opts.FontScale, s.opts.TextThickness)
		rect := layout.Place(d.Box.X1, d.Box.Y1-labelMargin, size.X, size.Y, baseline)
		placements = append(placements, LabelPlacement{Index: i, Rect: rect, Baseline: baseline})
	}

	return placements
}

func (s *Segmentation) Annotate(frame *safe.Mat, dets detection.Set) (*safe.Mat, error) {
	if err := safe.ValidateFrame(frame, "segmentation annotation"); err != nil {
		return nil, err
	}

	if len(dets) == 0 {
		return frame.CloneAs("annotate")
	}

	annotated, err := frame.CloneAs("annotate")
	if err != nil {
		return nil, err
	}

	overlay, err := frame.CloneAs("overlay")
	if err != nil {
		annotated.Close()
		return nil, err
	}
	defer overlay.Close()

	annotatedMat := annotated.GetMat()
	overlayMat := overlay.GetMat()

	labels := make(map[int]LabelPlacement, len(dets))
	for _, p := range s.PlanLabels(dets) {
		labels[p.Index] = p
	}

	for i, d := range dets {
		c := s.colors.Lookup(d.Label).RGBA()

		if d.HasPolygon() {
			pts := gocv.NewPointsVectorFromPoints([][]image.Point{d.Polygon})
			gocv.FillPoly(&overlayMat, pts, c)
			pts.Close()
		}

		gocv.Rectangle(&annotatedMat, d.Box.Image(), c, s.opts.BoxThickness)

		p, ok := labels[i]
		if !ok {
			continue
		}

		gocv.Rectangle(&annotatedMat, p.Rect.Image(), c, -1)
		gocv.PutTextWithParams(&annotatedMat, d.Label, image.Pt(p.Rect.X1, p.Rect.Y2-p.Baseline),
			s.font, s.opts.FontScale, geometry.White.RGBA(), s.opts.TextThickness, gocv.LineAA, false)
	}

	gocv.AddWeighted(overlayMat, s.opts.Alpha, annotatedMat, 1-s.opts.Alpha, 0, &annotatedMat)

	return annotated, nil
}
