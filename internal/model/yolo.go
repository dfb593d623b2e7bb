package model

import (
	"fmt"
	"image"
	"math"
	"sort"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/geometry"

	"gocv.io/x/gocv"
)

// MaskCoefficients is the number of prototype masks a YOLOv8-seg head uses.
const MaskCoefficients = 32

// classOffset separates boxes of different classes so that one NMS pass
// only suppresses within a class.
const classOffset = 8192

const maskThreshold = 0.5

// Output is one raw forward pass.
type Output struct {
	// Predictions is laid out [features][anchors] with features =
	// 4 box values, one score per class, then mask coefficients.
	Predictions []float32
	Features    int
	Anchors     int

	// Protos is [MaskCoefficients][ProtoH][ProtoW], nil for detection models.
	Protos []float32
	ProtoH int
	ProtoW int
}

// Decoder turns YOLOv8 output tensors into detections on the source frame.
type Decoder struct {
	Classes    []string
	Confidence float32
	IoU        float32
	// Segment enables polygon extraction when prototypes are present.
	Segment bool
}

type candidate struct {
	class  int
	score  float32
	box    geometry.Rect // frame coordinates
	coeffs []float32
}

func (d *Decoder) Decode(out Output, lb Letterbox) (detection.Set, error) {
	nc := len(d.Classes)
	if out.Anchors <= 0 || out.Features < 4+nc {
		return nil, fmt.Errorf("output has %d features for %d classes", out.Features, nc)
	}
	if len(out.Predictions) < out.Features*out.Anchors {
		return nil, fmt.Errorf("output holds %d values, want %d", len(out.Predictions), out.Features*out.Anchors)
	}

	withMasks := d.Segment && out.Protos != nil && out.Features >= 4+nc+MaskCoefficients
	cands := d.candidates(out, lb, nc, withMasks)
	if len(cands) == 0 {
		return detection.Set{}, nil
	}

	keep := d.suppress(cands)

	dets := make(detection.Set, 0, len(keep))
	for _, idx := range keep {
		c := cands[idx]
		det := detection.Detection{
			Label:      detection.LabelFor(d.Classes, c.class),
			Confidence: float64(c.score),
			Box:        c.box,
		}
		if withMasks {
			det.Polygon = maskPolygon(c, out, lb)
		}
		dets = append(dets, det)
	}

	return dets, nil
}

func (d *Decoder) candidates(out Output, lb Letterbox, nc int, withMasks bool) []candidate {
	at := func(feature, anchor int) float32 {
		return out.Predictions[feature*out.Anchors+anchor]
	}

	var cands []candidate
	for a := 0; a < out.Anchors; a++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < nc; c++ {
			if s := at(4+c, a); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < d.Confidence {
			continue
		}

		cx, cy := float64(at(0, a)), float64(at(1, a))
		w, h := float64(at(2, a)), float64(at(3, a))
		x1, y1 := lb.ToSource(cx-w/2, cy-h/2)
		x2, y2 := lb.ToSource(cx+w/2, cy+h/2)

		box := geometry.NewRect(
			int(math.Round(x1)), int(math.Round(y1)),
			int(math.Round(x2)), int(math.Round(y2)),
		).ClampTo(lb.SrcW, lb.SrcH)
		if box.Empty() {
			continue
		}

		c := candidate{class: best, score: bestScore, box: box}

		if withMasks {
			c.coeffs = make([]float32, MaskCoefficients)
			for k := 0; k < MaskCoefficients; k++ {
				c.coeffs[k] = at(4+nc+k, a)
			}
		}
		cands = append(cands, c)
	}
	return cands
}

// suppress runs class-aware NMS and returns the kept candidate indices in
// descending score order.
func (d *Decoder) suppress(cands []candidate) []int {
	rects := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		off := c.class * classOffset
		rects[i] = c.box.Image().Add(image.Pt(off, off))
		scores[i] = c.score
	}

	keep := gocv.NMSBoxes(rects, scores, d.Confidence, d.IoU)
	sort.SliceStable(keep, func(i, j int) bool {
		return cands[keep[i]].score > cands[keep[j]].score
	})
	return keep
}

// maskPolygon assembles the instance mask from the prototypes, limits it to
// the box and returns the outline of its largest region in frame
// coordinates.
func maskPolygon(c candidate, out Output, lb Letterbox) []image.Point {
	mh, mw := out.ProtoH, out.ProtoW
	if mh <= 0 || mw <= 0 || len(out.Protos) < MaskCoefficients*mh*mw {
		return nil
	}

	// box in prototype coordinates
	sx := float64(mw) / float64(lb.Size)
	sy := float64(mh) / float64(lb.Size)
	bx1 := int((float64(c.box.X1)*lb.Scale + float64(lb.PadX)) * sx)
	by1 := int((float64(c.box.Y1)*lb.Scale + float64(lb.PadY)) * sy)
	bx2 := int(math.Ceil((float64(c.box.X2)*lb.Scale + float64(lb.PadX)) * sx))
	by2 := int(math.Ceil((float64(c.box.Y2)*lb.Scale + float64(lb.PadY)) * sy))

	plane := mh * mw
	pixels := make([]byte, plane)
	for y := max(by1, 0); y < min(by2, mh); y++ {
		for x := max(bx1, 0); x < min(bx2, mw); x++ {
			idx := y*mw + x
			var sum float32
			for k, coeff := range c.coeffs {
				sum += coeff * out.Protos[k*plane+idx]
			}
			if sigmoid(sum) > maskThreshold {
				pixels[idx] = 255
			}
		}
	}

	mask, err := gocv.NewMatFromBytes(mh, mw, gocv.MatTypeCV8UC1, pixels)
	if err != nil {
		return nil
	}
	defer mask.Close()

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil
	}

	pts := contours.At(best).ToPoints()
	if len(pts) < 3 {
		return nil
	}

	poly := make([]image.Point, len(pts))
	for i, p := range pts {
		x, y := lb.ToSource(float64(p.X)/sx, float64(p.Y)/sy)
		poly[i] = image.Pt(
			int(math.Round(clampF(x, 0, float64(lb.SrcW-1)))),
			int(math.Round(clampF(y, 0, float64(lb.SrcH-1)))),
		)
	}
	return poly
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
