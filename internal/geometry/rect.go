package geometry

import "image"

// Rect is an axis-aligned rectangle in pixel coordinates, (X1,Y1) top-left
// and (X2,Y2) bottom-right. Coordinates may be negative while a label
// position is still being searched.
type Rect struct {
	X1, Y1, X2, Y2 int
}

func NewRect(x1, y1, x2, y2 int) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// RectsOverlap reports whether a and b share interior area. Rectangles that
// only touch along an edge do not overlap.
func RectsOverlap(a, b Rect) bool {
	if a.X2 <= b.X1 || b.X2 <= a.X1 || a.Y2 <= b.Y1 || b.Y2 <= a.Y1 {
		return false
	}
	return true
}

func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// ClampTo restricts the rectangle to [0,width]x[0,height].
func (r Rect) ClampTo(width, height int) Rect {
	return Rect{
		X1: clamp(r.X1, 0, width),
		Y1: clamp(r.Y1, 0, height),
		X2: clamp(r.X2, 0, width),
		Y2: clamp(r.Y2, 0, height),
	}
}

// Image returns the rectangle as an image.Rectangle for gocv calls.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
