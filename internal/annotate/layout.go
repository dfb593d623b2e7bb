package annotate

import "reflex-vision/internal/geometry"

// labelRowGap separates stacked labels.
const labelRowGap = 2

// LabelLayout places text labels so that later labels move out of the way of
// earlier ones. A layout lives for a single annotation pass.
type LabelLayout struct {
	placed []geometry.Rect
}

func NewLabelLayout() *LabelLayout {
	return &LabelLayout{}
}

// Place finds a spot for a textW x (textH+baseline) label whose bottom-left
// corner is anchored at (x, y), records it and returns it.
//
// While the candidate overlaps an earlier label it moves up one row. The
// first time a move would cross the top edge of the frame the label goes
// below the anchor at the same accumulated offset instead, and is accepted
// without checking for overlap again.
func (l *LabelLayout) Place(x, y, textW, textH, baseline int) geometry.Rect {
	height := textH + baseline
	step := height + labelRowGap

	candidate := geometry.NewRect(x, y-height, x+textW, y)
	offset := 0
	for l.collides(candidate) {
		offset += step
		candidate = geometry.NewRect(x, y-height-offset, x+textW, y-offset)
		if candidate.Y1 < 0 {
			candidate = geometry.NewRect(x, y+offset, x+textW, y+height+offset)
			break
		}
	}

	l.placed = append(l.placed, candidate)
	return candidate
}

func (l *LabelLayout) collides(candidate geometry.Rect) bool {
	for _, r := range l.placed {
		if geometry.RectsOverlap(candidate, r) {
			return true
		}
	}
	return false
}
