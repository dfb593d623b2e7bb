package model

import "math"

// PadValue is the grey level used around letterboxed input.
const PadValue = 114

// Letterbox describes how a srcW x srcH frame was fitted into the square
// network input: scaled uniformly to NewW x NewH and centred with padding.
type Letterbox struct {
	Size       int
	SrcW, SrcH int
	NewW, NewH int
	Scale      float64
	PadX, PadY int
}

func NewLetterbox(srcW, srcH, size int) Letterbox {
	scale := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))

	nw := int(math.Round(float64(srcW) * scale))
	nh := int(math.Round(float64(srcH) * scale))
	if nw > size {
		nw = size
	}
	if nh > size {
		nh = size
	}

	return Letterbox{
		Size:  size,
		SrcW:  srcW,
		SrcH:  srcH,
		NewW:  nw,
		NewH:  nh,
		Scale: scale,
		PadX:  (size - nw) / 2,
		PadY:  (size - nh) / 2,
	}
}

// ToSource maps a point in network input coordinates back onto the frame.
func (l Letterbox) ToSource(x, y float64) (float64, float64) {
	return (x - float64(l.PadX)) / l.Scale, (y - float64(l.PadY)) / l.Scale
}

// AnchorCount is the number of predictions a YOLOv8 head emits for a square
// input of the given size (strides 8, 16 and 32).
func AnchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}
	return n
}
