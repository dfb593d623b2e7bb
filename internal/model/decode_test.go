package model

import (
	"image"
	"testing"

	"reflex-vision/internal/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tensor builds a [features][anchors] prediction buffer from per-anchor
// feature vectors.
func tensor(features int, anchors ...[]float32) []float32 {
	out := make([]float32, features*len(anchors))
	for a, values := range anchors {
		for f, v := range values {
			out[f*len(anchors)+a] = v
		}
	}
	return out
}

func TestLetterbox(t *testing.T) {
	lb := NewLetterbox(640, 480, 320)
	assert.Equal(t, 0.5, lb.Scale)
	assert.Equal(t, 320, lb.NewW)
	assert.Equal(t, 240, lb.NewH)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 40, lb.PadY)

	x, y := lb.ToSource(160, 160)
	assert.Equal(t, 320.0, x)
	assert.Equal(t, 240.0, y)

	tall := NewLetterbox(720, 1280, 320)
	assert.Equal(t, 320, tall.NewH)
	assert.Equal(t, 180, tall.NewW)
	assert.Equal(t, 70, tall.PadX)
}

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 2100, AnchorCount(320))
	assert.Equal(t, 8400, AnchorCount(640))
}

func TestDecodeDetections(t *testing.T) {
	d := &Decoder{Classes: []string{"a", "b"}, Confidence: 0.25, IoU: 0.45}
	lb := NewLetterbox(640, 480, 320)

	out := Output{
		Features: 6,
		Anchors:  4,
		Predictions: tensor(6,
			[]float32{160, 160, 80, 40, 0.9, 0.0},
			[]float32{162, 160, 80, 40, 0.8, 0.1}, // overlaps the first, same class
			[]float32{160, 160, 80, 40, 0.1, 0.7}, // same box, other class
			[]float32{50, 50, 10, 10, 0.1, 0.2},   // below threshold
		),
	}

	dets, err := d.Decode(out, lb)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "a", dets[0].Label)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.Equal(t, geometry.NewRect(240, 200, 400, 280), dets[0].Box)
	assert.Nil(t, dets[0].Polygon)

	assert.Equal(t, "b", dets[1].Label)
	assert.InDelta(t, 0.7, dets[1].Confidence, 1e-6)
}

func TestDecodeClampsBoxesToFrame(t *testing.T) {
	d := &Decoder{Classes: []string{"a"}, Confidence: 0.25, IoU: 0.45}
	lb := NewLetterbox(320, 320, 320)

	out := Output{
		Features:    5,
		Anchors:     1,
		Predictions: tensor(5, []float32{0, 0, 100, 100, 0.8}),
	}

	dets, err := d.Decode(out, lb)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, geometry.NewRect(0, 0, 50, 50), dets[0].Box)
}

func TestDecodeRoundsAndDropsOffFrameBoxes(t *testing.T) {
	d := &Decoder{Classes: []string{"a"}, Confidence: 0.25, IoU: 0.45}
	lb := NewLetterbox(320, 320, 320)

	out := Output{
		Features: 5,
		Anchors:  2,
		Predictions: tensor(5,
			[]float32{310, 300, 30.6, 50, 0.8},
			[]float32{-50, -50, 10, 10, 0.9}, // entirely above and left of the frame
		),
	}

	dets, err := d.Decode(out, lb)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, geometry.NewRect(295, 275, 320, 320), dets[0].Box)
}

func TestDecodeEmptyAndInvalid(t *testing.T) {
	d := &Decoder{Classes: []string{"a"}, Confidence: 0.5, IoU: 0.45}
	lb := NewLetterbox(320, 320, 320)

	dets, err := d.Decode(Output{Features: 5, Anchors: 1, Predictions: tensor(5, []float32{10, 10, 5, 5, 0.2})}, lb)
	require.NoError(t, err)
	assert.Empty(t, dets)

	_, err = d.Decode(Output{Features: 4, Anchors: 1, Predictions: make([]float32, 4)}, lb)
	assert.Error(t, err, "too few features for the class list")

	_, err = d.Decode(Output{Features: 5, Anchors: 10, Predictions: make([]float32, 5)}, lb)
	assert.Error(t, err, "buffer shorter than its shape")
}

func TestDecodeSegmentationPolygon(t *testing.T) {
	const (
		size  = 32
		proto = 8
	)
	d := &Decoder{Classes: []string{"a"}, Confidence: 0.25, IoU: 0.45, Segment: true}
	lb := NewLetterbox(size, size, size)

	features := 4 + 1 + MaskCoefficients
	anchor := make([]float32, features)
	copy(anchor, []float32{16, 16, 32, 32, 0.9})
	anchor[5] = 1 // first mask coefficient

	protos := make([]float32, MaskCoefficients*proto*proto)
	for y := 0; y < proto; y++ {
		for x := 0; x < proto; x++ {
			v := float32(-5)
			if x >= 2 && x <= 5 && y >= 2 && y <= 5 {
				v = 5
			}
			protos[y*proto+x] = v
		}
	}

	out := Output{
		Features:    features,
		Anchors:     1,
		Predictions: tensor(features, anchor),
		Protos:      protos,
		ProtoH:      proto,
		ProtoW:      proto,
	}

	dets, err := d.Decode(out, lb)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.True(t, dets[0].HasPolygon())

	assert.Len(t, dets[0].Polygon, 4)
	assert.Contains(t, dets[0].Polygon, image.Pt(8, 8))
	assert.Contains(t, dets[0].Polygon, image.Pt(20, 20))

	d.Segment = false
	dets, err = d.Decode(out, lb)
	require.NoError(t, err)
	assert.Nil(t, dets[0].Polygon, "polygons only in segment mode")
}

func TestLoadRejectsBadOptions(t *testing.T) {
	_, err := Load(Options{Backend: BackendDNN, Path: "x.onnx"})
	assert.Error(t, err, "no classes")

	_, err = Load(Options{Backend: "tflite", Classes: []string{"a"}})
	assert.Error(t, err)
}

func TestFillInputPadsAndNormalises(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	lb := NewLetterbox(64, 32, 32)
	dst := make([]float32, 3*32*32)
	fillInput(dst, img, lb)

	assert.InDelta(t, float32(PadValue)/255, dst[0], 1e-6, "top rows are padding")
	assert.InDelta(t, 1.0, dst[16*32+16], 1e-3, "centre holds the image")
	assert.InDelta(t, 1.0, dst[2*32*32+16*32+16], 1e-3)
}
