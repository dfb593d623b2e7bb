package conversion

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"reflex-vision/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solidFrame(t *testing.T, cols, rows int, b, g, r float64) *safe.Mat {
	t.Helper()

	tmp := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
	defer tmp.Close()

	frame, err := safe.NewMatFromMatWithTracker(tmp, nil, "test")
	require.NoError(t, err)
	t.Cleanup(frame.Close)
	return frame
}

func pixel(t *testing.T, m *safe.Mat, row, col int) [3]uint8 {
	t.Helper()

	var px [3]uint8
	for ch := 0; ch < 3; ch++ {
		v, err := m.GetUCharAt3(row, col, ch)
		require.NoError(t, err)
		px[ch] = v
	}
	return px
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, outW, outH int
		wantW, wantH     int
	}{
		{640, 480, 720, 1280, 1706, 1280},
		{1280, 720, 720, 1280, 2275, 1280},
		{100, 100, 50, 50, 50, 50},
		{100, 50, 50, 50, 100, 50},
		{480, 640, 720, 1280, 960, 1280},
		{3, 7, 10, 10, 10, 23},
	}

	for _, tt := range tests {
		gotW, gotH := ScaledSize(tt.w, tt.h, tt.outW, tt.outH)
		assert.Equal(t, tt.wantW, gotW, "width for %dx%d -> %dx%d", tt.w, tt.h, tt.outW, tt.outH)
		assert.Equal(t, tt.wantH, gotH, "height for %dx%d -> %dx%d", tt.w, tt.h, tt.outW, tt.outH)
		assert.GreaterOrEqual(t, gotW, tt.outW)
		assert.GreaterOrEqual(t, gotH, tt.outH)
	}
}

func TestScaleAndCenterCropDimensions(t *testing.T) {
	sizes := [][2]int{{640, 480}, {480, 640}, {320, 320}, {33, 17}, {720, 1280}}
	targets := [][2]int{{720, 1280}, {64, 48}, {1, 1}, {17, 33}}

	for _, s := range sizes {
		src := solidFrame(t, s[0], s[1], 10, 20, 30)
		for _, target := range targets {
			out, err := ScaleAndCenterCrop(src, target[0], target[1])
			require.NoError(t, err)
			assert.Equal(t, target[0], out.Cols())
			assert.Equal(t, target[1], out.Rows())
			out.Close()
		}
	}
}

func TestScaleAndCenterCropIsCentered(t *testing.T) {
	// 100x50 black frame with a white band over columns 25..74; a 50x50
	// target keeps scale 1 and must discard 25 columns on each side.
	src := solidFrame(t, 100, 50, 0, 0, 0)
	m := src.GetMat()
	gocv.Rectangle(&m, image.Rect(25, 0, 75, 50), color.RGBA{R: 255, G: 255, B: 255}, -1)

	out, err := ScaleAndCenterCrop(src, 50, 50)
	require.NoError(t, err)
	defer out.Close()

	for _, v := range out.ToBytes() {
		if v != 255 {
			t.Fatalf("expected only the centred white band, found value %d", v)
		}
	}
}

func TestScaleAndCenterCropInvalid(t *testing.T) {
	src := solidFrame(t, 10, 10, 0, 0, 0)

	for _, target := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := ScaleAndCenterCrop(src, target[0], target[1])
		assert.True(t, errors.Is(err, ErrInvalidDimensions))
	}

	_, err := ScaleAndCenterCrop(nil, 10, 10)
	assert.True(t, errors.Is(err, ErrInvalidDimensions))

	closed := solidFrame(t, 10, 10, 0, 0, 0)
	closed.Close()
	_, err = ScaleAndCenterCrop(closed, 10, 10)
	assert.True(t, errors.Is(err, ErrInvalidDimensions))
}

func TestMirrorHorizontal(t *testing.T) {
	src := solidFrame(t, 20, 10, 0, 0, 0)
	m := src.GetMat()
	gocv.Rectangle(&m, image.Rect(0, 0, 5, 10), color.RGBA{R: 200, G: 100, B: 50}, -1)

	out, err := MirrorHorizontal(src)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, [3]uint8{50, 100, 200}, pixel(t, out, 5, 19))
	assert.Equal(t, [3]uint8{0, 0, 0}, pixel(t, out, 5, 0))
	assert.Equal(t, [3]uint8{50, 100, 200}, pixel(t, src, 5, 0), "source must be untouched")
}

func TestMatToImage(t *testing.T) {
	src := solidFrame(t, 4, 3, 10, 20, 30)

	img, err := MatToImage(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	r, g, b, a := img.At(2, 1).RGBA()
	assert.Equal(t, uint32(30), r>>8)
	assert.Equal(t, uint32(20), g>>8)
	assert.Equal(t, uint32(10), b>>8)
	assert.Equal(t, uint32(255), a>>8)
}
