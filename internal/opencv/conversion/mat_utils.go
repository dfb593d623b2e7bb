package conversion

import (
	"errors"
	"fmt"
	"image"
	"math"

	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrInvalidDimensions is returned for a non-positive target size or an empty frame.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// ResizeMat resizes Mat to new dimensions using specified interpolation
func ResizeMat(src *safe.Mat, newWidth, newHeight int, interpolation gocv.InterpolationFlags) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "Mat resizing"); err != nil {
		return nil, err
	}

	if newWidth <= 0 || newHeight <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", newWidth, newHeight)
	}

	dst, err := safe.NewMatLike(src, newHeight, newWidth, src.Type(), "resize")
	if err != nil {
		return nil, err
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	gocv.Resize(srcMat, &dstMat, image.Pt(newWidth, newHeight), 0, 0, interpolation)

	return dst, nil
}

// CropMat extracts a rectangular region from the Mat
func CropMat(src *safe.Mat, x, y, width, height int) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "Mat cropping"); err != nil {
		return nil, err
	}

	if x < 0 || y < 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid crop parameters: x=%d, y=%d, w=%d, h=%d", x, y, width, height)
	}

	if x+width > src.Cols() || y+height > src.Rows() {
		return nil, fmt.Errorf("crop region exceeds Mat bounds: Mat=%dx%d, crop=%d,%d to %d,%d",
			src.Cols(), src.Rows(), x, y, x+width, y+height)
	}

	dst, err := safe.NewMatLike(src, height, width, src.Type(), "crop")
	if err != nil {
		return nil, err
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	region := srcMat.Region(image.Rect(x, y, x+width, y+height))
	defer region.Close()
	region.CopyTo(&dstMat)

	return dst, nil
}

// MirrorHorizontal returns a left-right reflected copy of src.
func MirrorHorizontal(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "horizontal mirror"); err != nil {
		return nil, err
	}

	dst, err := safe.NewMatLike(src, src.Rows(), src.Cols(), src.Type(), "mirror")
	if err != nil {
		return nil, err
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.Flip(srcMat, &dstMat, 1)

	return dst, nil
}

// ScaledSize returns the dimensions of a w x h frame scaled by
// max(outW/w, outH/h), never smaller than the target in either axis.
func ScaledSize(w, h, outW, outH int) (int, int) {
	scale := math.Max(float64(outW)/float64(w), float64(outH)/float64(h))

	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < outW {
		nw = outW
	}
	if nh < outH {
		nh = outH
	}
	return nw, nh
}

// ScaleAndCenterCrop fills an outW x outH window with src: the frame is
// scaled uniformly until it covers the window, then the centre is cut out.
func ScaleAndCenterCrop(src *safe.Mat, outW, outH int) (*safe.Mat, error) {
	if outW <= 0 || outH <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidDimensions, outW, outH)
	}

	if err := safe.ValidateMatForOperation(src, "scale and crop"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDimensions, err)
	}

	w, h := src.Cols(), src.Rows()
	if w == outW && h == outH {
		return src.CloneAs("scale")
	}

	nw, nh := ScaledSize(w, h, outW, outH)

	resized, err := ResizeMat(src, nw, nh, gocv.InterpolationLinear)
	if err != nil {
		return nil, fmt.Errorf("resize to %dx%d failed: %w", nw, nh, err)
	}

	if nw == outW && nh == outH {
		return resized, nil
	}
	defer resized.Close()

	return CropMat(resized, (nw-outW)/2, (nh-outH)/2, outW, outH)
}
