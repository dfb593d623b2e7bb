package conversion

import (
	"fmt"
	"image"

	"reflex-vision/internal/opencv/safe"
)

// MatToImage converts a BGR frame to a standard Go image
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()

	switch src.Channels() {
	case 1:
		return bytesToGray(src.ToBytes(), rows, cols)
	case 3:
		return bgrBytesToRGBA(src.ToBytes(), rows, cols)
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

func bytesToGray(data []byte, rows, cols int) (*image.Gray, error) {
	if len(data) < rows*cols {
		return nil, fmt.Errorf("pixel buffer too short: %d bytes for %dx%d", len(data), cols, rows)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data[:rows*cols])
	return img, nil
}

func bgrBytesToRGBA(data []byte, rows, cols int) (*image.RGBA, error) {
	if len(data) < rows*cols*3 {
		return nil, fmt.Errorf("pixel buffer too short: %d bytes for %dx%d", len(data), cols, rows)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i, j := 0, 0; i < rows*cols*3; i, j = i+3, j+4 {
		img.Pix[j] = data[i+2]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i]
		img.Pix[j+3] = 255
	}
	return img, nil
}
