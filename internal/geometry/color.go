package geometry

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when a color string is not 6 hex digits.
var ErrInvalidFormat = errors.New("invalid color format")

// Color is an 8-bit color stored in the pipeline's raster channel order (BGR).
type Color struct {
	B uint8
	G uint8
	R uint8
}

// HexToColor parses "#RRGGBB" or "RRGGBB" into a BGR Color.
func HexToColor(hex string) (Color, error) {
	digits := strings.TrimPrefix(hex, "#")
	if len(digits) != 6 {
		return Color{}, fmt.Errorf("%w: %q must have 6 hex digits", ErrInvalidFormat, hex)
	}

	value, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q is not hexadecimal", ErrInvalidFormat, hex)
	}

	return Color{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
	}, nil
}

// MustHexToColor is HexToColor for package-level palette values.
func MustHexToColor(hex string) Color {
	c, err := HexToColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// RGBA converts to the color.RGBA value gocv drawing functions take;
// gocv reorders it into a BGR scalar internally.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0}
}

var (
	White = MustHexToColor("#FFFFFF")
	Green = MustHexToColor("#00FF00")
	Blue  = MustHexToColor("#0000FF")
)
