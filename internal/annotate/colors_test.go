package annotate

import (
	"errors"
	"testing"

	"reflex-vision/internal/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTable(t *testing.T) *ColorTable {
	t.Helper()

	table, err := NewColorTable(DefaultColors, DefaultColorHex)
	require.NoError(t, err)
	return table
}

func TestDefaultColorTable(t *testing.T) {
	table := defaultTable(t)

	assert.Equal(t, geometry.MustHexToColor("#E5446D"), table.Lookup("Wear long pants"))
	assert.Equal(t, geometry.MustHexToColor("#F8F4E3"), table.Lookup("Face"))
	assert.Equal(t, geometry.Color{B: 200, G: 200, R: 200}, table.Lookup("Unknown"))
	assert.Len(t, table.Labels(), len(DefaultColors))
}

func TestNewColorTableRejectsBadHex(t *testing.T) {
	_, err := NewColorTable(map[string]string{"a": "#12345"}, DefaultColorHex)
	require.Error(t, err)
	assert.True(t, errors.Is(err, geometry.ErrInvalidFormat))

	_, err = NewColorTable(nil, "nope")
	assert.True(t, errors.Is(err, geometry.ErrInvalidFormat))
}

func TestNewRejectsUnknownMode(t *testing.T) {
	_, err := New("sketch", defaultTable(t), DefaultOptions())
	assert.Error(t, err)

	a, err := New(ModeDetect, defaultTable(t), DefaultOptions())
	require.NoError(t, err)
	assert.IsType(t, &Boxes{}, a)

	a, err = New(ModeSegment, defaultTable(t), DefaultOptions())
	require.NoError(t, err)
	assert.IsType(t, &Segmentation{}, a)
}
