package annotate

import (
	"fmt"
	"sort"

	"reflex-vision/internal/geometry"
)

// DefaultColorHex is used for labels missing from the table.
const DefaultColorHex = "#C8C8C8"

// DefaultColors is the fixed label palette the display ships with.
var DefaultColors = map[string]string{
	"Face":                    "#F8F4E3",
	"Tie your hair":           "#706C61",
	"Wear long pants":         "#E5446D",
	"Wear covered shoes":      "#FF8966",
	"Wear short sleeve shirt": "#2A2B2A",
}

// ColorTable maps class labels to display colors. It is built once at
// startup and only read afterwards, so one table can be shared by reference.
type ColorTable struct {
	colors   map[string]geometry.Color
	fallback geometry.Color
}

// NewColorTable parses every hex value up front; any malformed entry fails
// the whole table.
func NewColorTable(hexByLabel map[string]string, fallbackHex string) (*ColorTable, error) {
	fallback, err := geometry.HexToColor(fallbackHex)
	if err != nil {
		return nil, fmt.Errorf("default color: %w", err)
	}

	colors := make(map[string]geometry.Color, len(hexByLabel))
	for label, hex := range hexByLabel {
		c, err := geometry.HexToColor(hex)
		if err != nil {
			return nil, fmt.Errorf("color for %q: %w", label, err)
		}
		colors[label] = c
	}

	return &ColorTable{colors: colors, fallback: fallback}, nil
}

func (t *ColorTable) Lookup(label string) geometry.Color {
	if c, ok := t.colors[label]; ok {
		return c
	}
	return t.fallback
}

// Labels lists the mapped labels in sorted order.
func (t *ColorTable) Labels() []string {
	labels := make([]string, 0, len(t.colors))
	for label := range t.colors {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
