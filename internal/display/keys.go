// Package display shows annotated frames and reports when the user asks to
// quit.
package display

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	KeyEscape = 27
	KeyEnter  = 13
	KeySpace  = 32
)

var namedKeys = map[string]int{
	"esc":    KeyEscape,
	"escape": KeyEscape,
	"enter":  KeyEnter,
	"return": KeyEnter,
	"space":  KeySpace,
}

// ParseQuitKeys converts key names into key codes. A name is either one of
// esc, enter, space or a single printable character.
func ParseQuitKeys(names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no quit keys configured")
	}

	codes := make([]int, 0, len(names))
	for _, name := range names {
		if code, ok := namedKeys[strings.ToLower(name)]; ok {
			codes = append(codes, code)
			continue
		}
		if utf8.RuneCountInString(name) != 1 {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		r, _ := utf8.DecodeRuneInString(name)
		codes = append(codes, int(r))
	}
	return codes, nil
}

// KeySet answers whether a key code is one of the quit keys.
type KeySet map[int]struct{}

func NewKeySet(codes []int) KeySet {
	set := make(KeySet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func (k KeySet) Contains(code int) bool {
	_, ok := k[code]
	return ok
}
