package display

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuitKeys(t *testing.T) {
	codes, err := ParseQuitKeys([]string{"q", "ESC", "space"})
	require.NoError(t, err)
	assert.Equal(t, []int{'q', KeyEscape, KeySpace}, codes)

	_, err = ParseQuitKeys(nil)
	assert.Error(t, err)

	_, err = ParseQuitKeys([]string{"ctrl+c"})
	assert.Error(t, err)
}

func TestKeySet(t *testing.T) {
	set := NewKeySet([]int{'q', KeyEscape})
	assert.True(t, set.Contains('q'))
	assert.True(t, set.Contains(27))
	assert.False(t, set.Contains('Q'))
}

func TestWindowBeforeFirstRender(t *testing.T) {
	w := NewWindow("test", 64, 48, []int{'q'})
	assert.False(t, w.QuitRequested())
	assert.NoError(t, w.Close())
	assert.Error(t, w.Render(nil))
}

func TestFyneQuitKeys(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	f := NewFyne(app, "test", 64, 48, []int{'q', KeyEscape})
	assert.False(t, f.QuitRequested())

	f.handleRune('x')
	f.handleKey(&fyne.KeyEvent{Name: fyne.KeyF1})
	assert.False(t, f.QuitRequested())

	f.handleKey(&fyne.KeyEvent{Name: fyne.KeyEscape})
	assert.True(t, f.QuitRequested())

	g := NewFyne(app, "test", 64, 48, []int{'q'})
	g.handleRune('q')
	assert.True(t, g.QuitRequested())
}

func TestFyneRenderRejectsInvalidFrame(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	f := NewFyne(app, "test", 64, 48, []int{'q'})
	assert.Error(t, f.Render(nil))
}
