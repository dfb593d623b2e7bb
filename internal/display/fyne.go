package display

import (
	"fmt"
	"sync"
	"sync/atomic"

	"reflex-vision/internal/opencv/conversion"
	"reflex-vision/internal/opencv/safe"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// Fyne renders frames into a fyne window. Unlike Window it may be fed from
// any goroutine, but Run must be called from main and blocks until the
// window closes.
type Fyne struct {
	app    fyne.App
	window fyne.Window
	image  *canvas.Image
	keys   KeySet

	quit      atomic.Bool
	exited    atomic.Bool
	closeOnce sync.Once
}

func NewFyne(app fyne.App, title string, width, height int, quitKeys []int) *Fyne {
	f := &Fyne{
		app:  app,
		keys: NewKeySet(quitKeys),
	}

	f.image = canvas.NewImageFromImage(nil)
	f.image.FillMode = canvas.ImageFillContain
	f.image.ScaleMode = canvas.ImageScaleFastest
	f.image.SetMinSize(fyne.NewSize(float32(width)/2, float32(height)/2))

	f.window = app.NewWindow(title)
	f.window.SetContent(f.image)
	f.window.Resize(fyne.NewSize(float32(width), float32(height)))
	f.window.Canvas().SetOnTypedKey(f.handleKey)
	f.window.Canvas().SetOnTypedRune(f.handleRune)
	f.window.SetOnClosed(func() {
		f.quit.Store(true)
	})

	return f
}

// Run shows the window and runs the fyne event loop.
func (f *Fyne) Run() {
	f.window.ShowAndRun()
	f.exited.Store(true)
}

func (f *Fyne) Render(frame *safe.Mat) error {
	if f.exited.Load() {
		return nil
	}

	img, err := conversion.MatToImage(frame)
	if err != nil {
		return fmt.Errorf("fyne render: %w", err)
	}

	fyne.Do(func() {
		f.image.Image = img
		f.image.Refresh()
	})
	return nil
}

func (f *Fyne) QuitRequested() bool {
	return f.quit.Load()
}

// Close stops the fyne event loop, which makes Run return. It does nothing
// once the loop has already exited.
func (f *Fyne) Close() error {
	if f.exited.Load() {
		return nil
	}
	f.closeOnce.Do(func() {
		fyne.Do(func() {
			f.app.Quit()
		})
	})
	return nil
}

func (f *Fyne) handleKey(ev *fyne.KeyEvent) {
	var code int
	switch ev.Name {
	case fyne.KeyEscape:
		code = KeyEscape
	case fyne.KeyReturn, fyne.KeyEnter:
		code = KeyEnter
	case fyne.KeySpace:
		code = KeySpace
	default:
		return
	}
	if f.keys.Contains(code) {
		f.quit.Store(true)
	}
}

func (f *Fyne) handleRune(r rune) {
	if f.keys.Contains(int(r)) {
		f.quit.Store(true)
	}
}
