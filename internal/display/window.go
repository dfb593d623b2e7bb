package display

import (
	"sync/atomic"

	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Window is an OpenCV HighGUI sink. HighGUI windows belong to the thread
// that created them, so every method except Close must run on the display
// goroutine. The window is created on the first Render.
type Window struct {
	title  string
	width  int
	height int
	keys   KeySet

	window *gocv.Window
	quit   atomic.Bool
}

func NewWindow(title string, width, height int, quitKeys []int) *Window {
	return &Window{
		title:  title,
		width:  width,
		height: height,
		keys:   NewKeySet(quitKeys),
	}
}

func (w *Window) Render(frame *safe.Mat) error {
	if err := safe.ValidateFrame(frame, "window render"); err != nil {
		return err
	}

	if w.window == nil {
		w.window = gocv.NewWindow(w.title)
		w.window.ResizeWindow(w.width, w.height)
	}

	w.window.IMShow(frame.GetMat())
	return nil
}

// QuitRequested pumps the HighGUI event loop once and reports whether a quit
// key has been pressed since the window opened.
func (w *Window) QuitRequested() bool {
	if w.quit.Load() {
		return true
	}
	if w.window == nil {
		return false
	}

	key := w.window.WaitKey(1)
	if key >= 0 && w.keys.Contains(key&0xFF) {
		w.quit.Store(true)
	}
	return w.quit.Load()
}

func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
