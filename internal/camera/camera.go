// Package camera reads frames from a local device, a video file or a network
// stream through OpenCV.
package camera

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const frameTag = "capture"

// apis maps config names to OpenCV cv::CAP_* backend ids.
var apis = map[string]gocv.VideoCaptureAPI{
	"any":          gocv.VideoCaptureAny,
	"v4l2":         gocv.VideoCaptureAPI(200),
	"dshow":        gocv.VideoCaptureAPI(700),
	"avfoundation": gocv.VideoCaptureAPI(1200),
	"msmf":         gocv.VideoCaptureAPI(1400),
	"gstreamer":    gocv.VideoCaptureAPI(1800),
	"ffmpeg":       gocv.VideoCaptureAPI(1900),
}

// ParseAPI resolves a capture backend name. Empty means any.
func ParseAPI(name string) (gocv.VideoCaptureAPI, error) {
	if name == "" {
		return gocv.VideoCaptureAny, nil
	}
	api, ok := apis[strings.ToLower(name)]
	if !ok {
		return gocv.VideoCaptureAny, fmt.Errorf("unknown capture api %q", name)
	}
	return api, nil
}

type Options struct {
	Source     string
	API        string
	Width      int
	Height     int
	BufferSize int
}

// Camera is a single opened capture device. Read and Close may be called
// from different goroutines.
type Camera struct {
	capture *gocv.VideoCapture
	tracker safe.MemoryTracker
	source  string
	mu      sync.Mutex
	closed  bool
}

// Open starts capturing from opts.Source. A source that parses as an integer
// is treated as a device index, anything else as a path or URL.
func Open(opts Options, tracker safe.MemoryTracker) (*Camera, error) {
	api, err := ParseAPI(opts.API)
	if err != nil {
		return nil, err
	}

	var capture *gocv.VideoCapture
	if index, convErr := strconv.Atoi(strings.TrimSpace(opts.Source)); convErr == nil {
		capture, err = gocv.VideoCaptureDeviceWithAPI(index, api)
	} else {
		capture, err = gocv.VideoCaptureFileWithAPI(opts.Source, api)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %q: %w", opts.Source, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %q did not open", opts.Source)
	}

	if opts.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.BufferSize > 0 {
		capture.Set(gocv.VideoCaptureBufferSize, float64(opts.BufferSize))
	}

	return &Camera{
		capture: capture,
		tracker: tracker,
		source:  opts.Source,
	}, nil
}

// Read grabs the next frame. It returns false on a failed or empty read and
// after Close.
func (c *Camera) Read() (*safe.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false
	}

	img := gocv.NewMat()
	if ok := c.capture.Read(&img); !ok || img.Empty() {
		img.Close()
		return nil, false
	}

	if img.Type() != gocv.MatTypeCV8UC3 {
		converted := gocv.NewMat()
		code := gocv.ColorGrayToBGR
		if img.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		gocv.CvtColor(img, &converted, code)
		img.Close()
		img = converted
	}

	frame, err := safe.Adopt(img, c.tracker, frameTag)
	if err != nil {
		return nil, false
	}
	return frame, true
}

// Size reports the frame size the device negotiated.
func (c *Camera) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, 0
	}
	return int(c.capture.Get(gocv.VideoCaptureFrameWidth)), int(c.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (c *Camera) Source() string {
	return c.source
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.capture.Close()
}
