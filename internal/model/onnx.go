package model

import (
	"fmt"
	"image"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/opencv/conversion"
	"reflex-vision/internal/opencv/safe"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNX runs the network with ONNX Runtime. Tensor shapes are fixed when the
// session is created, so every Infer call must use the same target size.
type ONNX struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	preds   *ort.Tensor[float32]
	protos  *ort.Tensor[float32]
	decoder *Decoder
	size    int
	nc      int
}

func NewONNX(opts Options) (*ONNX, error) {
	size := opts.TargetSize
	if size <= 0 || size%32 != 0 {
		return nil, fmt.Errorf("target size %d must be a positive multiple of 32", size)
	}

	if opts.ORTLibrary != "" {
		ort.SetSharedLibraryPath(opts.ORTLibrary)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	m := &ONNX{decoder: opts.decoder(), size: size, nc: len(opts.Classes)}

	features := 4 + m.nc
	if opts.Segment {
		features += MaskCoefficients
	}

	var err error
	m.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	m.preds, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(features), int64(AnchorCount(size))))
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	outputNames := []string{"output0"}
	outputs := []ort.ArbitraryTensor{m.preds}

	if opts.Segment {
		m.protos, err = ort.NewEmptyTensor[float32](ort.NewShape(1, MaskCoefficients, int64(size/4), int64(size/4)))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create prototype tensor: %w", err)
		}
		outputNames = append(outputNames, "output1")
		outputs = append(outputs, m.protos)
	}

	m.session, err = ort.NewAdvancedSession(opts.Path,
		[]string{"images"}, outputNames,
		[]ort.ArbitraryTensor{m.input}, outputs,
		nil)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return m, nil
}

func (m *ONNX) Infer(frame *safe.Mat, targetSize int) (detection.Set, error) {
	if targetSize != m.size {
		return nil, fmt.Errorf("session built for size %d, got %d", m.size, targetSize)
	}

	img, err := conversion.MatToImage(frame)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	lb := NewLetterbox(bounds.Dx(), bounds.Dy(), m.size)
	fillInput(m.input.GetData(), img, lb)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := Output{
		Predictions: m.preds.GetData(),
		Features:    int(m.preds.GetShape()[1]),
		Anchors:     int(m.preds.GetShape()[2]),
	}
	if m.protos != nil {
		out.Protos = m.protos.GetData()
		out.ProtoH = m.size / 4
		out.ProtoW = m.size / 4
	}

	return m.decoder.Decode(out, lb)
}

func (m *ONNX) Close() error {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.preds != nil {
		m.preds.Destroy()
	}
	if m.protos != nil {
		m.protos.Destroy()
	}
	return ort.DestroyEnvironment()
}

// fillInput writes img letterboxed into a planar RGB [3][size][size] buffer
// scaled to [0,1].
func fillInput(dst []float32, img image.Image, lb Letterbox) {
	size := lb.Size
	plane := size * size

	pad := float32(PadValue) / 255.0
	for i := range dst[:3*plane] {
		dst[i] = pad
	}

	resized := resize.Resize(uint(lb.NewW), uint(lb.NewH), img, resize.Bilinear)
	rb := resized.Bounds()

	for y := 0; y < lb.NewH; y++ {
		for x := 0; x < lb.NewW; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()

			idx := (y+lb.PadY)*size + x + lb.PadX
			dst[idx] = float32(r) / 65535.0
			dst[plane+idx] = float32(g) / 65535.0
			dst[2*plane+idx] = float32(b) / 65535.0
		}
	}
}
