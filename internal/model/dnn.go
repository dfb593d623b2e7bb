package model

import (
	"fmt"
	"image"
	"image/color"

	"reflex-vision/internal/detection"
	"reflex-vision/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// DNN runs the network with OpenCV's dnn module.
type DNN struct {
	net     gocv.Net
	decoder *Decoder
	outputs []string
}

func NewDNN(opts Options) (*DNN, error) {
	net := gocv.ReadNetFromONNX(opts.Path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model %q", opts.Path)
	}

	if opts.Device == "cuda" {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	outputs := []string{"output0"}
	if opts.Segment {
		outputs = append(outputs, "output1")
	}

	return &DNN{
		net:     net,
		decoder: opts.decoder(),
		outputs: outputs,
	}, nil
}

func (m *DNN) Infer(frame *safe.Mat, targetSize int) (detection.Set, error) {
	if err := safe.ValidateFrame(frame, "dnn inference"); err != nil {
		return nil, err
	}

	blob, lb := letterboxBlob(frame, targetSize)
	defer blob.Close()

	m.net.SetInput(blob, "images")
	outs := m.net.ForwardLayers(m.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != len(m.outputs) {
		return nil, fmt.Errorf("network returned %d outputs, want %d", len(outs), len(m.outputs))
	}

	out, err := dnnOutput(outs)
	if err != nil {
		return nil, err
	}

	return m.decoder.Decode(out, lb)
}

func (m *DNN) Close() error {
	return m.net.Close()
}

// letterboxBlob fits frame into a size x size input padded with PadValue
// and converts it to a normalised RGB NCHW blob.
func letterboxBlob(frame *safe.Mat, size int) (gocv.Mat, Letterbox) {
	lb := NewLetterbox(frame.Cols(), frame.Rows(), size)
	src := frame.GetMat()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(lb.NewW, lb.NewH), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	defer padded.Close()
	pad := color.RGBA{R: PadValue, G: PadValue, B: PadValue}
	gocv.CopyMakeBorder(resized, &padded,
		lb.PadY, size-lb.NewH-lb.PadY, lb.PadX, size-lb.NewW-lb.PadX,
		gocv.BorderConstant, pad)

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	return blob, lb
}

func dnnOutput(outs []gocv.Mat) (Output, error) {
	dims := outs[0].Size()
	if len(dims) != 3 {
		return Output{}, fmt.Errorf("unexpected prediction shape %v", dims)
	}
	preds, err := outs[0].DataPtrFloat32()
	if err != nil {
		return Output{}, fmt.Errorf("read predictions: %w", err)
	}

	out := Output{
		Predictions: append([]float32(nil), preds...),
		Features:    dims[1],
		Anchors:     dims[2],
	}

	if len(outs) > 1 {
		pdims := outs[1].Size()
		if len(pdims) != 4 {
			return Output{}, fmt.Errorf("unexpected prototype shape %v", pdims)
		}
		protos, err := outs[1].DataPtrFloat32()
		if err != nil {
			return Output{}, fmt.Errorf("read prototypes: %w", err)
		}
		out.Protos = append([]float32(nil), protos...)
		out.ProtoH = pdims[2]
		out.ProtoW = pdims[3]
	}

	return out, nil
}
