// Package detect implements the detection collaborator over an OpenCV
// DNN model. The censoring core never depends on it directly; it only
// sees the boxes returned per frame.
package detect

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"platecensor/internal/censor"
	"platecensor/internal/logger"
	"platecensor/internal/track"
	"platecensor/internal/video"
)

// inputSize is the square network input the frame is resized into.
const inputSize = 300

// DNNDetector runs a single-shot license plate detection network on
// decoded frames. Detection rows below the caller's confidence
// threshold are dropped; surviving rows are scaled from normalized
// network coordinates back to pixel coordinates.
type DNNDetector struct {
	net       gocv.Net
	modelPath string
	log       *logger.Logger
}

// NewDNNDetector loads the detection network from modelPath. The model
// file must exist; the error message tells the operator where to get it.
func NewDNNDetector(modelPath, configPath string, log *logger.Logger) (*DNNDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf(
			"model not found at %s; download the license plate detector model and point MODEL_PATH at it",
			modelPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	log.Info("detection network initialized from %s", modelPath)
	return &DNNDetector{net: net, modelPath: modelPath, log: log}, nil
}

// Detect runs the network on one frame and returns the plate boxes
// whose confidence is at or above confThreshold, in pixel coordinates.
func (d *DNNDetector) Detect(f censor.Frame, confThreshold float64) ([]track.Box, error) {
	mf, ok := f.(*video.MatFrame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", f)
	}
	mat := mf.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	blob := gocv.BlobFromImage(*mat, 1.0/127.5, image.Pt(inputSize, inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	cols := float64(mat.Cols())
	rows := float64(mat.Rows())

	var boxes []track.Box
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := float64(reshaped.GetFloatAt(i, 2))
		if confidence < confThreshold {
			continue
		}

		box := track.Box{
			X1: float64(reshaped.GetFloatAt(i, 3)) * cols,
			Y1: float64(reshaped.GetFloatAt(i, 4)) * rows,
			X2: float64(reshaped.GetFloatAt(i, 5)) * cols,
			Y2: float64(reshaped.GetFloatAt(i, 6)) * rows,
		}
		if !box.Valid() {
			d.log.Warning("dropping malformed detection %+v (confidence %.2f)", box, confidence)
			continue
		}
		boxes = append(boxes, box)
	}

	return boxes, nil
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	return d.net.Close()
}
