// Package detector runs the SSD object detection model on the detector input
// raster.
package detector

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/postprocess"
	"github.com/swdee/go-posecam/preprocess"
	"github.com/swdee/go-posecam/result"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Params configure the detector
type Params struct {
	// InputSize is the side length of the square model input
	InputSize int
	// Quantized models take uint8 RGB, float models take (p - 128) / 128
	Quantized bool
	// Device selects the inference backend
	Device engine.Device
	// NumThreads is the initial backend thread count, 0 for the default
	NumThreads int
}

// floatNorm is the input normalization of float detector models
var floatNorm = preprocess.Normalization{Mean: 128, Std: 128}

// Detector runs an SSD model.  It is not safe for concurrent use.
type Detector struct {
	eng    engine.Engine
	ssd    *postprocess.SSD
	params Params
	log    logrus.FieldLogger
}

// Load creates a Detector from the model and labels blobs
func Load(loader engine.Loader, model, labels []byte, p Params, log logrus.FieldLogger) (*Detector, error) {

	names, err := posecam.ParseLabels(labels)

	if err != nil {
		return nil, err
	}

	eng, err := loader.Load(model, engine.Options{
		Device:     p.Device,
		NumThreads: p.NumThreads,
		Log:        log,
	})

	if err != nil {
		return nil, fmt.Errorf("%w: detector: %w", posecam.ErrModelLoadFailed, err)
	}

	if err := checkInput(eng, p.InputSize); err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: detector: %w", posecam.ErrModelLoadFailed, err),
			eng.Close())
	}

	if n := len(eng.Outputs()); n < 3 {
		return nil, multierr.Append(fmt.Errorf("%w: detector has %d outputs, expected 4",
			posecam.ErrModelLoadFailed, n), eng.Close())
	}

	ssdParams := postprocess.SSDCOCOParams()
	ssdParams.InputSize = p.InputSize

	if shape := eng.Outputs()[1].Shape; len(shape) == 2 {
		ssdParams.MaxDetections = shape[1]
	}

	log.WithFields(logrus.Fields{
		"input":     eng.Inputs()[0].String(),
		"labels":    len(names),
		"quantized": p.Quantized,
	}).Info("Detector loaded")

	return &Detector{
		eng:    eng,
		ssd:    postprocess.NewSSD(names, ssdParams),
		params: p,
		log:    log,
	}, nil
}

// checkInput verifies the model takes a single [1,size,size,3] input
func checkInput(eng engine.Engine, size int) error {

	inputs := eng.Inputs()

	if len(inputs) == 0 {
		return fmt.Errorf("%w: model has no inputs", posecam.ErrShapeMismatch)
	}

	s := inputs[0].Shape

	if len(s) != 4 || s[1] != size || s[2] != size || s[3] != 3 {
		return fmt.Errorf("%w: model input %v, expected [1 %d %d 3]",
			posecam.ErrShapeMismatch, s, size, size)
	}

	return nil
}

// Recognize runs detection on an InputSize x InputSize RGBA raster and
// returns the recognitions in detector input pixels
func (d *Detector) Recognize(raster gocv.Mat) ([]result.Recognition, error) {

	var norm *preprocess.Normalization

	if !d.params.Quantized {
		norm = &floatNorm
	}

	input, err := preprocess.ToModelInput(raster, d.params.InputSize, norm)

	if err != nil {
		return nil, err
	}

	defer input.Close()

	outputs, err := d.eng.Invoke(input)

	if err != nil {
		return nil, fmt.Errorf("detector inference: %w", err)
	}

	return d.ssd.Decode(outputs)
}

// SetUseAccelerator enables or disables the backend hardware accelerator
func (d *Detector) SetUseAccelerator(on bool) error {
	return d.eng.SetUseAccelerator(on)
}

// SetNumThreads sets the backend thread count
func (d *Detector) SetNumThreads(n int) error {
	return d.eng.SetNumThreads(n)
}

// Close releases the model
func (d *Detector) Close() error {
	return d.eng.Close()
}
