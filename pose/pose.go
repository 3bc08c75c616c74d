// Package pose runs the single person PoseNet model on a padded person crop.
package pose

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/postprocess"
	"github.com/swdee/go-posecam/preprocess"
	"github.com/swdee/go-posecam/result"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// inputNorm is the PoseNet input normalization
var inputNorm = preprocess.Normalization{Mean: 127.5, Std: 127.5}

// Params configure the pose estimator
type Params struct {
	// Side is the side length of the square model input
	Side int
	// Device selects CPU, GPU or the NPU
	Device engine.Device
	// NumThreads is the backend thread count, 0 for the default
	NumThreads int
}

// Estimator runs a PoseNet model.  It is not safe for concurrent use.
type Estimator struct {
	eng    engine.Engine
	decode *postprocess.PoseNet
	side   int
	log    logrus.FieldLogger
}

// Load creates an Estimator from the model blob on the requested device
func Load(loader engine.Loader, model []byte, p Params, log logrus.FieldLogger) (*Estimator, error) {

	eng, err := loader.Load(model, engine.Options{
		Device:     p.Device,
		NumThreads: p.NumThreads,
		Log:        log,
	})

	if err != nil {
		return nil, fmt.Errorf("%w: pose: %w", posecam.ErrModelLoadFailed, err)
	}

	inputs := eng.Inputs()

	if len(inputs) == 0 || len(inputs[0].Shape) != 4 ||
		inputs[0].Shape[1] != p.Side || inputs[0].Shape[2] != p.Side {
		var shape []int

		if len(inputs) > 0 {
			shape = inputs[0].Shape
		}

		return nil, multierr.Append(fmt.Errorf("%w: pose model input %v, expected [1 %d %d 3]: %w",
			posecam.ErrModelLoadFailed, shape, p.Side, p.Side, posecam.ErrShapeMismatch), eng.Close())
	}

	if len(eng.Outputs()) < 2 {
		return nil, multierr.Append(fmt.Errorf("%w: pose model has %d outputs, expected heatmap and offsets",
			posecam.ErrModelLoadFailed, len(eng.Outputs())), eng.Close())
	}

	log.WithFields(logrus.Fields{
		"device":  p.Device,
		"input":   inputs[0].String(),
		"heatmap": eng.Outputs()[0].String(),
	}).Info("Pose estimator loaded")

	return &Estimator{
		eng:    eng,
		decode: postprocess.NewPoseNet(p.Side),
		side:   p.Side,
		log:    log,
	}, nil
}

// EstimateSingle predicts the 17 keypoints of the person in a side x side
// RGBA raster.  scaleSize and sourceBox describe where the raster was cut
// from and are stored on the Person, the offset is the clamped top left
// corner of sourceBox.
func (e *Estimator) EstimateSingle(raster gocv.Mat, scaleSize float32, sourceBox geometry.Rect) (result.Person, error) {

	input, err := preprocess.ToModelInput(raster, e.side, &inputNorm)

	if err != nil {
		return result.Person{}, err
	}

	defer input.Close()

	outputs, err := e.eng.Invoke(input)

	if err != nil {
		return result.Person{}, fmt.Errorf("%w: %w", posecam.ErrPoseEstimationUnavailable, err)
	}

	person, err := e.decode.Decode(outputs)

	if err != nil {
		return result.Person{}, err
	}

	person.ScaleSize = scaleSize
	person.SourceBox = sourceBox
	origin := preprocess.ClampOrigin(sourceBox)
	person.Offset = geometry.Pt(float32(origin.X), float32(origin.Y))

	return person, nil
}

// Close releases the model
func (e *Estimator) Close() error {
	return e.eng.Close()
}
