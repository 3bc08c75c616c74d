// Package pipeline drives camera frames through person detection and pose
// estimation and hands the results to the render cache.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/preprocess"
	"github.com/swdee/go-posecam/result"
	"go.uber.org/atomic"
	"gocv.io/x/gocv"
)

// Detector finds objects in the detector input raster
type Detector interface {
	Recognize(raster gocv.Mat) ([]result.Recognition, error)
	SetUseAccelerator(on bool) error
	SetNumThreads(n int) error
}

// PoseEstimator predicts the keypoints of a single person
type PoseEstimator interface {
	EstimateSingle(raster gocv.Mat, scaleSize float32, sourceBox geometry.Rect) (result.Person, error)
}

// Tracker receives the published results of each frame
type Tracker interface {
	TrackResults(recs []result.Recognition, persons []result.Person, timestamp int64) error
}

// UI is the surface the results are shown on
type UI interface {
	// Invalidate requests a redraw of the overlay
	Invalidate()
	// Post runs fn on the UI loop
	Post(fn func())
	// SetStatus updates the status text, it is only called from the UI loop
	SetStatus(s Status)
}

// Status is the frame information shown next to the preview
type Status struct {
	// FrameSize is the preview size, eg: 640x480
	FrameSize string `json:"frame"`
	// CropSize is the detector input size, eg: 300x300
	CropSize string `json:"crop"`
	// Inference is the duration of the last pose estimation call
	Inference time.Duration `json:"-"`
	// InferenceText is Inference formatted for display, eg: 12ms
	InferenceText string `json:"inference"`
}

// Stats are frame counters of the controller
type Stats struct {
	// Seen is the number of frames passed to ProcessImage
	Seen uint64
	// Dropped is the number of frames skipped while a detection was running
	Dropped uint64
	// Processed is the number of frames whose results were published
	Processed uint64
}

// Components are the collaborators of a Controller
type Components struct {
	// Stager holds the frame and detector input rasters, the Controller takes
	// ownership and closes it
	Stager   *preprocess.Stager
	Detector Detector
	Pose     PoseEstimator
	Tracker  Tracker
	UI       UI
}

// Controller runs one detection at a time on a background worker.  Frames
// arriving while a detection is in flight are dropped.
type Controller struct {
	cfg     posecam.Config
	stager  *preprocess.Stager
	det     Detector
	pose    PoseEstimator
	tracker Tracker
	ui      UI
	exec    *Executor
	log     logrus.FieldLogger

	// computing is set from the moment a frame is accepted until its results
	// are published
	computing atomic.Bool
	timestamp atomic.Int64
	// lastInference is the duration of the most recent pose estimation call
	lastInference atomic.Duration

	seen      atomic.Uint64
	dropped   atomic.Uint64
	processed atomic.Uint64

	closed atomic.Bool
}

// New creates a Controller and starts its worker
func New(cfg posecam.Config, c Components, log logrus.FieldLogger) (*Controller, error) {

	if c.Stager == nil || c.Detector == nil || c.Pose == nil || c.Tracker == nil || c.UI == nil {
		return nil, errors.New("pipeline: missing component")
	}

	if cfg.SavePreview {
		if err := os.MkdirAll(cfg.PreviewDir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating preview directory: %w", err)
		}
	}

	size := c.Stager.FrameSize()

	log.WithFields(logrus.Fields{
		"frame": fmt.Sprintf("%dx%d", size.X, size.Y),
		"crop":  c.Stager.CropSize(),
	}).Info("Initializing pipeline")

	return &Controller{
		cfg:     cfg,
		stager:  c.Stager,
		det:     c.Detector,
		pose:    c.Pose,
		tracker: c.Tracker,
		ui:      c.UI,
		exec:    NewExecutor(4, log),
		log:     log,
	}, nil
}

// ProcessImage is called by the camera for every preview frame.  ready tells
// the camera the next frame may be delivered and is called exactly once,
// before any inference work starts.
func (c *Controller) ProcessImage(frame gocv.Mat, ready func()) {

	ts := c.timestamp.Inc()
	c.seen.Inc()
	c.ui.Invalidate()

	if !c.computing.CompareAndSwap(false, true) {
		c.dropped.Inc()
		ready()
		return
	}

	log := c.log.WithField("frame", ts)
	log.Debug("Preparing image for detection")

	err := c.stager.LoadFrame(frame)
	ready()

	if err != nil {
		log.WithError(err).Error("Could not stage frame")
		c.computing.Store(false)
		return
	}

	c.stager.WarpToCrop()

	if c.cfg.SavePreview {
		c.savePreview("crop.png", c.stager.Crop())
	}

	if err := c.exec.Submit(func() { c.runFrame(ts) }); err != nil {
		log.WithError(err).Warn("Frame not submitted")
		c.computing.Store(false)
	}
}

// runFrame detects people in the crop raster and estimates the pose of each
// accepted person.  It runs on the worker.
func (c *Controller) runFrame(ts int64) {

	// released however the frame ends, a panic in a backend included
	defer c.computing.Store(false)

	log := c.log.WithField("frame", ts)
	log.Debug("Running detection")

	crop := c.stager.Crop()
	start := time.Now()

	recs, err := c.det.Recognize(crop)

	if err != nil {
		log.WithError(err).Error("Detection failed, dropping frame")
		return
	}

	log.WithFields(logrus.Fields{
		"detections": len(recs),
		"took":       time.Since(start),
	}).Debug("Detection complete")

	mapped := make([]result.Recognition, 0, len(recs))
	persons := make([]result.Person, 0, len(recs))

	for _, rec := range recs {

		if rec.Confidence < c.cfg.MinDetectionConfidence || rec.Title != c.cfg.PersonLabel {
			continue
		}

		person, err := c.estimate(crop, rec.Location, len(persons))

		if err != nil {
			log.WithError(err).WithField("box", rec.Location).Warn("Skipping person")
			continue
		}

		// the recognition is published in frame space, the person keeps its
		// detector input crop record
		rec.Location = c.stager.CropToFrame().MapRect(rec.Location)

		mapped = append(mapped, rec)
		persons = append(persons, person)
	}

	if err := c.tracker.TrackResults(mapped, persons, ts); err != nil {
		log.WithError(err).Error("Could not publish results")
	}

	c.ui.Invalidate()
	c.processed.Inc()

	size := c.stager.FrameSize()
	st := Status{
		FrameSize: fmt.Sprintf("%dx%d", size.X, size.Y),
		CropSize:  fmt.Sprintf("%dx%d", c.stager.CropSize(), c.stager.CropSize()),
		Inference: c.lastInference.Load(),
	}
	st.InferenceText = fmt.Sprintf("%dms", st.Inference.Milliseconds())

	c.ui.Post(func() { c.ui.SetStatus(st) })
}

// estimate pads the person box out of the crop raster and runs the pose
// model on it, the pose call alone is timed
func (c *Controller) estimate(crop gocv.Mat, box geometry.Rect, n int) (result.Person, error) {

	raster, pad, err := preprocess.PadToSquareAndResize(crop, box, c.cfg.PoseInputSize)

	if err != nil {
		return result.Person{}, err
	}

	defer raster.Close()

	if c.cfg.SavePreview {
		c.savePreview(fmt.Sprintf("pose-%d.png", n), raster)
	}

	start := time.Now()
	person, err := c.pose.EstimateSingle(raster, pad.ScaleSize, box)
	c.lastInference.Store(time.Since(start))

	return person, err
}

// savePreview writes an RGBA raster to the preview directory
func (c *Controller) savePreview(name string, raster gocv.Mat) {

	bgra := gocv.NewMat()
	defer bgra.Close()

	gocv.CvtColor(raster, &bgra, gocv.ColorRGBAToBGRA)

	file := filepath.Join(c.cfg.PreviewDir, name)

	if !gocv.IMWrite(file, bgra) {
		c.log.WithField("file", file).Warn("Could not save preview image")
	}
}

// SetUseAccelerator switches the detector accelerator on the worker
func (c *Controller) SetUseAccelerator(on bool) error {
	return c.exec.Submit(func() {
		if err := c.det.SetUseAccelerator(on); err != nil {
			c.log.WithError(err).WithField("accelerator", on).Warn("Could not switch accelerator")
		}
	})
}

// SetNumThreads changes the detector thread count on the worker
func (c *Controller) SetNumThreads(n int) error {
	return c.exec.Submit(func() {
		if err := c.det.SetNumThreads(n); err != nil {
			c.log.WithError(err).WithField("threads", n).Warn("Could not set thread count")
		}
	})
}

// LastInferenceTime returns the duration of the last pose estimation call
func (c *Controller) LastInferenceTime() time.Duration {
	return c.lastInference.Load()
}

// Computing reports if a detection is in flight
func (c *Controller) Computing() bool {
	return c.computing.Load()
}

// Stats returns the frame counters
func (c *Controller) Stats() Stats {
	return Stats{
		Seen:      c.seen.Load(),
		Dropped:   c.dropped.Load(),
		Processed: c.processed.Load(),
	}
}

// CropToFrame returns the detector input to frame transform
func (c *Controller) CropToFrame() geometry.Transform {
	return c.stager.CropToFrame()
}

// Close waits for the queued work to finish and frees the rasters
func (c *Controller) Close() error {

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	// holding the guard keeps the camera away from the rasters
	for !c.computing.CompareAndSwap(false, true) {
		time.Sleep(time.Millisecond)
	}

	c.exec.Close()

	return c.stager.Close()
}
