// Package camera delivers preview frames from a gocv capture device or video
// file.  A frame is only read once the consumer has signalled it is ready for
// the next one.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by Run when a video file has no more frames
var ErrEndOfStream = errors.New("end of stream")

// source is the part of gocv.VideoCapture the camera reads from
type source interface {
	Read(m *gocv.Mat) bool
	Set(prop gocv.VideoCaptureProperties, v float64)
	Get(prop gocv.VideoCaptureProperties) float64
	Close() error
}

// Options configure a Camera
type Options struct {
	// Device is a capture device index, eg: 0, or a video file path
	Device string
	// Width and Height are the preview size requested from the device
	Width  int
	Height int
	// FPS paces the frames read from a video file, 0 reads as fast as the
	// consumer allows
	FPS float64
	// Loop rewinds a video file when it ends
	Loop bool
}

// Camera reads preview frames
type Camera struct {
	src  source
	opts Options
	// file is set when reading from a video file
	file bool
	size image.Point
	// frame is reused for every read, consumers copy what they keep
	frame gocv.Mat
	// pending is the frame read while negotiating the preview size
	pending bool
	// ready holds a token while the consumer is ready for a frame
	ready chan struct{}
	log   logrus.FieldLogger
}

// Open opens the device and negotiates the preview size
func Open(opts Options, log logrus.FieldLogger) (*Camera, error) {

	var (
		capture *gocv.VideoCapture
		err     error
		file    bool
	)

	if id, convErr := strconv.Atoi(opts.Device); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(id)
	} else {
		capture, err = gocv.VideoCaptureFile(opts.Device)
		file = true
	}

	if err != nil {
		return nil, fmt.Errorf("error opening capture device %q: %w", opts.Device, err)
	}

	return newCamera(capture, file, opts, log)
}

func newCamera(src source, file bool, opts Options, log logrus.FieldLogger) (*Camera, error) {

	if !file && opts.Width > 0 && opts.Height > 0 {
		src.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		src.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}

	c := &Camera{
		src:   src,
		opts:  opts,
		file:  file,
		frame: gocv.NewMat(),
		ready: make(chan struct{}, 1),
		log:   log,
	}

	// the device may not support the requested size, the first frame tells
	// what it chose
	if ok := src.Read(&c.frame); !ok || c.frame.Empty() {
		c.Close()
		return nil, fmt.Errorf("capture device %q returned no frame", opts.Device)
	}

	c.pending = true
	c.size = image.Pt(c.frame.Cols(), c.frame.Rows())
	c.ready <- struct{}{}

	log.WithFields(logrus.Fields{
		"device":    opts.Device,
		"requested": fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"chosen":    fmt.Sprintf("%dx%d", c.size.X, c.size.Y),
	}).Info("Preview size chosen")

	return c, nil
}

// Size returns the negotiated preview size
func (c *Camera) Size() image.Point {
	return c.size
}

// readyFunc returns the signal for one delivered frame, calling it more than
// once has no further effect
func (c *Camera) readyFunc() func() {

	var done atomic.Bool

	return func() {
		if done.CompareAndSwap(false, true) {
			c.ready <- struct{}{}
		}
	}
}

// Run delivers frames to process until ctx is done or the stream ends.  The
// frame passed to process is only valid until ready is called.
func (c *Camera) Run(ctx context.Context, process func(frame gocv.Mat, ready func())) error {

	var tick <-chan time.Time

	if c.file && c.opts.FPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / c.opts.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ready:
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		if err := c.next(); err != nil {
			return err
		}

		process(c.frame, c.readyFunc())
	}
}

// next reads the following frame into c.frame
func (c *Camera) next() error {

	if c.pending {
		c.pending = false
		return nil
	}

	for attempt := 0; attempt < 2; attempt++ {

		if ok := c.src.Read(&c.frame); ok && !c.frame.Empty() {
			break
		}

		if !c.file || !c.opts.Loop || attempt > 0 {
			return ErrEndOfStream
		}

		c.log.Debug("Rewinding video file")
		c.src.Set(gocv.VideoCapturePosFrames, 0)
	}

	if c.frame.Cols() != c.size.X || c.frame.Rows() != c.size.Y {
		gocv.Resize(c.frame, &c.frame, c.size, 0, 0, gocv.InterpolationLinear)
	}

	return nil
}

// Close releases the device
func (c *Camera) Close() error {

	return multierr.Combine(c.src.Close(), c.frame.Close())
}
