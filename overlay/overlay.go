// Package overlay is the UI surface of the camera.  It owns the canvas, redraws
// it on the UI loop when invalidated and serves the result as an MJPEG stream
// with the pipeline status pushed over a websocket.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/pipeline"
	"github.com/swdee/go-posecam/render"
	"github.com/swdee/go-posecam/rendercache"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	_ pipeline.UI        = (*Overlay)(nil)
	_ rendercache.Canvas = (*render.MatCanvas)(nil)
)

// ErrClosed is returned by Run once the overlay has been closed
var ErrClosed = errors.New("overlay closed")

// Options configure an Overlay
type Options struct {
	// Width and Height are the canvas size
	Width  int
	Height int
	// Rotation is the sensor rotation applied to the background frame
	Rotation int
	// Debug draws every detection and the status lines over the canvas
	Debug bool
	// StatusTextSizePx is the size of the debug status lines
	StatusTextSizePx float32
	// PostQueue is the number of posted funcs buffered for the UI loop
	PostQueue int
}

// Overlay is the UI loop and canvas
type Overlay struct {
	opts   Options
	cache  *rendercache.Cache
	canvas *render.MatCanvas
	log    logrus.FieldLogger

	invalidate chan struct{}
	posts      chan func()
	done       chan struct{}
	stop       sync.Once

	mu         sync.Mutex
	background gocv.Mat
	status     pipeline.Status

	frames   *hub[[]byte]
	statuses *hub[[]byte]

	redraws atomic.Uint64
}

// New returns an Overlay drawing cache onto a canvas using font
func New(opts Options, cache *rendercache.Cache, font *render.Font, log logrus.FieldLogger) (*Overlay, error) {

	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}

	if cache == nil || font == nil {
		return nil, errors.New("overlay requires a render cache and a font")
	}

	if opts.PostQueue <= 0 {
		opts.PostQueue = 16
	}

	return &Overlay{
		opts:       opts,
		cache:      cache,
		canvas:     render.NewMatCanvas(opts.Width, opts.Height, font),
		log:        log,
		invalidate: make(chan struct{}, 1),
		posts:      make(chan func(), opts.PostQueue),
		done:       make(chan struct{}),
		background: gocv.NewMat(),
		frames:     newHub[[]byte](),
		statuses:   newHub[[]byte](),
	}, nil
}

// Invalidate requests a redraw, requests made before the UI loop gets to it
// collapse into one
func (o *Overlay) Invalidate() {
	select {
	case o.invalidate <- struct{}{}:
	default:
	}
}

// Post runs fn on the UI loop.  Posted funcs run in order, after Close they
// are dropped.
func (o *Overlay) Post(fn func()) {
	select {
	case o.posts <- fn:
	case <-o.done:
	}
}

// SetStatus shows the pipeline status and pushes it to status subscribers
func (o *Overlay) SetStatus(s pipeline.Status) {

	o.mu.Lock()
	o.status = s
	o.mu.Unlock()

	msg, err := json.Marshal(s)

	if err != nil {
		o.log.WithError(err).Error("Error encoding status")
		return
	}

	o.statuses.publish(msg)
}

// Status returns the status last set
func (o *Overlay) Status() pipeline.Status {

	o.mu.Lock()
	defer o.mu.Unlock()

	return o.status
}

// SetBackground copies the camera frame drawn behind the overlay
func (o *Overlay) SetBackground(frame gocv.Mat) {

	o.mu.Lock()
	defer o.mu.Unlock()

	frame.CopyTo(&o.background)
}

// Run is the UI loop, it returns when ctx is done or the overlay is closed
func (o *Overlay) Run(ctx context.Context) error {

	defer o.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.done:
			return ErrClosed
		case fn := <-o.posts:
			fn()
		case <-o.invalidate:
			o.redraw()
		}
	}
}

// redraw paints the background, the tracked people and the debug layer then
// publishes the canvas to the stream
func (o *Overlay) redraw() {

	if err := o.drawBackground(); err != nil {
		o.log.WithError(err).Warn("Error drawing background")
	}

	o.cache.Draw(o.canvas)

	if o.opts.Debug {
		o.cache.DrawDebug(o.canvas)
		o.drawStatus()
	}

	o.redraws.Inc()

	if o.frames.count() == 0 {
		return
	}

	buf, err := o.canvas.EncodeJPEG()

	if err != nil {
		o.log.WithError(err).Error("Error encoding canvas")
		return
	}

	o.frames.publish(buf)
}

func (o *Overlay) drawBackground() error {

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.background.Empty() {
		o.canvas.Clear(render.Black)
		return nil
	}

	toCanvas, err := rendercache.FrameToCanvas(o.background.Cols(), o.background.Rows(),
		o.opts.Rotation, o.canvas.Size())

	if err != nil {
		o.canvas.Clear(render.Black)
		return err
	}

	return o.canvas.DrawFrame(o.background, toCanvas)
}

// drawStatus writes the status lines at the bottom left of the canvas
func (o *Overlay) drawStatus() {

	s := o.Status()

	lines := []string{
		"Frame: " + s.FrameSize,
		"Crop: " + s.CropSize,
		"Inference Time: " + s.InferenceText,
	}

	size := o.opts.StatusTextSizePx

	if size <= 0 {
		return
	}

	lineHeight := size * 1.5
	y := float32(o.opts.Height) - lineHeight*float32(len(lines))

	for _, line := range lines {
		o.canvas.Text(geometry.Pt(0, y), line, size, render.Black)
		y += lineHeight
	}
}

// Redraws returns the number of redraws done by the UI loop
func (o *Overlay) Redraws() uint64 {
	return o.redraws.Load()
}

// shutdown stops accepting posts and ends the streams
func (o *Overlay) shutdown() {
	o.stop.Do(func() {
		close(o.done)
		o.frames.close()
		o.statuses.close()
	})
}

// Close stops the UI loop and frees the canvas.  Run must have returned or
// never been started.
func (o *Overlay) Close() error {

	o.shutdown()

	o.mu.Lock()
	defer o.mu.Unlock()

	return multierr.Combine(o.canvas.Close(), o.background.Close())
}
