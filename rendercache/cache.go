// Package rendercache holds the most recent frame's people and draws them
// onto the overlay canvas.  Nothing is carried between frames, each publish
// replaces the whole list.
package rendercache

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/result"
)

// KeypointMapping selects how keypoints are taken from detector input space
// to the canvas
type KeypointMapping int

const (
	// MappingLegacy scales detector input points by canvasW/size and
	// (canvasW*frameW/frameH)/size.  It only lines up with the boxes when the
	// canvas has the frame aspect.
	MappingLegacy KeypointMapping = iota
	// MappingShared sends detector input points through crop to frame and
	// frame to canvas, the same path the boxes take
	MappingShared
)

// Canvas is the drawing surface of the overlay
type Canvas interface {
	// Size returns the canvas width and height in pixels
	Size() image.Point
	// RoundRect strokes a rectangle with rounded corners
	RoundRect(r geometry.Rect, radius float32, c color.RGBA, thickness int)
	// Rect strokes a rectangle
	Rect(r geometry.Rect, c color.RGBA, thickness int)
	// Circle fills a circle
	Circle(center geometry.Point, radius float32, c color.RGBA)
	// Line draws a line segment
	Line(a, b geometry.Point, c color.RGBA, thickness int)
	// Text draws white bordered text whose box has its top left corner at
	// pos, the box is filled with a translucent bg
	Text(pos geometry.Point, text string, sizePx float32, bg color.RGBA)
}

// TrackedRecognition is a person as it is drawn
type TrackedRecognition struct {
	// Location is the box in frame space
	Location   geometry.Rect
	Confidence float32
	Title      string
	Color      color.RGBA
	KeyPoints  [result.NumKeyPoints]result.KeyPoint
	// Visible are the keypoints scoring above the draw threshold
	Visible []result.KeyPoint
	// Offset and ScaleSize undo the pose input padding, see Person
	Offset    geometry.Point
	ScaleSize float32
}

// screenRect is a detection mapped to the canvas for the debug overlay
type screenRect struct {
	confidence float32
	rect       geometry.Rect
}

// Options configure a Cache
type Options struct {
	Palette []color.RGBA
	// CyclePalette reuses colors instead of dropping people past the palette
	CyclePalette bool
	// MinBoxSize is the smallest frame space box side accepted
	MinBoxSize float32
	// CornerDivisor divides the smaller box side to get the corner radius
	CornerDivisor float32
	// MinKeypointScore is the score a keypoint must exceed to be drawn
	MinKeypointScore float32
	KeypointRadius   float32
	StrokeWidth      int
	TextSizePx       float32
	// DetectorInputSize and PoseInputSize are the model input sides
	DetectorInputSize int
	PoseInputSize     int
	DrawJoints        bool
	Mapping           KeypointMapping
	// CropToFrame is the detector input to frame transform, required by
	// MappingShared
	CropToFrame geometry.Transform
}

// OptionsFromConfig returns the Options for a configuration
func OptionsFromConfig(cfg posecam.Config) Options {

	mapping := MappingLegacy

	if cfg.SharedKeypointMapping {
		mapping = MappingShared
	}

	return Options{
		Palette:           posecam.Palette,
		CyclePalette:      cfg.CyclePalette,
		MinBoxSize:        cfg.MinBoxSize,
		CornerDivisor:     cfg.CornerDivisor,
		MinKeypointScore:  cfg.MinKeypointScore,
		KeypointRadius:    5,
		StrokeWidth:       4,
		TextSizePx:        cfg.TextSizePx(cfg.TrackerTextSizeDip),
		DetectorInputSize: cfg.DetectorInputSize,
		PoseInputSize:     cfg.PoseInputSize,
		DrawJoints:        cfg.DrawJoints,
		Mapping:           mapping,
	}
}

var (
	debugBox   = color.RGBA{R: 255, A: 200}
	debugLabel = color.RGBA{A: 255}
)

// Cache is the render state shared by the worker publishing results and the
// UI loop drawing them.  Every method holds the same lock.
type Cache struct {
	mu   sync.Mutex
	opts Options
	log  logrus.FieldLogger

	frameW   int
	frameH   int
	rotation int
	// frameToCanvas is rebuilt by every Draw
	frameToCanvas geometry.Transform

	tracked     []TrackedRecognition
	screenRects []screenRect
}

// New returns an empty Cache
func New(opts Options, log logrus.FieldLogger) *Cache {
	return &Cache{
		opts: opts,
		log:  log,
	}
}

// SetFrameConfiguration sets the frame size and the sensor rotation relative
// to the canvas
func (c *Cache) SetFrameConfiguration(width, height, rotation int) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.frameW = width
	c.frameH = height
	c.rotation = rotation
}

// SetCropToFrame sets the detector input to frame transform used by
// MappingShared
func (c *Cache) SetCropToFrame(t geometry.Transform) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.CropToFrame = t
}

// TrackResults replaces the tracked list with the frame's results.  recs are
// in frame space and persons[i] belongs to recs[i].
func (c *Cache) TrackResults(recs []result.Recognition, persons []result.Person, timestamp int64) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"results": len(recs),
		"frame":   timestamp,
	}).Debug("Processing results")

	if len(recs) != len(persons) {
		return fmt.Errorf("%w: %d recognitions with %d persons",
			posecam.ErrShapeMismatch, len(recs), len(persons))
	}

	c.processResults(recs, persons)

	return nil
}

// processResults rebuilds the screen rects and the tracked list, c.mu must be
// held
func (c *Cache) processResults(recs []result.Recognition, persons []result.Person) {

	c.screenRects = c.screenRects[:0]
	c.tracked = make([]TrackedRecognition, 0, len(recs))

	toScreen := c.frameToCanvas

	if toScreen.IsZero() {
		toScreen = geometry.Identity()
	}

	for i, rec := range recs {

		screen := toScreen.MapRect(rec.Location)
		c.screenRects = append(c.screenRects, screenRect{confidence: rec.Confidence, rect: screen})

		if rec.Location.Smaller(c.opts.MinBoxSize) {
			c.log.WithError(fmt.Errorf("%w: %s", posecam.ErrDegenerateDetection, rec.Location)).
				Warn("Degenerate rectangle")
			continue
		}

		idx := len(c.tracked)

		if idx >= len(c.opts.Palette) {
			if !c.opts.CyclePalette || len(c.opts.Palette) == 0 {
				continue
			}

			idx %= len(c.opts.Palette)
		}

		c.tracked = append(c.tracked, TrackedRecognition{
			Location:   rec.Location,
			Confidence: rec.Confidence,
			Title:      rec.Title,
			Color:      c.opts.Palette[idx],
			KeyPoints:  persons[i].KeyPoints,
			Visible:    persons[i].Visible(c.opts.MinKeypointScore),
			Offset:     persons[i].Offset,
			ScaleSize:  persons[i].ScaleSize,
		})
	}

	if len(c.tracked) == 0 {
		c.log.Debug("Nothing to track")
	}
}

// Tracked returns a copy of the tracked list
func (c *Cache) Tracked() []TrackedRecognition {

	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]TrackedRecognition(nil), c.tracked...)
}

// FrameToCanvas returns the transform fitting a frame into a canvas.  The
// rotated frame is scaled by the largest factor that fits the canvas and is
// anchored at the top left.
func FrameToCanvas(frameW, frameH, rotation int, canvas image.Point) (geometry.Transform, error) {

	rot, err := geometry.NormalizeRotation(rotation)

	if err != nil {
		return geometry.Transform{}, err
	}

	fw, fh := frameW, frameH

	if rot%180 == 90 {
		fw, fh = frameH, frameW
	}

	if fw <= 0 || fh <= 0 {
		return geometry.Transform{}, fmt.Errorf("%w: frame size %dx%d not set",
			posecam.ErrInvalidGeometry, frameW, frameH)
	}

	multiplier := min(float32(canvas.Y)/float32(fh), float32(canvas.X)/float32(fw))

	return geometry.Build(frameW, frameH, int(multiplier*float32(fw)), int(multiplier*float32(fh)),
		rotation, false)
}

// KeypointToDetector maps a pose input position back to detector input
// space using the padding record of its person
func KeypointToDetector(p geometry.Point, scaleSize float32, offset geometry.Point, poseSide int) geometry.Point {

	sizeRatio := scaleSize / float32(poseSide)

	return geometry.Point{
		X: p.X*sizeRatio + offset.X,
		Y: p.Y*sizeRatio + offset.Y,
	}
}

// Draw paints the tracked people onto the canvas
func (c *Cache) Draw(canvas Canvas) {

	c.mu.Lock()
	defer c.mu.Unlock()

	size := canvas.Size()

	toCanvas, err := FrameToCanvas(c.frameW, c.frameH, c.rotation, size)

	if err != nil {
		c.log.WithError(err).Debug("Frame configuration not usable, skipping draw")
		return
	}

	c.frameToCanvas = toCanvas

	detSize := float32(c.opts.DetectorInputSize)
	scaleX := float32(size.X) / detSize
	// integer product and quotient, the keypoint scale is not the box scale
	scaleY := float32(size.X*c.frameW/c.frameH) / detSize

	shared := c.opts.Mapping == MappingShared && !c.opts.CropToFrame.IsZero()

	toCanvasPt := func(tr TrackedRecognition, p geometry.Point) geometry.Point {

		d := KeypointToDetector(p, tr.ScaleSize, tr.Offset, c.opts.PoseInputSize)

		if shared {
			return toCanvas.MapPoint(c.opts.CropToFrame.MapPoint(d))
		}

		return geometry.Pt(d.X*scaleX, d.Y*scaleY)
	}

	for _, tr := range c.tracked {

		pos := toCanvas.MapRect(tr.Location)
		corner := min(pos.Width(), pos.Height()) / c.opts.CornerDivisor

		canvas.RoundRect(pos, corner, tr.Color, c.opts.StrokeWidth)

		for _, kp := range tr.Visible {
			canvas.Circle(toCanvasPt(tr, kp.Position), c.opts.KeypointRadius, tr.Color)
		}

		if c.opts.DrawJoints {
			for _, joint := range result.BodyJoints {
				a, b := tr.KeyPoints[joint[0]], tr.KeyPoints[joint[1]]

				if a.Score > c.opts.MinKeypointScore && b.Score > c.opts.MinKeypointScore {
					canvas.Line(toCanvasPt(tr, a.Position), toCanvasPt(tr, b.Position),
						tr.Color, c.opts.StrokeWidth)
				}
			}
		}

		canvas.Text(geometry.Pt(pos.Left+corner, pos.Top), Label(tr.Title, tr.Confidence),
			c.opts.TextSizePx, tr.Color)
	}
}

// Label formats the box label, eg: person 73.00%
func Label(title string, confidence float32) string {

	if title == "" {
		return fmt.Sprintf("%.2f%%", 100*confidence)
	}

	return fmt.Sprintf("%s %.2f%%", title, 100*confidence)
}

// DrawDebug paints every detection of the last publish, including rejected
// ones, as plain rectangles with their confidence
func (c *Cache) DrawDebug(canvas Canvas) {

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sr := range c.screenRects {
		text := fmt.Sprintf("%v", sr.confidence)

		canvas.Rect(sr.rect, debugBox, 1)
		canvas.Text(sr.rect.TopLeft(), text, 3*c.opts.TextSizePx, debugLabel)
		canvas.Text(geometry.Pt(sr.rect.CenterX(), sr.rect.CenterY()), text, c.opts.TextSizePx, debugBox)
	}
}
