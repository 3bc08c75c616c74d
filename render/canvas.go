// Package render draws the overlay onto a gocv Mat.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-posecam/geometry"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// MatCanvas is a BGRA Mat the overlay is drawn on.  It is not safe for
// concurrent use.
type MatCanvas struct {
	mat  gocv.Mat
	font *Font
	// frame holds the BGRA converted background frame
	frame gocv.Mat
	warp  gocv.Mat
	bgr   gocv.Mat
}

// NewMatCanvas allocates a width x height canvas drawing text with f
func NewMatCanvas(width, height int, f *Font) *MatCanvas {
	return &MatCanvas{
		mat:   gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4),
		font:  f,
		frame: gocv.NewMat(),
		warp:  gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F),
		bgr:   gocv.NewMat(),
	}
}

// Size returns the canvas width and height
func (c *MatCanvas) Size() image.Point {
	return image.Pt(c.mat.Cols(), c.mat.Rows())
}

// Mat returns the canvas raster
func (c *MatCanvas) Mat() gocv.Mat {
	return c.mat
}

// Clear fills the whole canvas with clr
func (c *MatCanvas) Clear(clr color.RGBA) {
	c.mat.SetTo(gocv.NewScalar(float64(clr.B), float64(clr.G), float64(clr.R), float64(clr.A)))
}

// DrawFrame paints a camera frame as the canvas background through the frame
// to canvas transform.  One channel frames are taken as gray, three as BGR
// and four as BGRA.
func (c *MatCanvas) DrawFrame(frame gocv.Mat, toCanvas geometry.Transform) error {

	switch frame.Channels() {
	case 1:
		gocv.CvtColor(frame, &c.frame, gocv.ColorGrayToBGRA)
	case 3:
		gocv.CvtColor(frame, &c.frame, gocv.ColorBGRToBGRA)
	case 4:
		frame.CopyTo(&c.frame)
	default:
		return fmt.Errorf("unsupported frame with %d channels", frame.Channels())
	}

	m := toCanvas.Affine2x3()

	for i, v := range m {
		c.warp.SetDoubleAt(i/3, i%3, v)
	}

	c.Clear(Black)

	gocv.WarpAffineWithParams(c.frame, &c.mat, c.warp, c.Size(), gocv.InterpolationLinear,
		gocv.BorderTransparent, transparent)

	return nil
}

// EncodeJPEG returns the canvas encoded as a JPEG image
func (c *MatCanvas) EncodeJPEG() ([]byte, error) {

	gocv.CvtColor(c.mat, &c.bgr, gocv.ColorBGRAToBGR)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.bgr)

	if err != nil {
		return nil, fmt.Errorf("error encoding canvas: %w", err)
	}

	defer buf.Close()

	// the native buffer is freed on Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())

	return out, nil
}

// Close frees the canvas
func (c *MatCanvas) Close() error {
	return multierr.Combine(c.mat.Close(), c.frame.Close(), c.warp.Close(), c.bgr.Close())
}
