package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/geometry"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// PadRecord describes how a pose input square was cut from its source image
// so pose model coordinates can be taken back to source pixels
type PadRecord struct {
	// Offset is the top left corner of the clamped region in the source
	Offset geometry.Point
	// ScaleSize is the larger side of the unclamped box
	ScaleSize float32
	// Side is the side length of the resized square
	Side int
	// Region is the clamped source region the square was filled from
	Region image.Rectangle
}

// ToSource maps a point in the resized square back to source pixels
func (p PadRecord) ToSource(pt geometry.Point) geometry.Point {

	ratio := p.ScaleSize / float32(p.Side)

	return geometry.Point{
		X: pt.X*ratio + p.Offset.X,
		Y: pt.Y*ratio + p.Offset.Y,
	}
}

// ClampOrigin returns the top left corner of the region a box covers, the
// left and top edges clamped to zero and rounded up
func ClampOrigin(box geometry.Rect) image.Point {
	return image.Pt(
		int(math.Ceil(float64(max(box.Left, 0)))),
		int(math.Ceil(float64(max(box.Top, 0)))),
	)
}

// ClampBox returns the integer source region a box covers.  The origin is
// ClampOrigin, the width and height are limited to the image and truncated.
func ClampBox(box geometry.Rect, imgW, imgH int) image.Rectangle {

	origin := ClampOrigin(box)
	left, top := origin.X, origin.Y

	w := box.Width()

	if float32(left)+w > float32(imgW) {
		w = float32(imgW - left)
	}

	h := box.Height()

	if float32(top)+h > float32(imgH) {
		h = float32(imgH - top)
	}

	// not image.Rect, a negative size must stay empty rather than be swapped
	return image.Rectangle{
		Min: image.Pt(left, top),
		Max: image.Pt(left+int(w), top+int(h)),
	}
}

// PadToSquareAndResize cuts box out of src, places it at the top left of a
// white square whose side is the larger of the region width and height, and
// resizes the square to side x side.  The returned Mat must be closed by the
// caller.
func PadToSquareAndResize(src gocv.Mat, box geometry.Rect, side int) (gocv.Mat, PadRecord, error) {

	region := ClampBox(box, src.Cols(), src.Rows())

	if region.Dx() <= 0 || region.Dy() <= 0 || region.Max.X > src.Cols() || region.Max.Y > src.Rows() {
		return gocv.Mat{}, PadRecord{}, fmt.Errorf("%w: box %s clamps to empty region %v in %dx%d image",
			posecam.ErrInvalidGeometry, box, region, src.Cols(), src.Rows())
	}

	rec := PadRecord{
		Offset:    geometry.Pt(float32(region.Min.X), float32(region.Min.Y)),
		ScaleSize: max(box.Width(), box.Height()),
		Side:      side,
		Region:    region,
	}

	sub := src.Region(region)
	square := gocv.NewMat()
	out := gocv.NewMat()

	sq := max(region.Dx(), region.Dy())

	gocv.CopyMakeBorder(sub, &square, 0, sq-region.Dy(), 0, sq-region.Dx(),
		gocv.BorderConstant, white)

	gocv.Resize(square, &out, image.Pt(side, side), 0, 0, gocv.InterpolationLinear)

	if err := multierr.Combine(sub.Close(), square.Close()); err != nil {
		out.Close()
		return gocv.Mat{}, PadRecord{}, err
	}

	return out, rec, nil
}
