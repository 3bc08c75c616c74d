package render

import (
	"image"
	"image/color"
	"math"

	"github.com/swdee/go-posecam/geometry"
	"gocv.io/x/gocv"
)

// RoundRect strokes a rectangle whose corners are quarter circles of the
// given radius.  The radius is limited to half the shorter side.
func (c *MatCanvas) RoundRect(r geometry.Rect, radius float32, clr color.RGBA, thickness int) {

	rect := r.Sorted().ImageRect()
	rad := int(math.Round(float64(radius)))
	rad = min(rad, rect.Dx()/2, rect.Dy()/2)

	if rad <= 0 {
		gocv.Rectangle(&c.mat, rect, clr, thickness)
		return
	}

	l, t, rr, b := rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y

	// straight edges between the corners
	gocv.Line(&c.mat, image.Pt(l+rad, t), image.Pt(rr-rad, t), clr, thickness)
	gocv.Line(&c.mat, image.Pt(l+rad, b), image.Pt(rr-rad, b), clr, thickness)
	gocv.Line(&c.mat, image.Pt(l, t+rad), image.Pt(l, b-rad), clr, thickness)
	gocv.Line(&c.mat, image.Pt(rr, t+rad), image.Pt(rr, b-rad), clr, thickness)

	// angles run clockwise from the positive x axis
	axes := image.Pt(rad, rad)
	gocv.Ellipse(&c.mat, image.Pt(l+rad, t+rad), axes, 0, 180, 270, clr, thickness)
	gocv.Ellipse(&c.mat, image.Pt(rr-rad, t+rad), axes, 0, 270, 360, clr, thickness)
	gocv.Ellipse(&c.mat, image.Pt(rr-rad, b-rad), axes, 0, 0, 90, clr, thickness)
	gocv.Ellipse(&c.mat, image.Pt(l+rad, b-rad), axes, 0, 90, 180, clr, thickness)
}

// Rect strokes a rectangle
func (c *MatCanvas) Rect(r geometry.Rect, clr color.RGBA, thickness int) {
	gocv.Rectangle(&c.mat, r.Sorted().ImageRect(), clr, thickness)
}
