package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point is an x,y position in some named coordinate space
type Point struct {
	X float32
	Y float32
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// ImagePoint rounds the point to the nearest integer pixel
func (p Point) ImagePoint() image.Point {
	return image.Pt(int(math.Round(float64(p.X))), int(math.Round(float64(p.Y))))
}

// Rect is an axis aligned rectangle given by its left, top, right and bottom
// edges in floating point pixel units
type Rect struct {
	Left   float32
	Top    float32
	Right  float32
	Bottom float32
}

// NewRect creates a Rect from its edges
func NewRect(left, top, right, bottom float32) Rect {
	return Rect{
		Left:   left,
		Top:    top,
		Right:  right,
		Bottom: bottom,
	}
}

// Width returns the width of the rectangle
func (r Rect) Width() float32 {
	return r.Right - r.Left
}

// Height returns the height of the rectangle
func (r Rect) Height() float32 {
	return r.Bottom - r.Top
}

// CenterX returns the horizontal center of the rectangle
func (r Rect) CenterX() float32 {
	return (r.Left + r.Right) / 2
}

// CenterY returns the vertical center of the rectangle
func (r Rect) CenterY() float32 {
	return (r.Top + r.Bottom) / 2
}

// TopLeft returns the top left corner of the rectangle
func (r Rect) TopLeft() Point {
	return Point{X: r.Left, Y: r.Top}
}

// Empty reports if the rectangle has no area
func (r Rect) Empty() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

// Smaller reports if either side of the rectangle is below min
func (r Rect) Smaller(min float32) bool {
	return r.Width() < min || r.Height() < min
}

// Sorted returns the rectangle with left <= right and top <= bottom
func (r Rect) Sorted() Rect {

	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}

	if r.Top > r.Bottom {
		r.Top, r.Bottom = r.Bottom, r.Top
	}

	return r
}

// ImageRect rounds the rectangle to integer pixels
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(
		int(math.Round(float64(r.Left))),
		int(math.Round(float64(r.Top))),
		int(math.Round(float64(r.Right))),
		int(math.Round(float64(r.Bottom))),
	)
}

// String returns the rectangle formatted as RectF(l, t, r, b)
func (r Rect) String() string {
	return fmt.Sprintf("Rect(%.1f, %.1f, %.1f, %.1f)", r.Left, r.Top, r.Right, r.Bottom)
}
