package render

import (
	"image/color"
	"math"

	"github.com/swdee/go-posecam/geometry"
	"gocv.io/x/gocv"
)

// Circle fills a circle, used for the keypoints of a pose
func (c *MatCanvas) Circle(center geometry.Point, radius float32, clr color.RGBA) {

	r := max(int(math.Round(float64(radius))), 1)

	gocv.Circle(&c.mat, center.ImagePoint(), r, clr, -1)
}

// Line draws a line segment, used for the skeleton between keypoints
func (c *MatCanvas) Line(a, b geometry.Point, clr color.RGBA, thickness int) {
	gocv.Line(&c.mat, a.ImagePoint(), b.ImagePoint(), clr, max(thickness, 1))
}
