package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/swdee/go-posecam/geometry"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Text draws white text with a black outline.  The top of the text box is at
// pos and the box behind it is filled with bg at partial opacity.  Text
// falling outside the canvas is clipped.
func (c *MatCanvas) Text(pos geometry.Point, text string, sizePx float32, bg color.RGBA) {

	if text == "" || sizePx <= 0 {
		return
	}

	face, err := c.font.Face(sizePx)

	if err != nil {
		return
	}

	width := font.MeasureString(face, text).Ceil()
	height := int(sizePx)
	border := c.font.BorderPx

	origin := pos.ImagePoint()
	box := image.Rect(origin.X, origin.Y, origin.X+width+2*border, origin.Y+height+2*border)
	clip := box.Intersect(image.Rect(0, 0, c.mat.Cols(), c.mat.Rows()))

	if clip.Empty() {
		return
	}

	region := c.mat.Region(clip)
	defer region.Close()

	patch := gocv.NewMat()
	defer patch.Close()

	gocv.CvtColor(region, &patch, gocv.ColorBGRAToRGBA)

	pix, err := patch.DataPtrUint8()

	if err != nil {
		return
	}

	img := &image.RGBA{
		Pix:    pix,
		Stride: patch.Step(),
		Rect:   image.Rect(0, 0, clip.Dx(), clip.Dy()),
	}

	draw.Draw(img, img.Bounds(), image.NewUniform(withAlpha(bg, labelAlpha)), image.Point{}, draw.Over)

	// baseline relative to the clipped patch, the text box ends at the
	// bottom of the descenders
	baseline := image.Pt(box.Min.X-clip.Min.X+border,
		box.Min.Y-clip.Min.Y+border+height-face.Metrics().Descent.Ceil())

	d := &font.Drawer{
		Dst:  img,
		Face: face,
	}

	// outline first, then the fill over it
	d.Src = image.NewUniform(Black)

	for dx := -border; dx <= border; dx++ {
		for dy := -border; dy <= border; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}

			d.Dot = fixed.P(baseline.X+dx, baseline.Y+dy)
			d.DrawString(text)
		}
	}

	d.Src = image.NewUniform(White)
	d.Dot = fixed.P(baseline.X, baseline.Y)
	d.DrawString(text)

	gocv.CvtColor(patch, &region, gocv.ColorRGBAToBGRA)
}
