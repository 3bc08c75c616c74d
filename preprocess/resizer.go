package preprocess

import (
	"image"
	"image/color"

	"github.com/swdee/go-posecam/geometry"
	"gocv.io/x/gocv"
)

// Resizer letterboxes frames of a fixed size into the detector input.  The
// frame keeps its aspect and the spare rows or columns are split evenly
// either side, an odd remainder going to the bottom or right.
type Resizer struct {
	src image.Point
	dst image.Point
	// content is where the scaled frame lands inside the destination
	content image.Rectangle
	scale   float32
	scaled  gocv.Mat
}

// NewResizer returns a Resizer for srcWidth x srcHeight frames into a
// destWidth x destHeight destination
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {

	scale := min(float32(destWidth)/float32(srcWidth), float32(destHeight)/float32(srcHeight))

	// the constrained side fills the destination exactly
	size := image.Pt(destWidth, destHeight)

	if float32(destWidth)/float32(srcWidth) < float32(destHeight)/float32(srcHeight) {
		size.Y = int(float32(srcHeight) * scale)
	} else {
		size.X = int(float32(srcWidth) * scale)
	}

	pad := image.Pt((destWidth-size.X)/2, (destHeight-size.Y)/2)

	return &Resizer{
		src:     image.Pt(srcWidth, srcHeight),
		dst:     image.Pt(destWidth, destHeight),
		content: image.Rectangle{Min: pad, Max: pad.Add(size)},
		scale:   scale,
		scaled:  gocv.NewMat(),
	}
}

// LetterBoxResize scales src into dest filling the padding with clr
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, clr color.RGBA) {

	gocv.Resize(src, &r.scaled, r.content.Size(), 0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.scaled, dest,
		r.content.Min.Y, r.dst.Y-r.content.Max.Y,
		r.content.Min.X, r.dst.X-r.content.Max.X,
		gocv.BorderConstant, clr)
}

// Content returns the destination area holding the frame
func (r *Resizer) Content() image.Rectangle {
	return r.content
}

// Scale returns the frame to destination scale factor
func (r *Resizer) Scale() float32 {
	return r.scale
}

// Transform returns the frame to destination mapping, it uses the integer
// content size so it lines up with the pixels LetterBoxResize writes
func (r *Resizer) Transform() geometry.Transform {
	return geometry.ScaleTranslate(
		float64(r.content.Dx())/float64(r.src.X), float64(r.content.Dy())/float64(r.src.Y),
		float64(r.content.Min.X), float64(r.content.Min.Y),
	)
}

// Close frees the intermediate raster
func (r *Resizer) Close() error {
	return r.scaled.Close()
}
