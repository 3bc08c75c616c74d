package preprocess

import (
	"fmt"

	"github.com/swdee/go-posecam"
	"gocv.io/x/gocv"
)

// Normalization maps a uint8 pixel value p to (p - Mean) / Std
type Normalization struct {
	Mean float32
	Std  float32
}

// ToModelInput converts an RGBA raster of side x side into the NHWC RGB
// layout a model takes.  With norm nil the result stays CV8UC3, otherwise
// it is CV32FC3 normalized by norm.  The returned Mat must be closed by the
// caller.
func ToModelInput(raster gocv.Mat, side int, norm *Normalization) (gocv.Mat, error) {

	if raster.Cols() != side || raster.Rows() != side || raster.Type() != gocv.MatTypeCV8UC4 {
		return gocv.Mat{}, fmt.Errorf("%w: raster is %dx%d %v, expected %dx%d RGBA",
			posecam.ErrShapeMismatch, raster.Cols(), raster.Rows(), raster.Type(), side, side)
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(raster, &rgb, gocv.ColorRGBAToRGB)

	if norm == nil {
		return rgb, nil
	}

	defer rgb.Close()

	out := gocv.NewMat()
	rgb.ConvertToWithParams(&out, gocv.MatTypeCV32FC3, 1/norm.Std, -norm.Mean/norm.Std)

	return out, nil
}
