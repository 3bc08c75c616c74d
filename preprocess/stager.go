package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/geometry"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

var black = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Stager owns the two preallocated rasters a frame passes through before
// detection.  The frame raster holds the camera frame as RGBA, the crop
// raster holds it warped into the square detector input.
type Stager struct {
	frameW   int
	frameH   int
	cropSize int

	frame gocv.Mat
	crop  gocv.Mat
	// warp is the 2x3 frame to crop matrix passed to WarpAffine
	warp gocv.Mat
	// resizer replaces the warp when the crop is an unrotated letterbox
	resizer *Resizer

	frameToCrop geometry.Transform
	cropToFrame geometry.Transform
}

// NewStager allocates the rasters and builds the frame to crop transform for
// the given sensor rotation
func NewStager(frameW, frameH, cropSize, rotation int, maintainAspect bool) (*Stager, error) {

	frameToCrop, err := geometry.Build(frameW, frameH, cropSize, cropSize, rotation, maintainAspect)

	if err != nil {
		return nil, err
	}

	rot, _ := geometry.NormalizeRotation(rotation)

	s := &Stager{
		frameW:   frameW,
		frameH:   frameH,
		cropSize: cropSize,
		frame:    gocv.NewMatWithSize(frameH, frameW, gocv.MatTypeCV8UC4),
		crop:     gocv.NewMatWithSize(cropSize, cropSize, gocv.MatTypeCV8UC4),
		warp:     gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F),
	}

	if maintainAspect && rot == 0 {
		s.resizer = NewResizer(frameW, frameH, cropSize, cropSize)
		frameToCrop = s.resizer.Transform()
	}

	cropToFrame, err := frameToCrop.Invert()

	if err != nil {
		s.Close()
		return nil, err
	}

	s.frameToCrop = frameToCrop
	s.cropToFrame = cropToFrame

	m := frameToCrop.Affine2x3()

	for i, v := range m {
		s.warp.SetDoubleAt(i/3, i%3, v)
	}

	return s, nil
}

// LoadFrame copies a camera frame into the frame raster converting it to
// RGBA.  Three channel frames are taken as BGR as delivered by the camera,
// four channel frames as RGBA.
func (s *Stager) LoadFrame(src gocv.Mat) error {

	if src.Cols() != s.frameW || src.Rows() != s.frameH {
		return fmt.Errorf("%w: frame is %dx%d, expected %dx%d", posecam.ErrShapeMismatch,
			src.Cols(), src.Rows(), s.frameW, s.frameH)
	}

	switch src.Channels() {
	case 1:
		gocv.CvtColor(src, &s.frame, gocv.ColorGrayToRGBA)
	case 3:
		gocv.CvtColor(src, &s.frame, gocv.ColorBGRToRGBA)
	case 4:
		src.CopyTo(&s.frame)
	default:
		return fmt.Errorf("%w: frame has %d channels", posecam.ErrShapeMismatch, src.Channels())
	}

	return nil
}

// WarpToCrop draws the frame raster into the crop raster through the frame
// to crop transform
func (s *Stager) WarpToCrop() {

	if s.resizer != nil {
		s.resizer.LetterBoxResize(s.frame, &s.crop, black)
		return
	}

	gocv.WarpAffineWithParams(s.frame, &s.crop, s.warp, image.Pt(s.cropSize, s.cropSize),
		gocv.InterpolationLinear, gocv.BorderConstant, black)
}

// Frame returns the frame raster
func (s *Stager) Frame() gocv.Mat {
	return s.frame
}

// Crop returns the crop raster
func (s *Stager) Crop() gocv.Mat {
	return s.crop
}

// FrameSize returns the frame raster dimensions
func (s *Stager) FrameSize() image.Point {
	return image.Pt(s.frameW, s.frameH)
}

// CropSize returns the crop raster side length
func (s *Stager) CropSize() int {
	return s.cropSize
}

// FrameToCrop returns the frame to detector input transform
func (s *Stager) FrameToCrop() geometry.Transform {
	return s.frameToCrop
}

// CropToFrame returns the detector input to frame transform
func (s *Stager) CropToFrame() geometry.Transform {
	return s.cropToFrame
}

// Close frees the rasters
func (s *Stager) Close() error {

	err := multierr.Combine(s.frame.Close(), s.crop.Close(), s.warp.Close())

	if s.resizer != nil {
		err = multierr.Append(err, s.resizer.Close())
	}

	return err
}
