package preprocess

import (
	"errors"
	"testing"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/geometry"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

func TestStagerLoadFrame(t *testing.T) {

	s, err := NewStager(640, 480, 300, 0, false)
	test.That(t, err, test.ShouldBeNil)
	defer s.Close()

	// BGR camera frame
	bgr := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer bgr.Close()

	err = s.LoadFrame(bgr)
	test.That(t, err, test.ShouldBeNil)

	frame := s.Frame()
	test.That(t, frame.Type(), test.ShouldEqual, gocv.MatTypeCV8UC4)
	test.That(t, frame.GetUCharAt(100, 100*4), test.ShouldEqual, uint8(30))
	test.That(t, frame.GetUCharAt(100, 100*4+1), test.ShouldEqual, uint8(20))
	test.That(t, frame.GetUCharAt(100, 100*4+2), test.ShouldEqual, uint8(10))
	test.That(t, frame.GetUCharAt(100, 100*4+3), test.ShouldEqual, uint8(255))

	s.WarpToCrop()

	crop := s.Crop()
	test.That(t, crop.Cols(), test.ShouldEqual, 300)
	test.That(t, crop.Rows(), test.ShouldEqual, 300)
	test.That(t, crop.GetUCharAt(150, 150*4), test.ShouldEqual, uint8(30))

	wrong := gocv.NewMatWithSize(300, 300, gocv.MatTypeCV8UC3)
	defer wrong.Close()

	err = s.LoadFrame(wrong)
	test.That(t, errors.Is(err, posecam.ErrShapeMismatch), test.ShouldBeTrue)
}

func TestStagerTransforms(t *testing.T) {

	tests := []struct {
		name   string
		rot    int
		aspect bool
	}{
		{"stretch", 0, false},
		{"letterbox", 0, true},
		{"rotated", 90, false},
		{"rotated letterbox", 270, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewStager(640, 480, 300, tc.rot, tc.aspect)
			test.That(t, err, test.ShouldBeNil)
			defer s.Close()

			p := geometry.Pt(123, 321)
			back := s.CropToFrame().MapPoint(s.FrameToCrop().MapPoint(p))
			test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-3)
			test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-3)

			s.WarpToCrop()
			test.That(t, s.Crop().Cols(), test.ShouldEqual, 300)
		})
	}

	_, err := NewStager(640, 480, 300, 45, false)
	test.That(t, errors.Is(err, posecam.ErrInvalidGeometry), test.ShouldBeTrue)
}
