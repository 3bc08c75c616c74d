package preprocess

import (
	"image"
	"testing"

	"github.com/swdee/go-posecam/geometry"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

func TestLetterBoxResize(t *testing.T) {

	for _, tc := range []struct {
		src     image.Point
		dst     image.Point
		content image.Rectangle
		scale   float32
	}{
		{image.Pt(1280, 720), image.Pt(640, 640), image.Rect(0, 140, 640, 500), 0.5},
		{image.Pt(800, 1000), image.Pt(640, 640), image.Rect(64, 0, 576, 640), 0.64},
		{image.Pt(800, 800), image.Pt(640, 640), image.Rect(0, 0, 640, 640), 0.8},
		{image.Pt(640, 480), image.Pt(300, 300), image.Rect(0, 37, 300, 262), 0.46875},
	} {
		r := NewResizer(tc.src.X, tc.src.Y, tc.dst.X, tc.dst.Y)

		test.That(t, r.Content(), test.ShouldResemble, tc.content)
		test.That(t, r.Scale(), test.ShouldEqual, tc.scale)

		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), tc.src.Y, tc.src.X,
			gocv.MatTypeCV8UC3)
		out := gocv.NewMat()

		r.LetterBoxResize(img, &out, black)

		test.That(t, out.Cols(), test.ShouldEqual, tc.dst.X)
		test.That(t, out.Rows(), test.ShouldEqual, tc.dst.Y)

		// padding is black and the content white
		c := tc.content
		test.That(t, out.GetVecbAt(c.Min.Y+c.Dy()/2, c.Min.X+c.Dx()/2)[0], test.ShouldEqual, uint8(255))

		if c.Min.Y > 0 {
			test.That(t, out.GetVecbAt(0, tc.dst.X/2)[0], test.ShouldEqual, uint8(0))
		}

		if c.Min.X > 0 {
			test.That(t, out.GetVecbAt(tc.dst.Y/2, 0)[0], test.ShouldEqual, uint8(0))
		}

		img.Close()
		out.Close()
		test.That(t, r.Close(), test.ShouldBeNil)
	}
}

func TestResizerTransform(t *testing.T) {

	resizer := NewResizer(640, 480, 300, 300)
	defer resizer.Close()

	tf := resizer.Transform()

	p := tf.MapPoint(geometry.Pt(0, 0))
	test.That(t, p.X, test.ShouldAlmostEqual, float32(0), 1e-3)
	test.That(t, p.Y, test.ShouldAlmostEqual, float32(37), 1e-3)

	p = tf.MapPoint(geometry.Pt(640, 480))
	test.That(t, p.X, test.ShouldAlmostEqual, float32(300), 1e-3)
	test.That(t, p.Y, test.ShouldAlmostEqual, float32(262), 1e-3)
}
