package detector

import (
	"errors"
	"testing"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/internal/enginetest"
	"github.com/swdee/go-posecam/internal/logging"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

var labels = []byte("???\nperson\nbicycle\ncar\n")

func newFake(size int) *enginetest.Fake {
	in, out := enginetest.SSDInfo(size)
	return &enginetest.Fake{In: in, Out: out}
}

func TestRecognize(t *testing.T) {

	fake := newFake(300)
	fake.InvokeFn = func(gocv.Mat) ([]engine.Tensor, error) {
		return enginetest.SSDOutputs(300, []enginetest.Detection{
			{Class: 0, Score: 0.73, Left: 100, Top: 100, Right: 200, Bottom: 260},
			{Class: 2, Score: 0.99, Left: 10, Top: 20, Right: 30, Bottom: 40},
		}), nil
	}

	det, err := Load(enginetest.Loader(fake, nil), []byte("model"), labels,
		Params{InputSize: 300, Quantized: true}, logging.Discard())
	test.That(t, err, test.ShouldBeNil)

	raster := gocv.NewMatWithSize(300, 300, gocv.MatTypeCV8UC4)
	defer raster.Close()

	recs, err := det.Recognize(raster)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(recs), test.ShouldEqual, 2)

	test.That(t, recs[0].Title, test.ShouldEqual, "person")
	test.That(t, recs[0].Confidence, test.ShouldAlmostEqual, float32(0.73), 1e-6)
	test.That(t, recs[0].Location.Left, test.ShouldAlmostEqual, float32(100), 1e-3)
	test.That(t, recs[0].Location.Bottom, test.ShouldAlmostEqual, float32(260), 1e-3)
	test.That(t, recs[1].Title, test.ShouldEqual, "car")

	// quantized models are fed uint8 RGB
	test.That(t, fake.InputTypes, test.ShouldResemble, []gocv.MatType{gocv.MatTypeCV8UC3})

	test.That(t, det.SetNumThreads(4), test.ShouldBeNil)
	test.That(t, fake.Threads, test.ShouldEqual, 4)
	test.That(t, det.SetUseAccelerator(true), test.ShouldBeNil)
	test.That(t, fake.Accelerator, test.ShouldBeTrue)

	test.That(t, det.Close(), test.ShouldBeNil)
	test.That(t, fake.Closed, test.ShouldBeTrue)
}

func TestRecognizeFloatModel(t *testing.T) {

	fake := newFake(300)
	fake.InvokeFn = func(gocv.Mat) ([]engine.Tensor, error) {
		return enginetest.SSDOutputs(300, nil), nil
	}

	det, err := Load(enginetest.Loader(fake, nil), []byte("model"), labels,
		Params{InputSize: 300, Quantized: false}, logging.Discard())
	test.That(t, err, test.ShouldBeNil)

	raster := gocv.NewMatWithSize(300, 300, gocv.MatTypeCV8UC4)
	defer raster.Close()

	recs, err := det.Recognize(raster)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(recs), test.ShouldEqual, 0)
	test.That(t, fake.InputTypes, test.ShouldResemble, []gocv.MatType{gocv.MatTypeCV32FC3})
}

func TestRecognizeShapeMismatch(t *testing.T) {

	fake := newFake(300)

	det, err := Load(enginetest.Loader(fake, nil), []byte("model"), labels,
		Params{InputSize: 300, Quantized: true}, logging.Discard())
	test.That(t, err, test.ShouldBeNil)

	raster := gocv.NewMatWithSize(320, 320, gocv.MatTypeCV8UC4)
	defer raster.Close()

	_, err = det.Recognize(raster)
	test.That(t, errors.Is(err, posecam.ErrShapeMismatch), test.ShouldBeTrue)
	test.That(t, fake.CallCount(), test.ShouldEqual, 0)
}

func TestLoadFailures(t *testing.T) {

	// backend refuses the blob
	_, err := Load(enginetest.Loader(nil, errors.New("bad flatbuffer")), []byte("x"), labels,
		Params{InputSize: 300}, logging.Discard())
	test.That(t, errors.Is(err, posecam.ErrModelLoadFailed), test.ShouldBeTrue)

	// empty labels
	_, err = Load(enginetest.Loader(newFake(300), nil), []byte("x"), nil,
		Params{InputSize: 300}, logging.Discard())
	test.That(t, errors.Is(err, posecam.ErrModelLoadFailed), test.ShouldBeTrue)

	// model input does not match the configured size
	fake := newFake(320)
	_, err = Load(enginetest.Loader(fake, nil), []byte("x"), labels,
		Params{InputSize: 300}, logging.Discard())
	test.That(t, errors.Is(err, posecam.ErrModelLoadFailed), test.ShouldBeTrue)
	test.That(t, errors.Is(err, posecam.ErrShapeMismatch), test.ShouldBeTrue)
	test.That(t, fake.Closed, test.ShouldBeTrue)
}
