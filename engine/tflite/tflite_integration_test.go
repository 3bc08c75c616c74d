//go:build integration

package tflite

import (
	"os"
	"testing"

	"github.com/swdee/go-posecam/engine"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

// TestAcceleratorToggle runs the model in POSECAM_TFLITE_MODEL with and
// without the XNNPACK delegate and compares the outputs
func TestAcceleratorToggle(t *testing.T) {

	modelFile := os.Getenv("POSECAM_TFLITE_MODEL")

	if modelFile == "" {
		t.Fatalf("No model file provided in POSECAM_TFLITE_MODEL")
	}

	model, err := os.ReadFile(modelFile)
	test.That(t, err, test.ShouldBeNil)

	eng, err := Load(model, engine.Options{NumThreads: 2})
	test.That(t, err, test.ShouldBeNil)
	defer eng.Close()

	e := eng.(*Engine)
	in := e.Inputs()[0]

	matType := gocv.MatTypeCV8UC3

	if in.Type == engine.Float32 {
		matType = gocv.MatTypeCV32FC3
	}

	input := gocv.NewMatWithSize(in.Shape[1], in.Shape[2], matType)
	defer input.Close()

	plain, err := e.Invoke(input)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, e.SetUseAccelerator(true), test.ShouldBeNil)
	test.That(t, e.UseAccelerator(), test.ShouldBeTrue)

	accel, err := e.Invoke(input)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(accel), test.ShouldEqual, len(plain))

	for i := range plain {
		test.That(t, accel[i].Shape, test.ShouldResemble, plain[i].Shape)
		test.That(t, len(accel[i].Data), test.ShouldEqual, len(plain[i].Data))
	}

	test.That(t, e.SetUseAccelerator(false), test.ShouldBeNil)
	test.That(t, e.UseAccelerator(), test.ShouldBeFalse)
}
