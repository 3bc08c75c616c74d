package rknn

import (
	"errors"
	"testing"

	"github.com/swdee/go-posecam/engine"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

func TestClosedEngine(t *testing.T) {

	// an Engine after Close holds no runtime
	e := &Engine{}

	test.That(t, e.Close(), test.ShouldBeNil)
	test.That(t, e.Runtime(), test.ShouldBeNil)
	test.That(t, e.Inputs(), test.ShouldBeEmpty)
	test.That(t, e.Outputs(), test.ShouldBeEmpty)

	test.That(t, errors.Is(e.SetNumThreads(2), engine.ErrClosed), test.ShouldBeTrue)
	test.That(t, errors.Is(e.SetUseAccelerator(true), engine.ErrClosed), test.ShouldBeTrue)

	input := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer input.Close()

	_, err := e.Invoke(input)
	test.That(t, errors.Is(err, engine.ErrClosed), test.ShouldBeTrue)
}
