package rknn

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam/engine"
	"gocv.io/x/gocv"
)

// Engine adapts a Runtime to engine.Engine
type Engine struct {
	mu  sync.Mutex
	rt  *Runtime
	log logrus.FieldLogger
}

// Loader is the engine.Loader for RKNN models
var Loader = engine.LoaderFunc(Load)

// Load initializes the RKNN runtime with the model blob, the thread count
// selects how many NPU cores the model is spread over
func Load(model []byte, opts engine.Options) (engine.Engine, error) {

	rt, err := NewRuntime(model, CoreMaskForThreads(opts.NumThreads))

	if err != nil {
		return nil, err
	}

	log := opts.Log

	if log == nil {
		log = logrus.StandardLogger()
	}

	if ver, err := rt.SDKVersion(); err == nil {
		log.WithFields(logrus.Fields{
			"driver": ver.DriverVersion,
			"api":    ver.APIVersion,
		}).Debug("RKNN runtime loaded")
	}

	return &Engine{rt: rt, log: log}, nil
}

// Runtime returns the underlying RKNN runtime, nil once closed
func (e *Engine) Runtime() *Runtime {

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rt
}

// Inputs returns the model input tensors, none once closed
func (e *Engine) Inputs() []engine.TensorInfo {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return nil
	}

	return infos(e.rt.InputAttrs())
}

// Outputs returns the model output tensors, none once closed
func (e *Engine) Outputs() []engine.TensorInfo {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return nil
	}

	return infos(e.rt.OutputAttrs())
}

func infos(attrs []TensorAttr) []engine.TensorInfo {

	out := make([]engine.TensorInfo, len(attrs))

	for i, a := range attrs {
		out[i] = a.Info()
	}

	return out
}

// Invoke runs the model on the input Mat
func (e *Engine) Invoke(input gocv.Mat) ([]engine.Tensor, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return nil, engine.ErrClosed
	}

	return e.rt.Inference([]gocv.Mat{input})
}

// SetNumThreads changes the NPU core mask
func (e *Engine) SetNumThreads(n int) error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return engine.ErrClosed
	}

	mask := CoreMaskForThreads(n)

	if mask == e.rt.core {
		return nil
	}

	if err := e.rt.setCoreMask(mask); err != nil {
		return fmt.Errorf("set core mask for %d threads: %w", n, err)
	}

	return nil
}

// SetUseAccelerator can only enable the NPU, the model has no CPU path
func (e *Engine) SetUseAccelerator(on bool) error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return engine.ErrClosed
	}

	if on {
		return nil
	}

	return fmt.Errorf("rknn without NPU: %w", engine.ErrUnsupported)
}

// Close destroys the runtime context
func (e *Engine) Close() error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return nil
	}

	err := e.rt.Close()
	e.rt = nil

	return err
}
