// Package tflite implements engine.Engine on the TensorFlow Lite C API.
package tflite

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	lite "github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/xnnpack"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam/engine"
	"gocv.io/x/gocv"
)

// Engine runs a TFLite model on the CPU, optionally through the XNNPACK
// delegate
type Engine struct {
	mu          sync.Mutex
	model       *lite.Model
	options     *lite.InterpreterOptions
	interpreter *lite.Interpreter
	delegate    delegates.Delegater
	numThreads  int
	useAccel    bool
	inputs      []engine.TensorInfo
	outputs     []engine.TensorInfo
	log         logrus.FieldLogger
}

// Loader is the engine.Loader for TFLite models
var Loader = engine.LoaderFunc(Load)

// Load creates an interpreter for the TFLite model blob
func Load(model []byte, opts engine.Options) (engine.Engine, error) {

	if len(model) == 0 {
		return nil, errors.New("empty model")
	}

	m := lite.NewModel(model)

	if m == nil {
		return nil, errors.New("failed to create model")
	}

	log := opts.Log

	if log == nil {
		log = logrus.StandardLogger()
	}

	e := &Engine{
		model:      m,
		numThreads: opts.NumThreads,
		log:        log,
	}

	if e.numThreads <= 0 {
		e.numThreads = runtime.NumCPU()
	}

	if err := e.build(); err != nil {
		m.Delete()
		return nil, err
	}

	e.inputs = make([]engine.TensorInfo, e.interpreter.GetInputTensorCount())

	for i := range e.inputs {
		e.inputs[i] = tensorInfo(e.interpreter.GetInputTensor(i))
	}

	e.outputs = make([]engine.TensorInfo, e.interpreter.GetOutputTensorCount())

	for i := range e.outputs {
		e.outputs[i] = tensorInfo(e.interpreter.GetOutputTensor(i))
	}

	return e, nil
}

// build creates the interpreter options and interpreter with the current
// thread count and accelerator setting, releasing any previous interpreter
// on success
func (e *Engine) build() error {

	options := lite.NewInterpreterOptions()

	if options == nil {
		return errors.New("interpreter options failed to be created")
	}

	options.SetNumThread(e.numThreads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		e.log.Warn(msg)
	}, nil)

	var delegate delegates.Delegater

	if e.useAccel {
		delegate = xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(e.numThreads)})

		if delegate == nil {
			options.Delete()
			return errors.New("failed to create XNNPACK delegate")
		}

		options.AddDelegate(delegate)
	}

	// the delegate must outlive the interpreter using it
	release := func(interpreter *lite.Interpreter, options *lite.InterpreterOptions, d delegates.Delegater) {
		if interpreter != nil {
			interpreter.Delete()
		}

		options.Delete()

		if d != nil {
			d.Delete()
		}
	}

	interpreter := lite.NewInterpreter(e.model, options)

	if interpreter == nil {
		release(nil, options, delegate)
		return errors.New("failed to create interpreter")
	}

	if status := interpreter.AllocateTensors(); status != lite.OK {
		release(interpreter, options, delegate)
		return fmt.Errorf("failed to allocate tensors, status %d", status)
	}

	if e.interpreter != nil {
		release(e.interpreter, e.options, e.delegate)
	}

	e.interpreter = interpreter
	e.options = options
	e.delegate = delegate

	e.log.WithFields(logrus.Fields{
		"threads": e.numThreads,
		"xnnpack": delegate != nil,
	}).Debug("TFLite interpreter built")

	return nil
}

func tensorInfo(t *lite.Tensor) engine.TensorInfo {

	shape := make([]int, t.NumDims())

	for i := range shape {
		shape[i] = t.Dim(i)
	}

	info := engine.TensorInfo{
		Name:  t.Name(),
		Shape: shape,
	}

	switch t.Type() {
	case lite.UInt8:
		info.Type = engine.Uint8
	case lite.Int8:
		info.Type = engine.Int8
	case lite.Float32:
		info.Type = engine.Float32
	}

	return info
}

// Inputs returns the model input tensors
func (e *Engine) Inputs() []engine.TensorInfo {
	return e.inputs
}

// Outputs returns the model output tensors
func (e *Engine) Outputs() []engine.TensorInfo {
	return e.outputs
}

// Invoke runs the model on the input Mat
func (e *Engine) Invoke(input gocv.Mat) ([]engine.Tensor, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter == nil {
		return nil, engine.ErrClosed
	}

	if !input.IsContinuous() {
		input = input.Clone()
		defer input.Close()
	}

	buf := input.ToBytes()
	in := e.interpreter.GetInputTensor(0)

	if uint(len(buf)) != in.ByteSize() {
		return nil, fmt.Errorf("input is %d bytes, model expects %d", len(buf), in.ByteSize())
	}

	if status := in.CopyFromBuffer(buf); status != lite.OK {
		return nil, fmt.Errorf("copying to input buffer failed, status %d", status)
	}

	if status := e.interpreter.Invoke(); status != lite.OK {
		return nil, fmt.Errorf("invoke failed, status %d", status)
	}

	outs := make([]engine.Tensor, e.interpreter.GetOutputTensorCount())

	for i := range outs {
		t := e.interpreter.GetOutputTensor(i)
		data, err := toFloat32(t)

		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}

		outs[i] = engine.Tensor{
			Shape: e.outputs[i].Shape,
			Data:  data,
		}
	}

	return outs, nil
}

// toFloat32 copies the tensor out of C memory, dequantizing integer tensors
func toFloat32(t *lite.Tensor) ([]float32, error) {

	switch t.Type() {
	case lite.Float32:
		src := t.Float32s()
		out := make([]float32, len(src))
		copy(out, src)
		return out, nil

	case lite.UInt8:
		q := t.QuantizationParams()
		src := t.UInt8s()
		out := make([]float32, len(src))

		for i, v := range src {
			out[i] = float32(float64(int(v)-q.ZeroPoint) * q.Scale)
		}

		return out, nil

	case lite.Int8:
		q := t.QuantizationParams()
		src := t.Int8s()
		out := make([]float32, len(src))

		for i, v := range src {
			out[i] = float32(float64(int(v)-q.ZeroPoint) * q.Scale)
		}

		return out, nil
	}

	return nil, fmt.Errorf("unsupported tensor type %s", t.Type())
}

// SetNumThreads rebuilds the interpreter with the given thread count
func (e *Engine) SetNumThreads(n int) error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter == nil {
		return engine.ErrClosed
	}

	if n <= 0 {
		return fmt.Errorf("invalid thread count %d", n)
	}

	if n == e.numThreads {
		return nil
	}

	prev := e.numThreads
	e.numThreads = n

	if err := e.build(); err != nil {
		e.numThreads = prev
		return err
	}

	return nil
}

// SetUseAccelerator rebuilds the interpreter with or without the XNNPACK
// delegate
func (e *Engine) SetUseAccelerator(on bool) error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter == nil {
		return engine.ErrClosed
	}

	if on == e.useAccel {
		return nil
	}

	e.useAccel = on

	if err := e.build(); err != nil {
		e.useAccel = !on
		return fmt.Errorf("tflite accelerator: %w", err)
	}

	return nil
}

// UseAccelerator reports if the XNNPACK delegate is attached
func (e *Engine) UseAccelerator() bool {

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.delegate != nil
}

// Close releases the interpreter and model
func (e *Engine) Close() error {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter == nil {
		return nil
	}

	e.interpreter.Delete()
	e.options.Delete()

	if e.delegate != nil {
		e.delegate.Delete()
		e.delegate = nil
	}

	e.model.Delete()
	e.interpreter = nil

	return nil
}
