// Package engine defines the backend neutral inference interface the detector
// and pose adapters run their models through.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrUnsupported is returned by an Engine for a setting its backend does
// not implement
var ErrUnsupported = errors.New("not supported by backend")

// ErrClosed is returned by an Engine used after Close
var ErrClosed = errors.New("engine is closed")

// Device selects where a model runs
type Device int

const (
	CPU Device = iota
	GPU
	NPU
)

// String returns the device name
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	case NPU:
		return "NPU"
	default:
		return fmt.Sprintf("Device(%d)", int(d))
	}
}

// ParseDevice converts a device name to a Device.  NNAPI is accepted as the
// name of the accelerator device.
func ParseDevice(name string) (Device, error) {

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CPU":
		return CPU, nil
	case "GPU":
		return GPU, nil
	case "NPU", "NNAPI":
		return NPU, nil
	}

	return CPU, fmt.Errorf("unknown device %q", name)
}

// DataType is the element type of a tensor
type DataType int

const (
	Unknown DataType = iota
	Uint8
	Int8
	Float16
	Float32
)

// String returns the data type name
func (t DataType) String() string {
	switch t {
	case Uint8:
		return "UINT8"
	case Int8:
		return "INT8"
	case Float16:
		return "FP16"
	case Float32:
		return "FP32"
	default:
		return "UNKNOWN"
	}
}

// TensorInfo describes a model input or output tensor
type TensorInfo struct {
	Name  string
	Shape []int
	Type  DataType
}

// String returns the tensor info formatted for logging
func (i TensorInfo) String() string {
	return fmt.Sprintf("name=%s, shape=%v, type=%s", i.Name, i.Shape, i.Type)
}

// Tensor is a model output converted to float32, quantized outputs are
// dequantized by the backend
type Tensor struct {
	Shape []int
	Data  []float32
}

// Engine runs a single loaded model.  An Engine is not safe for concurrent
// use, callers serialize access.
type Engine interface {
	// Inputs returns the model input tensors
	Inputs() []TensorInfo
	// Outputs returns the model output tensors
	Outputs() []TensorInfo
	// Invoke copies the continuous NHWC data of input, either CV8UC3 or
	// CV32FC3, into the first input tensor, runs the model and returns a copy
	// of every output tensor
	Invoke(input gocv.Mat) ([]Tensor, error)
	// SetNumThreads sets the CPU thread count used by the backend
	SetNumThreads(n int) error
	// SetUseAccelerator enables or disables the hardware accelerator
	SetUseAccelerator(on bool) error
	// Close releases the model and backend resources
	Close() error
}

// Options are passed to a backend when loading a model
type Options struct {
	Device     Device
	NumThreads int
	Log        logrus.FieldLogger
}

// Loader loads a model blob into an Engine
type Loader interface {
	Load(model []byte, opts Options) (Engine, error)
}

// LoaderFunc adapts a function to a Loader
type LoaderFunc func(model []byte, opts Options) (Engine, error)

// Load calls f
func (f LoaderFunc) Load(model []byte, opts Options) (Engine, error) {
	return f(model, opts)
}
