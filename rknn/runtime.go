package rknn

/*
#cgo LDFLAGS: -lrknnrt
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

// CoreMask wraps C.rknn_core_mask
type CoreMask int

// rknn_core_mask values used to target which cores on the NPU the model is run
// on.  Auto picks an idle core, the others pin the model to a specific core or
// spread it across several.  Multi-core modes only accelerate some ops, the
// remainder fall back to Core0.
const (
	NPUCoreAuto    CoreMask = C.RKNN_NPU_CORE_AUTO
	NPUCore0       CoreMask = C.RKNN_NPU_CORE_0
	NPUCore1       CoreMask = C.RKNN_NPU_CORE_1
	NPUCore2       CoreMask = C.RKNN_NPU_CORE_2
	NPUCore01      CoreMask = C.RKNN_NPU_CORE_0_1
	NPUCore012     CoreMask = C.RKNN_NPU_CORE_0_1_2
	NPUSkipSetCore CoreMask = 9999
)

// CoreMaskForThreads maps a thread count onto the number of NPU cores used
func CoreMaskForThreads(n int) CoreMask {
	switch {
	case n <= 0:
		return NPUCoreAuto
	case n == 1:
		return NPUCore0
	case n == 2:
		return NPUCore01
	default:
		return NPUCore012
	}
}

// Code is an RKNN_ERR return value of the C API
type Code int

var codeText = map[Code]string{
	C.RKNN_SUCC:                        "success",
	C.RKNN_ERR_FAIL:                    "failed",
	C.RKNN_ERR_TIMEOUT:                 "timed out",
	C.RKNN_ERR_DEVICE_UNAVAILABLE:      "NPU unavailable",
	C.RKNN_ERR_MALLOC_FAIL:             "out of memory",
	C.RKNN_ERR_PARAM_INVALID:           "invalid parameter",
	C.RKNN_ERR_MODEL_INVALID:           "invalid model blob",
	C.RKNN_ERR_CTX_INVALID:             "invalid context",
	C.RKNN_ERR_INPUT_INVALID:           "invalid input",
	C.RKNN_ERR_OUTPUT_INVALID:          "invalid output",
	C.RKNN_ERR_DEVICE_UNMATCH:          "driver and runtime versions do not match",
	C.RKNN_ERR_TARGET_PLATFORM_UNMATCH: "model compiled for another platform",
}

func (c Code) String() string {

	if s, ok := codeText[c]; ok {
		return s
	}

	return fmt.Sprintf("code %d", int(c))
}

// CallError is returned when a C API call fails
type CallError struct {
	Call string
	Code Code
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Call, e.Code)
}

func callError(call string, ret C.int) error {
	return &CallError{Call: call, Code: Code(ret)}
}

// Runtime is a loaded RKNN model context
type Runtime struct {
	// ctx is the C runtime context
	ctx C.rknn_context
	// ioNum caches the number of model input and output tensors
	ioNum IONumber
	// inputAttrs and outputAttrs cache the model tensor attributes
	inputAttrs  []TensorAttr
	outputAttrs []TensorAttr
	// core is the NPU core mask currently applied
	core CoreMask
}

// NewRuntime loads a compiled RKNN model from memory and pins it to the
// given NPU cores
func NewRuntime(model []byte, core CoreMask) (*Runtime, error) {

	if len(model) == 0 {
		return nil, errors.New("empty model")
	}

	r := &Runtime{}

	if err := r.init(model); err != nil {
		return nil, err
	}

	// setting the core mask is only supported on the multi core RK3588 and
	// RK3576, skip it for the others like RK3566
	if core != NPUSkipSetCore {
		if err := r.setCoreMask(core); err != nil {
			r.Close()
			return nil, err
		}
	}

	var err error
	r.ioNum, err = r.queryIONumber()

	if err != nil {
		r.Close()
		return nil, err
	}

	r.inputAttrs, err = r.QueryInputTensors()

	if err != nil {
		r.Close()
		return nil, err
	}

	r.outputAttrs, err = r.QueryOutputTensors()

	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// init wraps C.rknn_init passing the model blob.  The runtime copies the
// blob so the Go slice does not need to outlive the call.
func (r *Runtime) init(model []byte) error {

	cModel := C.CBytes(model)
	defer C.free(cModel)

	ret := C.rknn_init(&r.ctx, cModel, C.uint32_t(len(model)), 0, nil)

	if ret != C.RKNN_SUCC {
		return callError("rknn_init", ret)
	}

	return nil
}

// setCoreMask wraps C.rknn_set_core_mask
func (r *Runtime) setCoreMask(mask CoreMask) error {

	ret := C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(mask))

	if ret != C.RKNN_SUCC {
		return callError("rknn_set_core_mask", ret)
	}

	r.core = mask

	return nil
}

// Close wraps C.rknn_destroy which unloads the model and releases all C
// resources of the context
func (r *Runtime) Close() error {

	ret := C.rknn_destroy(r.ctx)

	if ret != C.RKNN_SUCC {
		return callError("rknn_destroy", ret)
	}

	return nil
}

// SDKVersion represents the C.rknn_sdk_version struct
type SDKVersion struct {
	DriverVersion string
	APIVersion    string
}

// SDKVersion returns the RKNN API and Driver versions
func (r *Runtime) SDKVersion() (SDKVersion, error) {

	var cSdkVer C.rknn_sdk_version

	ret := C.rknn_query(
		r.ctx,
		C.RKNN_QUERY_SDK_VERSION,
		unsafe.Pointer(&cSdkVer),
		C.uint(C.sizeof_rknn_sdk_version),
	)

	if ret != C.RKNN_SUCC {
		return SDKVersion{}, callError("rknn_query", ret)
	}

	return SDKVersion{
		DriverVersion: C.GoString(&(cSdkVer.drv_version[0])),
		APIVersion:    C.GoString(&(cSdkVer.api_version[0])),
	}, nil
}

// InputAttrs returns the loaded model's input tensor attributes
func (r *Runtime) InputAttrs() []TensorAttr {
	return r.inputAttrs
}

// OutputAttrs returns the loaded model's output tensor attributes
func (r *Runtime) OutputAttrs() []TensorAttr {
	return r.outputAttrs
}
