package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/swdee/go-posecam/engine"
)

// TensorFormat is the memory layout of a tensor
type TensorFormat int

const (
	TensorNCHW      TensorFormat = C.RKNN_TENSOR_NCHW
	TensorNHWC      TensorFormat = C.RKNN_TENSOR_NHWC
	TensorNC1HWC2   TensorFormat = C.RKNN_TENSOR_NC1HWC2
	TensorUndefined TensorFormat = C.RKNN_TENSOR_UNDEFINED
)

// TensorType is the element type of a tensor.  Only the types the detector
// and pose models use are named.
type TensorType int

const (
	TensorFloat32 TensorType = C.RKNN_TENSOR_FLOAT32
	TensorFloat16 TensorType = C.RKNN_TENSOR_FLOAT16
	TensorInt8    TensorType = C.RKNN_TENSOR_INT8
	TensorUint8   TensorType = C.RKNN_TENSOR_UINT8
)

// TensorQntType is the quantization scheme of a tensor
type TensorQntType int

const (
	TensorQntNone   TensorQntType = C.RKNN_TENSOR_QNT_NONE
	TensorQntDFP    TensorQntType = C.RKNN_TENSOR_QNT_DFP
	TensorQntAffine TensorQntType = C.RKNN_TENSOR_QNT_AFFINE_ASYMMETRIC
)

const maxDims = C.RKNN_MAX_DIMS

// TensorAttr describes a model input or output
type TensorAttr struct {
	Index   uint32
	Name    string
	Dims    []int
	NElems  uint32
	Size    uint32
	Fmt     TensorFormat
	Type    TensorType
	QntType TensorQntType
	// ZP and Scale dequantize int8 and uint8 outputs, (q - ZP) * Scale
	ZP    int32
	Scale float32
}

func newTensorAttr(c *C.rknn_tensor_attr) TensorAttr {

	name := C.GoBytes(unsafe.Pointer(&c.name[0]), C.RKNN_MAX_NAME_LEN)

	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	n := min(int(c.n_dims), maxDims)
	dims := make([]int, n)

	for i := range dims {
		dims[i] = int(c.dims[i])
	}

	return TensorAttr{
		Index:   uint32(c.index),
		Name:    string(name),
		Dims:    dims,
		NElems:  uint32(c.n_elems),
		Size:    uint32(c.size),
		Fmt:     TensorFormat(c.fmt),
		Type:    TensorType(c._type),
		QntType: TensorQntType(c.qnt_type),
		ZP:      int32(c.zp),
		Scale:   float32(c.scale),
	}
}

// IONumber is the number of model inputs and outputs
type IONumber struct {
	NumberInput  uint32
	NumberOutput uint32
}

func (r *Runtime) queryIONumber() (IONumber, error) {

	var c C.rknn_input_output_num

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_IN_OUT_NUM, unsafe.Pointer(&c), C.uint(unsafe.Sizeof(c)))

	if ret != C.RKNN_SUCC {
		return IONumber{}, callError("rknn_query in/out number", ret)
	}

	return IONumber{NumberInput: uint32(c.n_input), NumberOutput: uint32(c.n_output)}, nil
}

// queryTensors reads the attributes of n tensors with the given query command
func (r *Runtime) queryTensors(cmd C.rknn_query_cmd, n uint32) ([]TensorAttr, error) {

	attrs := make([]TensorAttr, n)

	for i := range attrs {
		var c C.rknn_tensor_attr
		c.index = C.uint32_t(i)

		ret := C.rknn_query(r.ctx, cmd, unsafe.Pointer(&c), C.uint(unsafe.Sizeof(c)))

		if ret != C.RKNN_SUCC {
			return nil, callError(fmt.Sprintf("rknn_query tensor %d", i), ret)
		}

		attrs[i] = newTensorAttr(&c)
	}

	return attrs, nil
}

// QueryInputTensors returns the model input attributes
func (r *Runtime) QueryInputTensors() ([]TensorAttr, error) {
	return r.queryTensors(C.RKNN_QUERY_INPUT_ATTR, r.ioNum.NumberInput)
}

// QueryOutputTensors returns the model output attributes
func (r *Runtime) QueryOutputTensors() ([]TensorAttr, error) {
	return r.queryTensors(C.RKNN_QUERY_OUTPUT_ATTR, r.ioNum.NumberOutput)
}

// Info converts the attribute to the backend neutral tensor description.  The
// shape is reported in NHWC order whatever the native layout.
func (a TensorAttr) Info() engine.TensorInfo {

	shape := append([]int(nil), a.Dims...)

	if a.Fmt == TensorNCHW && len(shape) == 4 {
		shape = []int{shape[0], shape[2], shape[3], shape[1]}
	}

	info := engine.TensorInfo{
		Name:  a.Name,
		Shape: shape,
	}

	switch a.Type {
	case TensorUint8:
		info.Type = engine.Uint8
	case TensorInt8:
		info.Type = engine.Int8
	case TensorFloat16:
		info.Type = engine.Float16
	case TensorFloat32:
		info.Type = engine.Float32
	}

	return info
}

// String returns the attribute formatted for Query output
func (a TensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, dims=%v, n_elems=%d, size=%d, fmt=%s, type=%s, qnt_type=%s, zp=%d, scale=%f",
		a.Index, a.Name, a.Dims, a.NElems, a.Size, a.Fmt, a.Type, a.QntType, a.ZP, a.Scale)
}

func (t TensorType) String() string {
	switch t {
	case TensorFloat32:
		return "FP32"
	case TensorFloat16:
		return "FP16"
	case TensorInt8:
		return "INT8"
	case TensorUint8:
		return "UINT8"
	}

	return fmt.Sprintf("TensorType(%d)", int(t))
}

func (t TensorQntType) String() string {
	switch t {
	case TensorQntNone:
		return "NONE"
	case TensorQntDFP:
		return "DFP"
	case TensorQntAffine:
		return "AFFINE"
	}

	return fmt.Sprintf("TensorQntType(%d)", int(t))
}

func (t TensorFormat) String() string {
	switch t {
	case TensorNCHW:
		return "NCHW"
	case TensorNHWC:
		return "NHWC"
	case TensorNC1HWC2:
		return "NC1HWC2"
	case TensorUndefined:
		return "UNDEFINED"
	}

	return fmt.Sprintf("TensorFormat(%d)", int(t))
}
