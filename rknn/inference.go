package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/swdee/go-posecam/engine"
	"gocv.io/x/gocv"
)

// Input represents the C.rknn_input struct
type Input struct {
	// Index is the input index
	Index uint32
	// Buf points to the Mat data
	Buf unsafe.Pointer
	// Size is the number of bytes of Buf
	Size uint32
	// PassThrough passes Buf to the input node without conversion, otherwise
	// the runtime converts it from Type and Fmt into the model input type
	PassThrough bool
	Type        TensorType
	Fmt         TensorFormat
}

// matInput describes the continuous Mat data as an RKNN input
func matInput(idx int, mat gocv.Mat) (Input, error) {

	in := Input{
		Index: uint32(idx),
		Fmt:   TensorNHWC,
	}

	switch mat.Type() {
	case gocv.MatTypeCV32FC3, gocv.MatTypeCV32FC1:
		data, err := mat.DataPtrFloat32()

		if err != nil {
			return Input{}, fmt.Errorf("error getting data pointer to Mat: %w", err)
		}

		in.Type = TensorFloat32
		in.Size = uint32(len(data) * 4)
		in.Buf = unsafe.Pointer(&data[0])

	case gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC1:
		data, err := mat.DataPtrUint8()

		if err != nil {
			return Input{}, fmt.Errorf("error getting data pointer to Mat: %w", err)
		}

		in.Type = TensorUint8
		in.Size = uint32(len(data))
		in.Buf = unsafe.Pointer(&data[0])

	default:
		return Input{}, fmt.Errorf("unsupported input Mat type %v", mat.Type())
	}

	return in, nil
}

// Inference runs the model on the given Mat inputs and returns every output
// converted to float32
func (r *Runtime) Inference(mats []gocv.Mat) ([]engine.Tensor, error) {

	inputs := make([]Input, len(mats))

	for idx, mat := range mats {

		if !mat.IsContinuous() {
			mat = mat.Clone()
			defer mat.Close()
		}

		in, err := matInput(idx, mat)

		if err != nil {
			return nil, err
		}

		inputs[idx] = in
	}

	if err := r.SetInputs(inputs); err != nil {
		return nil, fmt.Errorf("error setting inputs: %w", err)
	}

	if err := r.RunModel(); err != nil {
		return nil, fmt.Errorf("error running model: %w", err)
	}

	return r.getOutputs()
}

// SetInputs wraps C.rknn_inputs_set
func (r *Runtime) SetInputs(inputs []Input) error {

	cInputs := make([]C.rknn_input, len(inputs))

	for i, input := range inputs {
		cInputs[i].index = C.uint32_t(input.Index)
		cInputs[i].buf = input.Buf
		cInputs[i].size = C.uint32_t(input.Size)
		cInputs[i].pass_through = C.uint8_t(0)
		if input.PassThrough {
			cInputs[i].pass_through = C.uint8_t(1)
		}
		cInputs[i]._type = C.rknn_tensor_type(input.Type)
		cInputs[i].fmt = C.rknn_tensor_format(input.Fmt)
	}

	ret := C.rknn_inputs_set(r.ctx, C.uint32_t(len(inputs)), &cInputs[0])

	if ret != C.RKNN_SUCC {
		return callError("rknn_inputs_set", ret)
	}

	return nil
}

// RunModel wraps C.rknn_run
func (r *Runtime) RunModel() error {

	ret := C.rknn_run(r.ctx, nil)

	if ret < 0 {
		return callError("rknn_run", ret)
	}

	return nil
}

// getOutputs wraps C.rknn_outputs_get.  Outputs are fetched in their native
// type and converted in Go, fp16 through the lookup table and int8 through
// the tensor quantization parameters.  The C buffers are released before
// returning.
func (r *Runtime) getOutputs() ([]engine.Tensor, error) {

	n := r.ioNum.NumberOutput
	cOutputs := make([]C.rknn_output, n)

	for idx := range cOutputs {
		cOutputs[idx].index = C.uint32_t(idx)
		cOutputs[idx].want_float = C.uint8_t(0)
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(n), &cOutputs[0], nil)

	if ret < 0 {
		return nil, callError("rknn_outputs_get", ret)
	}

	defer C.rknn_outputs_release(r.ctx, C.uint32_t(n), &cOutputs[0])

	outs := make([]engine.Tensor, n)

	for i, cOut := range cOutputs {
		attr := r.outputAttrs[i]
		size := int(cOut.size)

		var data []float32

		switch attr.Type {
		case TensorFloat16:
			data = float16ToFloat32(unsafe.Slice((*uint16)(cOut.buf), size/2))

		case TensorFloat32:
			src := unsafe.Slice((*float32)(cOut.buf), size/4)
			data = make([]float32, len(src))
			copy(data, src)

		case TensorInt8:
			data = dequantize(unsafe.Slice((*int8)(cOut.buf), size), attr.ZP, attr.Scale)

		case TensorUint8:
			src := unsafe.Slice((*uint8)(cOut.buf), size)
			data = make([]float32, len(src))

			for j, v := range src {
				data[j] = (float32(v) - float32(attr.ZP)) * attr.Scale
			}

		default:
			return nil, fmt.Errorf("output %d has unsupported type %s", i, attr.Type)
		}

		outs[i] = engine.Tensor{
			Shape: attr.Info().Shape,
			Data:  data,
		}
	}

	return outs, nil
}
