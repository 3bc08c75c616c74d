package rknn

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// float16ToFloat32 converts a buffer of IEEE 754 half precision values as Go
// has no native fp16 type
func float16ToFloat32(buf []uint16) []float32 {

	out := make([]float32, len(buf))

	for i, v := range buf {
		out[i] = f16LookupTable[v]
	}

	return out
}

// dequantize converts affine quantized int8 values back to float32 using
// the tensor zero point and scale
func dequantize(buf []int8, zp int32, scale float32) []float32 {

	out := make([]float32, len(buf))

	for i, v := range buf {
		out[i] = (float32(v) - float32(zp)) * scale
	}

	return out
}
