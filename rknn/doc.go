/*
Package rknn runs models on the Rockchip NPU through the RKNN Toolkit2 C API
and exposes them as an engine.Engine.

The librknnrt shared library and rknn_api.h header must be installed on the
target board, eg: an RK3588 based SBC.  Models are the .rknn files compiled by
the RKNN Toolkit2 from the TFLite detector and PoseNet models.
*/
package rknn
