// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"errors"
	"sync"

	"github.com/swdee/go-posecam/engine"
	"gocv.io/x/gocv"
)

// Fake is an engine.Engine returning canned outputs
type Fake struct {
	mu sync.Mutex

	In  []engine.TensorInfo
	Out []engine.TensorInfo
	// InvokeFn produces the outputs of a call, it receives the input Mat
	InvokeFn func(input gocv.Mat) ([]engine.Tensor, error)

	Calls       int
	InputTypes  []gocv.MatType
	Threads     int
	Accelerator bool
	Closed      bool
}

// Inputs returns In
func (f *Fake) Inputs() []engine.TensorInfo {
	return f.In
}

// Outputs returns Out
func (f *Fake) Outputs() []engine.TensorInfo {
	return f.Out
}

// Invoke records the call and runs InvokeFn
func (f *Fake) Invoke(input gocv.Mat) ([]engine.Tensor, error) {

	f.mu.Lock()
	f.Calls++
	f.InputTypes = append(f.InputTypes, input.Type())
	fn := f.InvokeFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("no outputs")
	}

	return fn(input)
}

// SetNumThreads records n
func (f *Fake) SetNumThreads(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Threads = n
	return nil
}

// SetUseAccelerator records on
func (f *Fake) SetUseAccelerator(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accelerator = on
	return nil
}

// Close marks the engine closed
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// CallCount returns the number of Invoke calls
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

// Loader returns a Loader handing out f, or err when set
func Loader(f *Fake, err error) engine.Loader {
	return engine.LoaderFunc(func([]byte, engine.Options) (engine.Engine, error) {
		if err != nil {
			return nil, err
		}
		return f, nil
	})
}

// SSDInfo returns the tensor layout of a COCO SSD MobileNet model
func SSDInfo(size int) ([]engine.TensorInfo, []engine.TensorInfo) {
	return []engine.TensorInfo{
			{Name: "normalized_input_image_tensor", Shape: []int{1, size, size, 3}, Type: engine.Uint8},
		}, []engine.TensorInfo{
			{Name: "TFLite_Detection_PostProcess", Shape: []int{1, 10, 4}, Type: engine.Float32},
			{Name: "TFLite_Detection_PostProcess:1", Shape: []int{1, 10}, Type: engine.Float32},
			{Name: "TFLite_Detection_PostProcess:2", Shape: []int{1, 10}, Type: engine.Float32},
			{Name: "TFLite_Detection_PostProcess:3", Shape: []int{1}, Type: engine.Float32},
		}
}

// Detection is one canned SSD detection in detector input pixels
type Detection struct {
	Class                    int
	Score                    float32
	Left, Top, Right, Bottom float32
}

// SSDOutputs builds SSD outputs holding dets for a model of the given input
// size, at most 10 are kept
func SSDOutputs(size int, dets []Detection) []engine.Tensor {

	const slots = 10

	locations := make([]float32, slots*4)
	classes := make([]float32, slots)
	scores := make([]float32, slots)
	n := min(len(dets), slots)
	s := float32(size)

	for i := 0; i < n; i++ {
		d := dets[i]
		locations[i*4+0] = d.Top / s
		locations[i*4+1] = d.Left / s
		locations[i*4+2] = d.Bottom / s
		locations[i*4+3] = d.Right / s
		classes[i] = float32(d.Class)
		scores[i] = d.Score
	}

	return []engine.Tensor{
		{Shape: []int{1, slots, 4}, Data: locations},
		{Shape: []int{1, slots}, Data: classes},
		{Shape: []int{1, slots}, Data: scores},
		{Shape: []int{1}, Data: []float32{float32(n)}},
	}
}

// PoseInfo returns the tensor layout of a PoseNet MobileNet model
func PoseInfo(side int) ([]engine.TensorInfo, []engine.TensorInfo) {
	grid := (side-1)/32 + 1
	return []engine.TensorInfo{
			{Name: "sub_2", Shape: []int{1, side, side, 3}, Type: engine.Float32},
		}, []engine.TensorInfo{
			{Name: "MobilenetV1/heatmap_2/BiasAdd", Shape: []int{1, grid, grid, 17}, Type: engine.Float32},
			{Name: "MobilenetV1/offset_2/BiasAdd", Shape: []int{1, grid, grid, 34}, Type: engine.Float32},
		}
}

// PoseOutputs builds PoseNet outputs on a 9x9 grid with every keypoint
// peaking at the given cell with logit heat and zero offsets
func PoseOutputs(row, col int, heat float32) []engine.Tensor {

	const grid, kp = 9, 17

	heatmap := make([]float32, grid*grid*kp)
	offsets := make([]float32, grid*grid*kp*2)

	for i := range heatmap {
		heatmap[i] = -10
	}

	for k := 0; k < kp; k++ {
		heatmap[(row*grid+col)*kp+k] = heat
	}

	return []engine.Tensor{
		{Shape: []int{1, grid, grid, kp}, Data: heatmap},
		{Shape: []int{1, grid, grid, kp * 2}, Data: offsets},
	}
}
