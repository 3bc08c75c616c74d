package posecam

import (
	"fmt"
	"image/color"
	"strings"
)

// Device names accepted for Config.PoseDevice
const (
	DeviceCPU   = "CPU"
	DeviceGPU   = "GPU"
	DeviceNNAPI = "NNAPI"
)

// Palette is the fixed list of colors assigned to tracked people in detection
// order
var Palette = []color.RGBA{
	{R: 0, G: 0, B: 255, A: 255},     // blue
	{R: 255, G: 0, B: 0, A: 255},     // red
	{R: 0, G: 255, B: 0, A: 255},     // green
	{R: 255, G: 255, B: 0, A: 255},   // yellow
	{R: 0, G: 255, B: 255, A: 255},   // cyan
	{R: 255, G: 0, B: 255, A: 255},   // magenta
	{R: 255, G: 255, B: 255, A: 255}, // white
	{R: 85, G: 255, B: 85, A: 255},   // #55FF55
	{R: 255, G: 165, B: 0, A: 255},   // #FFA500
	{R: 255, G: 136, B: 136, A: 255}, // #FF8888
	{R: 170, G: 170, B: 255, A: 255}, // #AAAAFF
	{R: 255, G: 255, B: 170, A: 255}, // #FFFFAA
	{R: 85, G: 170, B: 170, A: 255},  // #55AAAA
	{R: 170, G: 51, B: 170, A: 255},  // #AA33AA
	{R: 13, G: 0, B: 104, A: 255},    // #0D0068
}

// Config holds the values the pipeline is built with.  DefaultConfig returns
// the constants the application ships with, cmd/posecam only overrides model
// locations, the camera and debug switches.
type Config struct {
	// PreviewWidth and PreviewHeight are the camera preview size requested
	PreviewWidth  int
	PreviewHeight int
	// SensorRotation is the camera orientation relative to the screen canvas
	// in degrees, one of 0, 90, 180, 270
	SensorRotation int

	// DetectorModel is the asset name of the object detection model
	DetectorModel string
	// DetectorLabels is the asset name of the detector labels file
	DetectorLabels string
	// DetectorInputSize is the side length of the square detector input
	DetectorInputSize int
	// DetectorQuantized indicates the detector takes uint8 input
	DetectorQuantized bool
	// MaintainAspect letterboxes the frame into the detector input instead of
	// stretching it
	MaintainAspect bool

	// PoseModel is the asset name of the pose estimation model
	PoseModel string
	// PoseInputSize is the side length of the square pose model input
	PoseInputSize int
	// PoseDevice selects the pose inference device, CPU, GPU or NNAPI
	PoseDevice string

	// PersonLabel is the only detector label passed on to pose estimation
	PersonLabel string
	// MinDetectionConfidence is the minimum detector confidence accepted
	MinDetectionConfidence float32
	// MinKeypointScore is the score a keypoint must exceed to be rendered
	MinKeypointScore float32
	// MinBoxSize is the minimum frame space width and height of a box
	MinBoxSize float32
	// CornerDivisor divides the smaller box side to get the corner radius
	CornerDivisor float32

	// PipelineTextSizeDip and TrackerTextSizeDip are label text sizes in
	// density independent pixels
	PipelineTextSizeDip float32
	TrackerTextSizeDip  float32
	// DisplayDensity converts dip to pixels
	DisplayDensity float32

	// NumThreads is the detector CPU thread count, 0 leaves the backend default
	NumThreads int
	// UseAccelerator asks the detector backend to use its hardware accelerator
	UseAccelerator bool

	// SavePreview writes the detector input and pose crops to PreviewDir
	SavePreview bool
	PreviewDir  string
	// CyclePalette reuses palette colors past the palette length instead of
	// dropping the extra people
	CyclePalette bool
	// DrawJoints renders the skeleton lines between keypoints
	DrawJoints bool
	// SharedKeypointMapping maps keypoints through the same frame to canvas
	// transform as the boxes
	SharedKeypointMapping bool
}

// DefaultConfig returns the configuration constants of the application
func DefaultConfig() Config {
	return Config{
		PreviewWidth:           640,
		PreviewHeight:          480,
		SensorRotation:         0,
		DetectorModel:          "detect.tflite",
		DetectorLabels:         "labelmap.txt",
		DetectorInputSize:      300,
		DetectorQuantized:      true,
		MaintainAspect:         false,
		PoseModel:              "posenet_model.tflite",
		PoseInputSize:          257,
		PoseDevice:             DeviceCPU,
		PersonLabel:            "person",
		MinDetectionConfidence: 0.5,
		MinKeypointScore:       0.5,
		MinBoxSize:             16,
		CornerDivisor:          8,
		PipelineTextSizeDip:    10,
		TrackerTextSizeDip:     18,
		DisplayDensity:         1,
		SavePreview:            false,
		PreviewDir:             "preview",
	}
}

// Validate checks the configuration for values the pipeline can not run with
func (c Config) Validate() error {

	if c.PreviewWidth <= 0 || c.PreviewHeight <= 0 {
		return fmt.Errorf("invalid preview size %dx%d", c.PreviewWidth, c.PreviewHeight)
	}

	if c.SensorRotation%90 != 0 {
		return fmt.Errorf("%w: sensor rotation %d is not a multiple of 90",
			ErrInvalidGeometry, c.SensorRotation)
	}

	if c.DetectorInputSize <= 0 || c.PoseInputSize <= 0 {
		return fmt.Errorf("invalid model input size detector=%d pose=%d",
			c.DetectorInputSize, c.PoseInputSize)
	}

	switch strings.ToUpper(c.PoseDevice) {
	case DeviceCPU, DeviceGPU, DeviceNNAPI:
	default:
		return fmt.Errorf("unknown pose device %q, use CPU, GPU or NNAPI", c.PoseDevice)
	}

	if c.CornerDivisor <= 0 {
		return fmt.Errorf("corner divisor must be positive, got %v", c.CornerDivisor)
	}

	if c.DisplayDensity <= 0 {
		return fmt.Errorf("display density must be positive, got %v", c.DisplayDensity)
	}

	return nil
}

// TextSizePx converts a dip text size to pixels using the display density
func (c Config) TextSizePx(dip float32) float32 {
	return dip * c.DisplayDensity
}
