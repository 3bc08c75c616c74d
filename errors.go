package posecam

import "errors"

var (
	// ErrModelLoadFailed is returned when a model or labels blob is missing or
	// can not be parsed by the inference runtime.  It is fatal to the capture
	// session.
	ErrModelLoadFailed = errors.New("model load failed")

	// ErrShapeMismatch is returned when a raster or tensor does not have the
	// dimensions a model expects
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidGeometry is returned for singular transforms, unsupported
	// rotations and crop regions that clamp to nothing
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrDegenerateDetection marks a detection whose box is smaller than the
	// minimum size in frame space
	ErrDegenerateDetection = errors.New("degenerate detection")

	// ErrPoseEstimationUnavailable is returned when pose estimation could not
	// be run for a person.  The person is skipped, the frame continues.
	ErrPoseEstimationUnavailable = errors.New("pose estimation unavailable")
)
