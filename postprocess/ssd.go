package postprocess

import (
	"fmt"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/result"
)

// SSD decodes the outputs of a TFLite SSD MobileNet detection model with the
// detection post processing op built in
type SSD struct {
	// Params are the Model configuration parameters
	Params SSDParams
	labels []string
	idGen  *result.IDGenerator
}

// SSDParams defines the SSD parameters used for post processing
type SSDParams struct {
	// InputSize is the side length of the square model input in pixels,
	// normalized box coordinates are scaled by it
	InputSize int
	// MaxDetections is the number of detection slots the model outputs
	MaxDetections int
	// LabelOffset is added to the class index to find the label, the first
	// line of the COCO label map is the ??? background class
	LabelOffset int
}

// SSDCOCOParams returns SSDParams for the quantized COCO SSD MobileNet model
// featuring:
// - Input Size: 300
// - Maximum Detections: 10
// - Label Offset: 1
func SSDCOCOParams() SSDParams {
	return SSDParams{
		InputSize:     300,
		MaxDetections: 10,
		LabelOffset:   1,
	}
}

// NewSSD returns an SSD post processor using the given labels
func NewSSD(labels []string, p SSDParams) *SSD {
	return &SSD{
		Params: p,
		labels: labels,
		idGen:  result.NewIDGenerator(),
	}
}

// Decode converts the four model outputs into recognitions in detector input
// pixels.  The outputs are locations [1,N,4] ordered top, left, bottom, right
// and normalized to 0..1, classes [1,N], scores [1,N] and the valid count [1].
// Recognitions are returned in output order, no score filtering is applied.
func (s *SSD) Decode(outputs []engine.Tensor) ([]result.Recognition, error) {

	if len(outputs) < 3 {
		return nil, fmt.Errorf("%w: SSD expects 4 outputs, got %d", posecam.ErrShapeMismatch, len(outputs))
	}

	locations := outputs[0].Data
	classes := outputs[1].Data
	scores := outputs[2].Data

	n := s.Params.MaxDetections

	if len(locations) < n*4 || len(classes) < n || len(scores) < n {
		return nil, fmt.Errorf("%w: SSD outputs hold fewer than %d detections",
			posecam.ErrShapeMismatch, n)
	}

	// the count output limits the slots holding real detections, the rest
	// are zero filled
	if len(outputs) > 3 && len(outputs[3].Data) > 0 {
		n = min(n, max(int(outputs[3].Data[0]), 0))
	}

	size := float32(s.Params.InputSize)
	recs := make([]result.Recognition, 0, n)

	for i := 0; i < n; i++ {

		top := locations[i*4+0]
		left := locations[i*4+1]
		bottom := locations[i*4+2]
		right := locations[i*4+3]

		recs = append(recs, result.Recognition{
			ID:         s.idGen.GetNext(),
			Title:      s.label(int(classes[i])),
			Confidence: scores[i],
			Location:   geometry.NewRect(left*size, top*size, right*size, bottom*size),
		})
	}

	return recs, nil
}

// label returns the label for the model class index
func (s *SSD) label(class int) string {

	idx := class + s.Params.LabelOffset

	if idx < 0 || idx >= len(s.labels) {
		return "unknown"
	}

	return s.labels[idx]
}
