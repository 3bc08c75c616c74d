package result

import (
	"fmt"

	"github.com/swdee/go-posecam/geometry"
)

// Recognition is a single object detection result
type Recognition struct {
	// ID is a unique ID assigned to the recognition
	ID int64
	// Title is the label of the class detected
	Title string
	// Confidence is the detector score in the range 0 to 1
	Confidence float32
	// Location is the bounding box of the object.  Which coordinate space it
	// is in depends on the stage that produced it, the detector returns
	// detector input pixels
	Location geometry.Rect
}

// String returns the recognition formatted for logging
func (r Recognition) String() string {
	return fmt.Sprintf("[%d] %s (%.1f%%) %s", r.ID, r.Title, r.Confidence*100, r.Location)
}
