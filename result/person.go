package result

import "github.com/swdee/go-posecam/geometry"

// BodyPart identifies one of the keypoints the pose model predicts
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumKeyPoints is the number of body parts in a Person
const NumKeyPoints = 17

var bodyPartNames = [NumKeyPoints]string{
	"nose", "left eye", "right eye", "left ear", "right ear",
	"left shoulder", "right shoulder", "left elbow", "right elbow",
	"left wrist", "right wrist", "left hip", "right hip",
	"left knee", "right knee", "left ankle", "right ankle",
}

// String returns the human readable name of the body part
func (b BodyPart) String() string {

	if b < 0 || int(b) >= NumKeyPoints {
		return "unknown"
	}

	return bodyPartNames[b]
}

// BodyJoints are the pairs of body parts joined by a line when the skeleton
// is drawn
var BodyJoints = [12][2]BodyPart{
	{LeftWrist, LeftElbow},
	{LeftElbow, LeftShoulder},
	{LeftShoulder, RightShoulder},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
	{LeftShoulder, LeftHip},
	{LeftHip, RightHip},
	{RightHip, RightShoulder},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
}

// KeyPoint is a single predicted body part location in pose model input
// pixels
type KeyPoint struct {
	Part     BodyPart
	Position geometry.Point
	Score    float32
}

// Person is the pose estimation result for one detected person
type Person struct {
	// KeyPoints holds one entry per BodyPart, in BodyPart order
	KeyPoints [NumKeyPoints]KeyPoint
	// Score is the mean of the keypoint scores
	Score float32
	// Offset is the top left corner of the clamped crop region in detector
	// input pixels
	Offset geometry.Point
	// ScaleSize is the larger side of the unclamped source box, it maps pose
	// input pixels back to detector input pixels as ScaleSize / pose side
	ScaleSize float32
	// SourceBox is the detector input location the crop was taken from
	SourceBox geometry.Rect
}

// Visible returns the keypoints whose score is above minScore
func (p Person) Visible(minScore float32) []KeyPoint {

	var out []KeyPoint

	for _, kp := range p.KeyPoints {
		if kp.Score > minScore {
			out = append(out, kp)
		}
	}

	return out
}
