package postprocess

import (
	"fmt"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/result"
)

// PoseNet decodes the heatmap and offset outputs of a single person PoseNet
// MobileNet model
type PoseNet struct {
	// Side is the side length of the square model input in pixels
	Side int
}

// NewPoseNet returns a PoseNet post processor for the given input side
func NewPoseNet(side int) *PoseNet {
	return &PoseNet{Side: side}
}

// Decode finds the most likely position of every keypoint.  outputs[0] is
// the heatmap [1,H,W,17] and outputs[1] the offsets [1,H,W,34] holding the y
// offsets followed by the x offsets.  For each keypoint the heatmap cell with
// the highest value is taken, scaled from the grid to the input side and
// refined by its offset.  The keypoint score is the sigmoid of the heatmap
// value and the person score is the mean keypoint score.
func (p *PoseNet) Decode(outputs []engine.Tensor) (result.Person, error) {

	if len(outputs) < 2 {
		return result.Person{}, fmt.Errorf("%w: PoseNet expects heatmap and offset outputs, got %d",
			posecam.ErrShapeMismatch, len(outputs))
	}

	heat := outputs[0]
	offsets := outputs[1]

	if len(heat.Shape) != 4 || heat.Shape[3] != result.NumKeyPoints {
		return result.Person{}, fmt.Errorf("%w: heatmap shape %v", posecam.ErrShapeMismatch, heat.Shape)
	}

	gridH, gridW := heat.Shape[1], heat.Shape[2]

	if gridH < 2 || gridW < 2 {
		return result.Person{}, fmt.Errorf("%w: heatmap grid %dx%d", posecam.ErrShapeMismatch, gridW, gridH)
	}

	numKP := result.NumKeyPoints

	if len(heat.Data) < gridH*gridW*numKP || len(offsets.Data) < gridH*gridW*numKP*2 {
		return result.Person{}, fmt.Errorf("%w: heatmap or offsets shorter than %dx%d grid",
			posecam.ErrShapeMismatch, gridW, gridH)
	}

	side := float32(p.Side)

	var person result.Person
	var total float32

	for k := 0; k < numKP; k++ {

		row, col := argmaxCell(heat.Data, gridH, gridW, numKP, k)
		cell := row*gridW + col

		offY := offsets.Data[cell*numKP*2+k]
		offX := offsets.Data[cell*numKP*2+k+numKP]

		// positions are truncated to whole pixels
		y := float32(int(float32(row)/float32(gridH-1)*side + offY))
		x := float32(int(float32(col)/float32(gridW-1)*side + offX))

		score := sigmoid(heat.Data[cell*numKP+k])

		person.KeyPoints[k] = result.KeyPoint{
			Part:     result.BodyPart(k),
			Position: geometry.Pt(x, y),
			Score:    score,
		}

		total += score
	}

	person.Score = total / float32(numKP)

	return person, nil
}

// argmaxCell returns the grid cell with the highest value for channel k of
// an HxWxC tensor, the first cell wins ties
func argmaxCell(data []float32, h, w, c, k int) (int, int) {

	bestRow, bestCol := 0, 0
	best := data[k]

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			v := data[(row*w+col)*c+k]

			if v > best {
				best = v
				bestRow, bestCol = row, col
			}
		}
	}

	return bestRow, bestCol
}
