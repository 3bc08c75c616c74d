package postprocess

import "math"

// sigmoid squashes a logit into the range 0 to 1
func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}
