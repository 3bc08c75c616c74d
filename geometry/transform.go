package geometry

import (
	"fmt"
	"math"

	"github.com/swdee/go-posecam"
	"gonum.org/v1/gonum/mat"
)

// singularDet is the determinant magnitude below which a Transform is treated
// as not invertible
const singularDet = 1e-12

// Transform is a 3x3 affine matrix mapping points between two coordinate
// spaces.  The zero value is not usable, use Identity() or Build().
type Transform struct {
	m *mat.Dense
}

// Identity returns the identity Transform
func Identity() Transform {
	return Transform{
		m: mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		}),
	}
}

func translate(tx, ty float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, tx,
		0, 1, ty,
		0, 0, 1,
	})
}

func scale(sx, sy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	})
}

// rotate returns a rotation by a quadrant, clockwise on screen where y points
// down.  Exact values are used so quadrant rotations introduce no rounding.
func rotate(quadrant int) *mat.Dense {

	var cos, sin float64

	switch quadrant {
	case 0:
		cos, sin = 1, 0
	case 90:
		cos, sin = 0, 1
	case 180:
		cos, sin = -1, 0
	case 270:
		cos, sin = 0, -1
	}

	return mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})
}

// postMul applies next after the current matrix, ie: next * m
func postMul(m, next *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(next, m)
	return &out
}

// ScaleTranslate returns the Transform scaling by sx, sy then translating by
// tx, ty
func ScaleTranslate(sx, sy, tx, ty float64) Transform {
	return Transform{m: postMul(scale(sx, sy), translate(tx, ty))}
}

// NormalizeRotation folds a rotation in degrees into the range [0, 360) and
// checks it is a quadrant
func NormalizeRotation(rotation int) (int, error) {

	rot := ((rotation % 360) + 360) % 360

	if rot%90 != 0 {
		return 0, fmt.Errorf("%w: rotation %d is not a multiple of 90",
			posecam.ErrInvalidGeometry, rotation)
	}

	return rot, nil
}

// Build returns the Transform that maps a srcW x srcH rectangle onto a
// dstW x dstH rectangle.  The source is centered on the origin, rotated by
// the rotation quadrant, scaled to the destination and translated to the
// destination center.  When maintainAspect is set a single uniform scale,
// the smaller of the two axis scales, is used which letterboxes the source
// inside the destination.
func Build(srcW, srcH, dstW, dstH int, rotation int, maintainAspect bool) (Transform, error) {

	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Transform{}, fmt.Errorf("%w: cannot map %dx%d to %dx%d",
			posecam.ErrInvalidGeometry, srcW, srcH, dstW, dstH)
	}

	rot, err := NormalizeRotation(rotation)

	if err != nil {
		return Transform{}, err
	}

	m := translate(-float64(srcW)/2, -float64(srcH)/2)
	m = postMul(m, rotate(rot))

	// with a quarter turn the source width lies along the destination height
	transpose := rot == 90 || rot == 270
	inW, inH := srcW, srcH

	if transpose {
		inW, inH = srcH, srcW
	}

	scaleX := float64(dstW) / float64(inW)
	scaleY := float64(dstH) / float64(inH)

	if maintainAspect {
		s := math.Min(scaleX, scaleY)
		scaleX, scaleY = s, s
	}

	m = postMul(m, scale(scaleX, scaleY))
	m = postMul(m, translate(float64(dstW)/2, float64(dstH)/2))

	return Transform{m: m}, nil
}

// Invert returns the inverse Transform
func (t Transform) Invert() (Transform, error) {

	if t.m == nil || math.Abs(mat.Det(t.m)) < singularDet {
		return Transform{}, fmt.Errorf("%w: transform is singular", posecam.ErrInvalidGeometry)
	}

	var inv mat.Dense

	if err := inv.Inverse(t.m); err != nil {
		return Transform{}, fmt.Errorf("%w: %v", posecam.ErrInvalidGeometry, err)
	}

	return Transform{m: &inv}, nil
}

// Then returns a Transform that applies t followed by next
func (t Transform) Then(next Transform) Transform {
	return Transform{m: postMul(t.m, next.m)}
}

// MapPoint maps a point through the transform
func (t Transform) MapPoint(p Point) Point {

	x, y := float64(p.X), float64(p.Y)

	return Point{
		X: float32(t.m.At(0, 0)*x + t.m.At(0, 1)*y + t.m.At(0, 2)),
		Y: float32(t.m.At(1, 0)*x + t.m.At(1, 1)*y + t.m.At(1, 2)),
	}
}

// MapRect maps the four corners of the rectangle through the transform and
// returns their axis aligned bounding box
func (t Transform) MapRect(r Rect) Rect {

	corners := [4]Point{
		t.MapPoint(Point{X: r.Left, Y: r.Top}),
		t.MapPoint(Point{X: r.Right, Y: r.Top}),
		t.MapPoint(Point{X: r.Right, Y: r.Bottom}),
		t.MapPoint(Point{X: r.Left, Y: r.Bottom}),
	}

	out := Rect{
		Left:   corners[0].X,
		Top:    corners[0].Y,
		Right:  corners[0].X,
		Bottom: corners[0].Y,
	}

	for _, c := range corners[1:] {
		out.Left = min(out.Left, c.X)
		out.Top = min(out.Top, c.Y)
		out.Right = max(out.Right, c.X)
		out.Bottom = max(out.Bottom, c.Y)
	}

	return out
}

// Affine2x3 returns the top two rows of the matrix in row major order, the
// layout expected by an OpenCV warpAffine matrix
func (t Transform) Affine2x3() [6]float64 {
	return [6]float64{
		t.m.At(0, 0), t.m.At(0, 1), t.m.At(0, 2),
		t.m.At(1, 0), t.m.At(1, 1), t.m.At(1, 2),
	}
}

// IsZero reports if the Transform has not been built
func (t Transform) IsZero() bool {
	return t.m == nil
}

// String returns the matrix formatted for logging
func (t Transform) String() string {

	if t.m == nil {
		return "Transform(nil)"
	}

	return fmt.Sprintf("Transform[%.4f %.4f %.4f; %.4f %.4f %.4f]",
		t.m.At(0, 0), t.m.At(0, 1), t.m.At(0, 2),
		t.m.At(1, 0), t.m.At(1, 1), t.m.At(1, 2))
}
