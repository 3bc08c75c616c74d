package rendercache

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/geometry"
	"github.com/swdee/go-posecam/internal/logging"
	"github.com/swdee/go-posecam/result"
	"go.viam.com/test"
)

const epsilon = 1e-2

type circle struct {
	center geometry.Point
	c      color.RGBA
}

type text struct {
	pos  geometry.Point
	text string
}

// recorder is a Canvas keeping a record of every draw call
type recorder struct {
	size    image.Point
	rounded []geometry.Rect
	radius  []float32
	rects   []geometry.Rect
	circles []circle
	lines   int
	texts   []text
}

func (r *recorder) Size() image.Point {
	return r.size
}

func (r *recorder) RoundRect(rect geometry.Rect, radius float32, c color.RGBA, thickness int) {
	r.rounded = append(r.rounded, rect)
	r.radius = append(r.radius, radius)
}

func (r *recorder) Rect(rect geometry.Rect, c color.RGBA, thickness int) {
	r.rects = append(r.rects, rect)
}

func (r *recorder) Circle(center geometry.Point, radius float32, c color.RGBA) {
	r.circles = append(r.circles, circle{center: center, c: c})
}

func (r *recorder) Line(a, b geometry.Point, c color.RGBA, thickness int) {
	r.lines++
}

func (r *recorder) Text(pos geometry.Point, s string, sizePx float32, bg color.RGBA) {
	r.texts = append(r.texts, text{pos: pos, text: s})
}

func newCache(opts func(*Options)) *Cache {

	o := OptionsFromConfig(posecam.DefaultConfig())

	if opts != nil {
		opts(&o)
	}

	c := New(o, logging.Discard())
	c.SetFrameConfiguration(640, 480, 0)

	return c
}

// frameBox is the detector input box (100,100)-(200,260) in a 640x480 frame
var frameBox = geometry.NewRect(213.333, 160, 426.667, 416)

func personAt(score float32) result.Person {

	p := result.Person{
		Offset:    geometry.Pt(100, 100),
		ScaleSize: 160,
		SourceBox: geometry.NewRect(100, 100, 200, 260),
	}

	for i := range p.KeyPoints {
		p.KeyPoints[i] = result.KeyPoint{
			Part:     result.BodyPart(i),
			Position: geometry.Pt(128, 128),
			Score:    score,
		}
	}

	return p
}

func TestEmptyFrame(t *testing.T) {

	c := newCache(nil)

	test.That(t, c.TrackResults(nil, nil, 1), test.ShouldBeNil)
	test.That(t, c.Tracked(), test.ShouldBeEmpty)

	r := &recorder{size: image.Pt(640, 480)}
	c.Draw(r)
	c.DrawDebug(r)

	test.That(t, r.rounded, test.ShouldBeEmpty)
	test.That(t, r.circles, test.ShouldBeEmpty)
	test.That(t, r.texts, test.ShouldBeEmpty)
}

func TestSinglePerson(t *testing.T) {

	c := newCache(nil)

	recs := []result.Recognition{{Title: "person", Confidence: 0.73, Location: frameBox}}
	test.That(t, c.TrackResults(recs, []result.Person{personAt(0.9)}, 1), test.ShouldBeNil)

	tracked := c.Tracked()
	test.That(t, len(tracked), test.ShouldEqual, 1)
	test.That(t, tracked[0].Color, test.ShouldResemble, posecam.Palette[0])
	test.That(t, tracked[0].ScaleSize, test.ShouldEqual, float32(160))
	test.That(t, tracked[0].Offset, test.ShouldResemble, geometry.Pt(100, 100))

	kp := KeypointToDetector(tracked[0].KeyPoints[0].Position, tracked[0].ScaleSize,
		tracked[0].Offset, 257)
	test.That(t, kp.X, test.ShouldAlmostEqual, float32(179.69), epsilon)
	test.That(t, kp.Y, test.ShouldAlmostEqual, float32(179.69), epsilon)
}

func TestDraw(t *testing.T) {

	c := newCache(nil)

	p := personAt(0.9)
	// at the threshold is not drawn
	p.KeyPoints[result.LeftEye].Score = 0.5
	p.KeyPoints[result.RightEye].Score = 0.1

	recs := []result.Recognition{{Title: "person", Confidence: 0.73, Location: frameBox}}
	test.That(t, c.TrackResults(recs, []result.Person{p}, 1), test.ShouldBeNil)

	tracked := c.Tracked()
	test.That(t, len(tracked[0].Visible), test.ShouldEqual, result.NumKeyPoints-2)
	test.That(t, tracked[0].Visible[0].Part, test.ShouldEqual, result.Nose)

	r := &recorder{size: image.Pt(640, 480)}
	c.Draw(r)

	// the canvas matches the frame so the box is unchanged
	test.That(t, len(r.rounded), test.ShouldEqual, 1)
	test.That(t, r.rounded[0].Left, test.ShouldAlmostEqual, frameBox.Left, epsilon)
	test.That(t, r.rounded[0].Bottom, test.ShouldAlmostEqual, frameBox.Bottom, epsilon)
	test.That(t, r.radius[0], test.ShouldAlmostEqual, float32(213.333/8), epsilon)

	test.That(t, len(r.circles), test.ShouldEqual, result.NumKeyPoints-2)

	// scaleX = 640/300, scaleY = (640*640/480)/300 = 853/300
	c0 := r.circles[0]
	test.That(t, c0.center.X, test.ShouldAlmostEqual, float32(179.688*640/300.0), epsilon)
	test.That(t, c0.center.Y, test.ShouldAlmostEqual, float32(179.688*853/300.0), epsilon)
	test.That(t, c0.c, test.ShouldResemble, posecam.Palette[0])

	test.That(t, r.lines, test.ShouldEqual, 0)

	test.That(t, len(r.texts), test.ShouldEqual, 1)
	test.That(t, r.texts[0].text, test.ShouldEqual, "person 73.00%")
	test.That(t, r.texts[0].pos.X, test.ShouldAlmostEqual, frameBox.Left+213.333/8, epsilon)
	test.That(t, r.texts[0].pos.Y, test.ShouldAlmostEqual, frameBox.Top, epsilon)
}

func TestDrawJoints(t *testing.T) {

	c := newCache(func(o *Options) { o.DrawJoints = true })

	p := personAt(0.9)
	// drops the knee to ankle joint
	p.KeyPoints[result.LeftAnkle].Score = 0.2

	recs := []result.Recognition{{Title: "person", Confidence: 0.9, Location: frameBox}}
	test.That(t, c.TrackResults(recs, []result.Person{p}, 1), test.ShouldBeNil)

	r := &recorder{size: image.Pt(640, 480)}
	c.Draw(r)

	test.That(t, r.lines, test.ShouldEqual, len(result.BodyJoints)-1)
}

func TestSharedMapping(t *testing.T) {

	frameToCrop, err := geometry.Build(640, 480, 300, 300, 0, false)
	test.That(t, err, test.ShouldBeNil)
	cropToFrame, err := frameToCrop.Invert()
	test.That(t, err, test.ShouldBeNil)

	c := newCache(func(o *Options) { o.Mapping = MappingShared })
	c.SetCropToFrame(cropToFrame)

	recs := []result.Recognition{{Title: "person", Confidence: 0.9, Location: frameBox}}
	test.That(t, c.TrackResults(recs, []result.Person{personAt(0.9)}, 1), test.ShouldBeNil)

	// a canvas twice the frame size
	r := &recorder{size: image.Pt(1280, 960)}
	c.Draw(r)

	// 179.688 in detector input is 383.33, 287.5 in the frame
	test.That(t, r.circles[0].center.X, test.ShouldAlmostEqual, float32(2*383.334), 0.05)
	test.That(t, r.circles[0].center.Y, test.ShouldAlmostEqual, float32(2*287.5), 0.05)
	test.That(t, r.rounded[0].Left, test.ShouldAlmostEqual, 2*frameBox.Left, 0.05)
}

func TestPaletteExhaustion(t *testing.T) {

	recs := make([]result.Recognition, 20)
	persons := make([]result.Person, 20)

	for i := range recs {
		recs[i] = result.Recognition{Title: "person", Confidence: 0.9, Location: frameBox}
		persons[i] = personAt(0.9)
	}

	c := newCache(nil)
	test.That(t, c.TrackResults(recs, persons, 1), test.ShouldBeNil)

	tracked := c.Tracked()
	test.That(t, len(tracked), test.ShouldEqual, 15)

	for i, tr := range tracked {
		test.That(t, tr.Color, test.ShouldResemble, posecam.Palette[i])
	}

	// every detection still reaches the debug overlay
	r := &recorder{size: image.Pt(640, 480)}
	c.DrawDebug(r)
	test.That(t, len(r.rects), test.ShouldEqual, 20)

	cycled := newCache(func(o *Options) { o.CyclePalette = true })
	test.That(t, cycled.TrackResults(recs, persons, 1), test.ShouldBeNil)

	tracked = cycled.Tracked()
	test.That(t, len(tracked), test.ShouldEqual, 20)
	test.That(t, tracked[15].Color, test.ShouldResemble, posecam.Palette[0])
	test.That(t, tracked[19].Color, test.ShouldResemble, posecam.Palette[4])
}

func TestDegenerateDetection(t *testing.T) {

	c := newCache(nil)

	recs := []result.Recognition{
		{Title: "person", Confidence: 0.99, Location: geometry.NewRect(10, 10, 18, 200)},
		{Title: "person", Confidence: 0.8, Location: frameBox},
	}
	persons := []result.Person{personAt(0.9), personAt(0.7)}

	test.That(t, c.TrackResults(recs, persons, 1), test.ShouldBeNil)

	tracked := c.Tracked()
	test.That(t, len(tracked), test.ShouldEqual, 1)
	// paired by index and colored by list position
	test.That(t, tracked[0].Confidence, test.ShouldEqual, float32(0.8))
	test.That(t, tracked[0].KeyPoints[0].Score, test.ShouldEqual, float32(0.7))
	test.That(t, tracked[0].Color, test.ShouldResemble, posecam.Palette[0])
}

func TestMismatchedLengths(t *testing.T) {

	c := newCache(nil)

	recs := []result.Recognition{{Title: "person", Confidence: 0.9, Location: frameBox}}
	test.That(t, c.TrackResults(recs, []result.Person{personAt(0.9)}, 1), test.ShouldBeNil)

	err := c.TrackResults(recs, nil, 2)
	test.That(t, errors.Is(err, posecam.ErrShapeMismatch), test.ShouldBeTrue)

	// the previous frame is kept
	test.That(t, len(c.Tracked()), test.ShouldEqual, 1)
}

func TestFrameToCanvas(t *testing.T) {

	// the rotated frame is fitted by height and anchored at the left
	tf, err := FrameToCanvas(640, 480, 90, image.Pt(1080, 1920))
	test.That(t, err, test.ShouldBeNil)

	r := tf.MapRect(geometry.NewRect(0, 0, 640, 480))
	test.That(t, r.Left, test.ShouldAlmostEqual, float32(0), epsilon)
	test.That(t, r.Top, test.ShouldAlmostEqual, float32(0), epsilon)
	test.That(t, r.Right, test.ShouldAlmostEqual, float32(1080), epsilon)
	test.That(t, r.Bottom, test.ShouldAlmostEqual, float32(1440), epsilon)

	_, err = FrameToCanvas(0, 0, 0, image.Pt(640, 480))
	test.That(t, errors.Is(err, posecam.ErrInvalidGeometry), test.ShouldBeTrue)
}

func TestDrawWithoutFrameConfiguration(t *testing.T) {

	c := New(OptionsFromConfig(posecam.DefaultConfig()), logging.Discard())

	recs := []result.Recognition{{Title: "person", Confidence: 0.9, Location: frameBox}}
	test.That(t, c.TrackResults(recs, []result.Person{personAt(0.9)}, 1), test.ShouldBeNil)

	r := &recorder{size: image.Pt(640, 480)}
	c.Draw(r)

	test.That(t, r.rounded, test.ShouldBeEmpty)
}

func TestLabel(t *testing.T) {
	test.That(t, Label("person", 0.731), test.ShouldEqual, "person 73.10%")
	test.That(t, Label("", 0.5), test.ShouldEqual, "50.00%")
}
