package result

import (
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestIDGenerator(t *testing.T) {

	gen := NewIDGenerator()
	test.That(t, gen.GetNext(), test.ShouldEqual, int64(1))
	test.That(t, gen.GetNext(), test.ShouldEqual, int64(2))

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				gen.GetNext()
			}
		}()
	}

	wg.Wait()
	test.That(t, gen.GetNext(), test.ShouldEqual, int64(803))
}

func TestBodyPart(t *testing.T) {

	test.That(t, Nose.String(), test.ShouldEqual, "nose")
	test.That(t, RightAnkle.String(), test.ShouldEqual, "right ankle")
	test.That(t, int(RightAnkle), test.ShouldEqual, NumKeyPoints-1)
	test.That(t, BodyPart(17).String(), test.ShouldEqual, "unknown")
}

func TestPersonVisible(t *testing.T) {

	var p Person

	for i := range p.KeyPoints {
		p.KeyPoints[i] = KeyPoint{Part: BodyPart(i), Score: 0.1}
	}

	p.KeyPoints[Nose].Score = 0.9
	p.KeyPoints[LeftKnee].Score = 0.5

	vis := p.Visible(0.5)
	test.That(t, len(vis), test.ShouldEqual, 1)
	test.That(t, vis[0].Part, test.ShouldEqual, Nose)
}
