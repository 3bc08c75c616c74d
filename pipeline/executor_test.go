package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/swdee/go-posecam/internal/logging"
	"go.viam.com/test"
)

func TestExecutorRunsInOrder(t *testing.T) {

	e := NewExecutor(2, logging.Discard())

	var mu sync.Mutex
	var got []int

	for i := 0; i < 20; i++ {
		n := i
		err := e.Submit(func() {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		})
		test.That(t, err, test.ShouldBeNil)
	}

	e.Close()

	test.That(t, len(got), test.ShouldEqual, 20)

	for i, n := range got {
		test.That(t, n, test.ShouldEqual, i)
	}
}

func TestExecutorSubmitAfterClose(t *testing.T) {

	e := NewExecutor(1, logging.Discard())
	e.Close()
	// closing twice is a no-op
	e.Close()

	err := e.Submit(func() {})
	test.That(t, errors.Is(err, ErrExecutorClosed), test.ShouldBeTrue)
}

func TestExecutorSurvivesPanic(t *testing.T) {

	e := NewExecutor(1, logging.Discard())

	ran := false

	test.That(t, e.Submit(func() { panic("boom") }), test.ShouldBeNil)
	test.That(t, e.Submit(func() { ran = true }), test.ShouldBeNil)

	e.Close()

	test.That(t, ran, test.ShouldBeTrue)
}

func TestExecutorOneTaskAtATime(t *testing.T) {

	e := NewExecutor(8, logging.Discard())

	var mu sync.Mutex
	running, peak := 0, 0

	for i := 0; i < 8; i++ {
		test.That(t, e.Submit(func() {
			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()

			// long enough for a second worker to overlap
			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}), test.ShouldBeNil)
	}

	e.Close()

	test.That(t, peak, test.ShouldEqual, 1)
}
