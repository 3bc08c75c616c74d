package overlay

import (
	"testing"

	"go.viam.com/test"
)

func TestHubKeepsNewest(t *testing.T) {

	h := newHub[int]()

	ch, _, has := h.subscribe()
	test.That(t, has, test.ShouldBeFalse)

	h.publish(1)
	h.publish(2)
	h.publish(3)

	test.That(t, <-ch, test.ShouldEqual, 3)

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}

	_, last, has := h.subscribe()
	test.That(t, has, test.ShouldBeTrue)
	test.That(t, last, test.ShouldEqual, 3)
	test.That(t, h.count(), test.ShouldEqual, 2)

	h.unsubscribe(ch)
	test.That(t, h.count(), test.ShouldEqual, 1)

	_, ok := <-ch
	test.That(t, ok, test.ShouldBeFalse)
}

func TestHubClose(t *testing.T) {

	h := newHub[string]()
	ch, _, _ := h.subscribe()

	h.close()
	h.close()
	h.publish("late")

	_, ok := <-ch
	test.That(t, ok, test.ShouldBeFalse)

	// subscribing after close yields a closed channel
	late, _, _ := h.subscribe()
	_, ok = <-late
	test.That(t, ok, test.ShouldBeFalse)

	// unsubscribing a channel closed by the hub is a no-op
	h.unsubscribe(ch)
}
