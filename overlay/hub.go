package overlay

import "sync"

// hub fans the latest value out to subscribers.  A slow subscriber only ever
// misses intermediate values, it always receives the newest one.
type hub[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	last   T
	has    bool
	closed bool
}

func newHub[T any]() *hub[T] {
	return &hub[T]{
		subs: make(map[chan T]struct{}),
	}
}

// subscribe returns a channel receiving every following publish together with
// the last value published, if any.  The channel is closed when the hub is.
func (h *hub[T]) subscribe() (chan T, T, bool) {

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, 1)

	if h.closed {
		close(ch)
		return ch, h.last, h.has
	}

	h.subs[ch] = struct{}{}

	return ch, h.last, h.has
}

func (h *hub[T]) unsubscribe(ch chan T) {

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub[T]) publish(v T) {

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.last = v
	h.has = true

	for ch := range h.subs {
		// replace an unread value, only publish sends so the slot is free
		// after the drain
		select {
		case <-ch:
		default:
		}

		ch <- v
	}
}

// count returns the number of subscribers
func (h *hub[T]) count() int {

	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

func (h *hub[T]) close() {

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
