// Package pubsub provides a minimal in-process publish/subscribe
// primitive: a Topic holds the last published value and replays it to
// every new subscriber, then delivers all subsequent values until the
// subscription is cancelled.
package pubsub

import "sync"

// Topic is a replay-last-value subject. The zero value is not usable;
// create one with New or NewEvents.
type Topic[T any] struct {
	mu     sync.Mutex
	subs   map[int]func(T)
	nextID int
	last   T
	primed bool
	replay bool
	closed bool
}

func New[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]func(T)), replay: true}
}

// NewEvents creates a Topic that does not replay to new subscribers;
// suited to notification streams rather than state.
func NewEvents[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]func(T))}
}

// Publish delivers v to every current subscriber and records it for
// replay. Delivery is synchronous and serialized: subscribers for one
// Publish all observe the same value, never a mixture of publishes.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return
	}

	t.last = v
	t.primed = true

	fns := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn and returns a cancel function. If a value has
// already been published, fn is invoked with it before Subscribe
// returns. Cancel is idempotent.
func (t *Topic[T]) Subscribe(fn func(T)) func() {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = fn

	replay := t.primed && t.replay
	last := t.last
	t.mu.Unlock()

	if replay {
		fn(last)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
		})
	}
}

// Reset forgets the last published value without emitting anything:
// Last reports no value and new subscribers get no replay until the
// next Publish. Existing subscriptions stay registered.
func (t *Topic[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	t.last = zero
	t.primed = false
}

// Last returns the most recently published value, if any.
func (t *Topic[T]) Last() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.primed
}

// Close drops all subscribers and rejects further publishes and
// subscriptions. Safe to call more than once.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.subs = make(map[int]func(T))
}
