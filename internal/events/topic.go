// Package events provides a minimal ordered publish/subscribe primitive
// shared by the device and acquisition notification hubs.
package events

import "sync"

type subscriber[T any] struct {
	id int
	fn T
}

// Topic holds a set of handler functions of one signature. Handlers are
// dispatched in registration order. The zero value is ready to use.
type Topic[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]
}

// Add registers fn and returns a function that removes it again. The
// returned function is safe to call more than once.
func (t *Topic[T]) Add(fn T) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, sub := range t.subs {
			if sub.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the registered handlers in registration order. Emitters
// iterate the snapshot outside the lock so handlers may subscribe or
// unsubscribe reentrantly.
func (t *Topic[T]) Snapshot() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	fns := make([]T, 0, len(t.subs))
	for _, sub := range t.subs {
		fns = append(fns, sub.fn)
	}
	return fns
}

// Len reports the number of registered handlers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
