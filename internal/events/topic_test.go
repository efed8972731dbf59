package events

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTopicDispatchOrder(t *testing.T) {
	var topic Topic[func()]
	var order []int

	topic.Add(func() { order = append(order, 1) })
	topic.Add(func() { order = append(order, 2) })
	topic.Add(func() { order = append(order, 3) })

	for _, fn := range topic.Snapshot() {
		fn()
	}
	if diff := cmp.Diff([]int{1, 2, 3}, order); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopicUnsubscribe(t *testing.T) {
	var topic Topic[func()]
	calls := 0

	remove := topic.Add(func() { calls++ })
	topic.Add(func() { calls += 10 })

	remove()
	remove() // second call is a no-op

	for _, fn := range topic.Snapshot() {
		fn()
	}
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
	if topic.Len() != 1 {
		t.Errorf("len = %d, want 1", topic.Len())
	}
}

func TestTopicReentrantUnsubscribe(t *testing.T) {
	var topic Topic[func()]
	calls := 0

	var remove func()
	remove = topic.Add(func() {
		calls++
		remove()
	})

	for _, fn := range topic.Snapshot() {
		fn()
	}
	for _, fn := range topic.Snapshot() {
		fn()
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
