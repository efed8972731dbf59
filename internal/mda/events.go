package mda

import (
	"mmstudio/internal/events"
	"mmstudio/internal/mmcore"
)

// Events is the acquisition-side notification hub. Per run the runner emits
// SequenceStarted once, FrameReady once per acquired frame, then
// SequenceFinished exactly once, including after cancellation or error.
// Handlers run synchronously on the runner goroutine in registration order.
type Events struct {
	sequenceStarted  events.Topic[func(seq *Sequence)]
	frameReady       events.Topic[func(frame mmcore.Frame, ev Event, meta FrameMeta)]
	sequenceFinished events.Topic[func(seq *Sequence)]
}

func (e *Events) OnSequenceStarted(fn func(seq *Sequence)) func() {
	return e.sequenceStarted.Add(fn)
}

func (e *Events) OnFrameReady(fn func(frame mmcore.Frame, ev Event, meta FrameMeta)) func() {
	return e.frameReady.Add(fn)
}

func (e *Events) OnSequenceFinished(fn func(seq *Sequence)) func() {
	return e.sequenceFinished.Add(fn)
}

func (e *Events) emitSequenceStarted(seq *Sequence) {
	for _, fn := range e.sequenceStarted.Snapshot() {
		fn(seq)
	}
}

func (e *Events) emitFrameReady(frame mmcore.Frame, ev Event, meta FrameMeta) {
	for _, fn := range e.frameReady.Snapshot() {
		fn(frame, ev, meta)
	}
}

func (e *Events) emitSequenceFinished(seq *Sequence) {
	for _, fn := range e.sequenceFinished.Snapshot() {
		fn(seq)
	}
}
