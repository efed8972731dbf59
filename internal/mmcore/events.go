package mmcore

import "mmstudio/internal/events"

// Events is the device-side notification hub. Handlers run synchronously on
// the emitting goroutine, in registration order, and must not block; UI
// subscribers are responsible for marshaling onto their own thread.
type Events struct {
	propertyChanged events.Topic[func(device, prop, value string)]
	configLoaded    events.Topic[func(path string)]
	stageMoved      events.Topic[func(stage string, pos float64)]
}

func newEvents() *Events { return &Events{} }

func (e *Events) OnPropertyChanged(fn func(device, prop, value string)) func() {
	return e.propertyChanged.Add(fn)
}

func (e *Events) OnSystemConfigurationLoaded(fn func(path string)) func() {
	return e.configLoaded.Add(fn)
}

func (e *Events) OnStagePositionChanged(fn func(stage string, pos float64)) func() {
	return e.stageMoved.Add(fn)
}

func (e *Events) emitPropertyChanged(device, prop, value string) {
	for _, fn := range e.propertyChanged.Snapshot() {
		fn(device, prop, value)
	}
}

func (e *Events) emitConfigLoaded(path string) {
	for _, fn := range e.configLoaded.Snapshot() {
		fn(path)
	}
}

func (e *Events) emitStageMoved(stage string, pos float64) {
	for _, fn := range e.stageMoved.Snapshot() {
		fn(stage, pos)
	}
}
