// Package viewers ties acquisition runs to display viewers: one viewer per
// sequence, created when the run starts, bound to the run's data store on
// the first frame, and tracked only while it stays open.
package viewers

import (
	"sync"
	"time"

	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/store"
)

const defaultIndexUpdateDelay = 10 * time.Millisecond

// Viewer is one display surface. Implementations are toolkit widgets; the
// manager only ever drives them through this interface. SetCurrentIndex
// returns an error once the viewer has been closed.
type Viewer interface {
	SetDataSource(arr *store.Array) error
	SetCurrentIndex(index map[string]int) error
	OnClose(fn func())
}

// Factory creates an empty viewer for a new sequence.
type Factory func(seq *mda.Sequence) (Viewer, error)

// Scheduler runs fn once after d. Overridable in tests; the default is
// time.AfterFunc. GUI front ends substitute a scheduler that marshals onto
// the UI thread.
type Scheduler func(d time.Duration, fn func())

// Manager creates and tracks viewers for acquisition runs. Entries behave
// like weak references: a viewer's close callback removes it from the map,
// so Len reports only viewers that are still open.
type Manager struct {
	logger  *logging.Logger
	factory Factory

	// OnViewerCreated, when set, runs after a new viewer is registered.
	// The GUI uses it to insert the viewer into the window.
	OnViewerCreated func(v Viewer, seq *mda.Sequence)

	schedule Scheduler
	delay    time.Duration

	mu        sync.Mutex
	viewers   map[string]Viewer
	active    Viewer
	activeSeq *mda.Sequence
	adopted   mda.FrameHandler
	owned     *store.MemoryHandler
	bound     bool
	pending   map[string]int
	scheduled bool
	unsubs    []func()
}

func NewManager(runner *mda.Runner, logger *logging.Logger, factory Factory) *Manager {
	if logger == nil {
		panic("viewers.NewManager: logger must not be nil")
	}
	m := &Manager{
		logger:   logger,
		factory:  factory,
		schedule: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		delay:    defaultIndexUpdateDelay,
		viewers:  map[string]Viewer{},
	}
	m.unsubs = append(m.unsubs,
		runner.Events().OnSequenceStarted(func(seq *mda.Sequence) {
			m.sequenceStarted(seq, runner.OutputHandlers())
		}),
		runner.Events().OnFrameReady(m.frameReady),
		runner.Events().OnSequenceFinished(m.sequenceFinished),
	)
	return m
}

// SetScheduler replaces the deferred-update scheduler.
func (m *Manager) SetScheduler(s Scheduler) {
	m.mu.Lock()
	m.schedule = s
	m.mu.Unlock()
}

// Len reports the number of viewers that are still open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.viewers)
}

// ViewerFor returns the live viewer registered for a sequence UID.
func (m *Manager) ViewerFor(uid string) (Viewer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.viewers[uid]
	return v, ok
}

func (m *Manager) sequenceStarted(seq *mda.Sequence, handlers []mda.FrameHandler) {
	m.mu.Lock()
	m.activeSeq = seq
	m.bound = false
	m.adopted = nil
	m.owned = nil
	if len(handlers) > 0 {
		m.adopted = handlers[0]
	} else {
		m.owned = store.NewMemoryHandler()
		if err := m.owned.Reset(seq); err != nil {
			m.logger.Warn("failed to reset private frame handler", logging.Field("error", err))
		}
	}
	m.mu.Unlock()

	v, err := m.factory(seq)
	if err != nil {
		m.logger.Error("failed to create viewer",
			logging.Field("uid", seq.UID),
			logging.Field("error", err),
		)
		return
	}
	v.OnClose(func() { m.viewerClosed(seq.UID) })

	m.mu.Lock()
	m.viewers[seq.UID] = v
	m.active = v
	m.mu.Unlock()

	m.logger.Debug("viewer created", logging.Field("uid", seq.UID))
	if m.OnViewerCreated != nil {
		m.OnViewerCreated(v, seq)
	}
}

func (m *Manager) frameReady(frame mmcore.Frame, ev mda.Event, meta mda.FrameMeta) {
	m.mu.Lock()
	if m.owned != nil {
		if err := m.owned.FrameReady(frame, ev, meta); err != nil {
			m.logger.Warn("private frame handler rejected frame", logging.Field("error", err))
		}
	}
	viewer := m.active
	if viewer == nil {
		m.mu.Unlock()
		return
	}

	if !m.bound {
		arr := m.currentArrayLocked()
		if arr == nil {
			m.mu.Unlock()
			m.logger.Debug("frame handler exposes no readable store yet; bind retried on next frame")
			return
		}
		m.bound = true
		m.mu.Unlock()
		if err := viewer.SetDataSource(arr); err != nil {
			m.logger.Warn("failed to bind viewer data source", logging.Field("error", err))
		}
		return
	}

	m.pending = ev.Index
	if !m.scheduled {
		m.scheduled = true
		m.schedule(m.delay, m.applyPendingIndex)
	}
	m.mu.Unlock()
}

// applyPendingIndex pushes the most recent event index to the active
// viewer. A viewer closed between scheduling and firing returns an error,
// which is deliberately swallowed.
func (m *Manager) applyPendingIndex() {
	m.mu.Lock()
	m.scheduled = false
	viewer := m.active
	index := m.pending
	m.mu.Unlock()
	if viewer == nil || index == nil {
		return
	}
	if err := viewer.SetCurrentIndex(index); err != nil {
		m.logger.Debugf("viewer index update dropped: %v", err)
	}
}

func (m *Manager) sequenceFinished(seq *mda.Sequence) {
	m.mu.Lock()
	owned := m.owned
	m.mu.Unlock()
	if owned != nil {
		if err := owned.SequenceFinished(seq); err != nil {
			m.logger.Warn("private frame handler failed to finalize", logging.Field("error", err))
		}
	}
}

// currentArrayLocked resolves the readable store behind whichever handler
// is in play for the active run.
func (m *Manager) currentArrayLocked() *store.Array {
	if m.owned != nil {
		return m.owned.Store()
	}
	if provider, ok := m.adopted.(store.ArrayProvider); ok {
		return provider.Store()
	}
	return nil
}

func (m *Manager) viewerClosed(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.viewers[uid]
	if !ok {
		return
	}
	delete(m.viewers, uid)
	if m.active == v {
		m.active = nil
	}
	m.logger.Debug("viewer closed", logging.Field("uid", uid))
}

// Close detaches from the runner and drops the active viewer and handler
// references. Buffered data is not flushed anywhere.
func (m *Manager) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.mu.Lock()
	m.unsubs = nil
	m.active = nil
	m.activeSeq = nil
	m.adopted = nil
	m.owned = nil
	m.mu.Unlock()
}
