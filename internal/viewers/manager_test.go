package viewers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/store"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

type fakeViewer struct {
	seq     *mda.Sequence
	source  *store.Array
	binds   int
	indexes []map[string]int
	closed  bool
	onClose func()
}

func (v *fakeViewer) SetDataSource(arr *store.Array) error {
	v.binds++
	v.source = arr
	return nil
}

func (v *fakeViewer) SetCurrentIndex(index map[string]int) error {
	if v.closed {
		return errors.New("viewer closed")
	}
	v.indexes = append(v.indexes, index)
	return nil
}

func (v *fakeViewer) OnClose(fn func()) { v.onClose = fn }

func (v *fakeViewer) close() {
	v.closed = true
	if v.onClose != nil {
		v.onClose()
	}
}

// manualScheduler collects deferred callbacks so tests control when the
// index update fires.
type manualScheduler struct {
	fns []func()
}

func (s *manualScheduler) schedule(d time.Duration, fn func()) {
	s.fns = append(s.fns, fn)
}

func (s *manualScheduler) fire() {
	fns := s.fns
	s.fns = nil
	for _, fn := range fns {
		fn()
	}
}

func newTestManager(t *testing.T, runner *mda.Runner) (*Manager, *manualScheduler, *[]*fakeViewer) {
	t.Helper()
	var created []*fakeViewer
	m := NewManager(runner, testLogger(t), func(seq *mda.Sequence) (Viewer, error) {
		v := &fakeViewer{seq: seq}
		created = append(created, v)
		return v, nil
	})
	sched := &manualScheduler{}
	m.SetScheduler(sched.schedule)
	return m, sched, &created
}

func TestManagerOwnsHandlerWhenRunnerHasNone(t *testing.T) {
	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	m, sched, created := newTestManager(t, runner)
	defer m.Close()

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 3})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(*created) != 1 {
		t.Fatalf("viewers created = %d, want 1", len(*created))
	}
	v := (*created)[0]
	if v.binds != 1 {
		t.Errorf("data source bound %d times, want exactly once", v.binds)
	}
	if v.source == nil || v.source.Len() != 3 {
		t.Fatalf("private handler did not capture frames: %v", v.source)
	}
	if m.Len() != 1 {
		t.Errorf("live viewers = %d, want 1", m.Len())
	}

	// Frames after the first only schedule an index update.
	if len(v.indexes) != 0 {
		t.Errorf("index updated synchronously: %v", v.indexes)
	}
	sched.fire()
	want := []map[string]int{{"t": 2}}
	if diff := cmp.Diff(want, v.indexes); diff != "" {
		t.Errorf("deferred index mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerAdoptsRunnerHandler(t *testing.T) {
	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	handler := store.NewMemoryHandler()
	runner.SetOutputHandlers(handler)

	m, _, created := newTestManager(t, runner)
	defer m.Close()

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 2})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run: %v", err)
	}

	v := (*created)[0]
	if v.source != handler.Store() {
		t.Error("viewer not bound to the adopted handler's store")
	}
	// The runner feeds the adopted handler; the manager must not double it.
	if got := handler.Store().Len(); got != 2 {
		t.Errorf("adopted handler frames = %d, want 2", got)
	}
}

// lateStoreHandler buffers frames but refuses to expose its array until a
// minimum number of frames has arrived, like a disk-backed handler that
// opens its readable view lazily.
type lateStoreHandler struct {
	inner    *store.MemoryHandler
	received int
	readyAt  int
}

func (h *lateStoreHandler) Reset(seq *mda.Sequence) error { return h.inner.Reset(seq) }

func (h *lateStoreHandler) FrameReady(frame mmcore.Frame, ev mda.Event, meta mda.FrameMeta) error {
	h.received++
	return h.inner.FrameReady(frame, ev, meta)
}

func (h *lateStoreHandler) SequenceFinished(seq *mda.Sequence) error {
	return h.inner.SequenceFinished(seq)
}

func (h *lateStoreHandler) Store() *store.Array {
	if h.received < h.readyAt {
		return nil
	}
	return h.inner.Store()
}

func TestManagerRetriesBindUntilStoreReadable(t *testing.T) {
	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	handler := &lateStoreHandler{inner: store.NewMemoryHandler(), readyAt: 2}
	runner.SetOutputHandlers(handler)

	m, _, created := newTestManager(t, runner)
	defer m.Close()

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 3})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run: %v", err)
	}

	v := (*created)[0]
	if v.binds != 1 {
		t.Fatalf("data source bound %d times, want exactly once", v.binds)
	}
	if v.source == nil {
		t.Fatal("viewer data source still unset after the store became readable")
	}
	if v.source != handler.inner.Store() {
		t.Error("viewer bound to the wrong array")
	}
}

func TestManagerViewerPerSequence(t *testing.T) {
	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	m, _, created := newTestManager(t, runner)
	defer m.Close()

	first := mda.NewSequence(mda.Axis{Label: "t", Size: 1})
	second := mda.NewSequence(mda.Axis{Label: "t", Size: 1})
	for _, seq := range []*mda.Sequence{first, second} {
		if err := runner.Run(context.Background(), seq); err != nil {
			t.Fatalf("run: %v", err)
		}
	}

	if len(*created) != 2 || m.Len() != 2 {
		t.Fatalf("created=%d live=%d, want 2/2", len(*created), m.Len())
	}
	if v, ok := m.ViewerFor(first.UID); !ok || v != Viewer((*created)[0]) {
		t.Error("first sequence viewer not registered by UID")
	}
}

func TestManagerClosedViewerIsForgotten(t *testing.T) {
	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	m, sched, created := newTestManager(t, runner)
	defer m.Close()

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 2})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run: %v", err)
	}

	v := (*created)[0]
	v.close()
	if m.Len() != 0 {
		t.Errorf("live viewers = %d after close, want 0", m.Len())
	}
	if _, ok := m.ViewerFor(seq.UID); ok {
		t.Error("closed viewer still registered")
	}

	// A deferred update that fires after the close must be swallowed.
	sched.fire()
	if len(v.indexes) != 0 {
		t.Errorf("closed viewer received index updates: %v", v.indexes)
	}
}

func TestManagerCloseDetachesFromRunner(t *testing.T) {
	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	m, _, created := newTestManager(t, runner)

	m.Close()
	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 1})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(*created) != 0 {
		t.Error("manager created a viewer after Close")
	}
}
