package mda

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mmstudio/internal/logging"
	"mmstudio/internal/mmcore"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

type recordingHandler struct {
	resets   int
	frames   []Event
	finished int
	failOn   int
}

func (h *recordingHandler) Reset(seq *Sequence) error { h.resets++; return nil }

func (h *recordingHandler) FrameReady(frame mmcore.Frame, ev Event, meta FrameMeta) error {
	h.frames = append(h.frames, ev)
	if h.failOn > 0 && len(h.frames) >= h.failOn {
		return errors.New("handler write failed")
	}
	return nil
}

func (h *recordingHandler) SequenceFinished(seq *Sequence) error { h.finished++; return nil }

func TestSequenceEventsRowMajor(t *testing.T) {
	seq := NewSequence(Axis{"t", 2}, Axis{"z", 3})
	if got := seq.Size(); got != 6 {
		t.Fatalf("size = %d, want 6", got)
	}

	var got [][2]int
	for _, ev := range seq.Events() {
		got = append(got, [2]int{ev.Index["t"], ev.Index["z"]})
	}
	want := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceNoAxes(t *testing.T) {
	seq := NewSequence()
	if got := seq.Size(); got != 1 {
		t.Errorf("size = %d, want 1", got)
	}
	evs := seq.Events()
	if len(evs) != 1 || len(evs[0].Index) != 0 {
		t.Errorf("expected one empty event, got %v", evs)
	}
}

func TestSequenceUniqueUIDs(t *testing.T) {
	a := NewSequence(Axis{"t", 1})
	b := NewSequence(Axis{"t", 1})
	if a.UID == "" || a.UID == b.UID {
		t.Errorf("UIDs should be distinct and non-empty: %q vs %q", a.UID, b.UID)
	}
}

func TestRunnerEmitsInOrder(t *testing.T) {
	runner := NewRunner(mmcore.NewSimCore(), testLogger(t))
	handler := &recordingHandler{}
	runner.SetOutputHandlers(handler)

	var trace []string
	runner.Events().OnSequenceStarted(func(seq *Sequence) { trace = append(trace, "started") })
	runner.Events().OnFrameReady(func(frame mmcore.Frame, ev Event, meta FrameMeta) {
		trace = append(trace, "frame")
		if len(handler.frames) < len(trace)-1 {
			t.Error("event subscriber ran before the output handler")
		}
	})
	runner.Events().OnSequenceFinished(func(seq *Sequence) { trace = append(trace, "finished") })

	seq := NewSequence(Axis{"t", 3})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []string{"started", "frame", "frame", "frame", "finished"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("event trace mismatch (-want +got):\n%s", diff)
	}
	if handler.resets != 1 || handler.finished != 1 {
		t.Errorf("handler lifecycle: resets=%d finished=%d", handler.resets, handler.finished)
	}
	if len(handler.frames) != 3 {
		t.Errorf("handler frames = %d, want 3", len(handler.frames))
	}
}

func TestRunnerFinishedEmittedOnCancel(t *testing.T) {
	runner := NewRunner(mmcore.NewSimCore(), testLogger(t))

	finished := 0
	runner.Events().OnSequenceFinished(func(seq *Sequence) { finished++ })

	ctx, cancel := context.WithCancel(context.Background())
	runner.Events().OnFrameReady(func(frame mmcore.Frame, ev Event, meta FrameMeta) {
		cancel()
	})

	err := runner.Run(ctx, NewSequence(Axis{"t", 100}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if finished != 1 {
		t.Errorf("finished emitted %d times, want 1", finished)
	}
	if runner.Running() {
		t.Error("runner still reports running after cancel")
	}
}

func TestRunnerFinishedEmittedOnHandlerError(t *testing.T) {
	runner := NewRunner(mmcore.NewSimCore(), testLogger(t))
	handler := &recordingHandler{failOn: 2}
	runner.SetOutputHandlers(handler)

	finished := 0
	runner.Events().OnSequenceFinished(func(seq *Sequence) { finished++ })

	if err := runner.Run(context.Background(), NewSequence(Axis{"t", 5})); err == nil {
		t.Fatal("expected handler error")
	}
	if finished != 1 {
		t.Errorf("finished emitted %d times, want 1", finished)
	}
}

func TestRunnerRejectsConcurrentRuns(t *testing.T) {
	runner := NewRunner(mmcore.NewSimCore(), testLogger(t))

	var nested error
	runner.Events().OnFrameReady(func(frame mmcore.Frame, ev Event, meta FrameMeta) {
		if nested == nil {
			nested = runner.Run(context.Background(), NewSequence(Axis{"t", 1}))
		}
	})

	if err := runner.Run(context.Background(), NewSequence(Axis{"t", 1})); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !errors.Is(nested, ErrAlreadyRunning) {
		t.Errorf("nested run error = %v, want ErrAlreadyRunning", nested)
	}
}

func TestRunnerOutputHandlersCopy(t *testing.T) {
	runner := NewRunner(mmcore.NewSimCore(), testLogger(t))
	handler := &recordingHandler{}
	runner.SetOutputHandlers(handler)

	got := runner.OutputHandlers()
	if len(got) != 1 {
		t.Fatalf("handlers = %d, want 1", len(got))
	}
	got[0] = nil
	if runner.OutputHandlers()[0] == nil {
		t.Error("mutating the returned slice changed the runner's handlers")
	}
}
