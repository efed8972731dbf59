package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func testFrame(fill uint16) mmcore.Frame {
	pix := make([]uint16, 4*2)
	for i := range pix {
		pix[i] = fill + uint16(i)
	}
	return mmcore.Frame{Width: 4, Height: 2, Pix: pix}
}

func TestMemoryHandlerRoundTrip(t *testing.T) {
	h := NewMemoryHandler()
	if h.Store() != nil {
		t.Fatal("store should be nil before reset")
	}

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 2})
	if err := h.Reset(seq); err != nil {
		t.Fatalf("reset: %v", err)
	}
	arr := h.Store()
	if arr == nil {
		t.Fatal("store should be available after reset")
	}
	if diff := cmp.Diff([]string{"t"}, arr.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	frame := testFrame(100)
	if err := h.FrameReady(frame, mda.Event{Index: map[string]int{"t": 1}}, mda.FrameMeta{}); err != nil {
		t.Fatalf("frame ready: %v", err)
	}
	got, ok := arr.Frame(map[string]int{"t": 1})
	if !ok {
		t.Fatal("frame not found")
	}
	if diff := cmp.Diff(frame.Pix, got.Pix); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
	if _, ok := arr.Frame(map[string]int{"t": 0}); ok {
		t.Error("unexpected frame at t=0")
	}
	if arr.Len() != 1 {
		t.Errorf("len = %d, want 1", arr.Len())
	}
}

func TestBoltHandlerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bolt")
	h, err := NewBoltHandler(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	if h.Store() != nil {
		t.Fatal("store should be nil before reset")
	}

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 2}, mda.Axis{Label: "z", Size: 2})
	if err := h.Reset(seq); err != nil {
		t.Fatalf("reset: %v", err)
	}

	want := testFrame(500)
	ev := mda.Event{Index: map[string]int{"t": 1, "z": 0}}
	if err := h.FrameReady(want, ev, mda.FrameMeta{}); err != nil {
		t.Fatalf("frame ready: %v", err)
	}
	if err := h.SequenceFinished(seq); err != nil {
		t.Fatalf("finish: %v", err)
	}

	arr := h.Store()
	if arr == nil {
		t.Fatal("store is nil after reset")
	}
	got, ok := arr.Frame(ev.Index)
	if !ok {
		t.Fatal("frame not found in reloaded array")
	}
	if got.Width != want.Width || got.Height != want.Height {
		t.Errorf("frame size = %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
	if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestBoltHandlerAsRunnerOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.bolt")
	h, err := NewBoltHandler(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	runner := mda.NewRunner(mmcore.NewSimCore(), testLogger(t))
	runner.SetOutputHandlers(h)

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 3})
	if err := runner.Run(context.Background(), seq); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := h.Store().Len(); got != 3 {
		t.Errorf("stored frames = %d, want 3", got)
	}
}

func TestImageSequenceWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewImageSequenceWriter(dir)

	seq := mda.NewSequence(mda.Axis{Label: "t", Size: 2})
	if err := w.Reset(seq); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for i := 0; i < 2; i++ {
		ev := mda.Event{Index: map[string]int{"t": i}}
		if err := w.FrameReady(testFrame(uint16(i)), ev, mda.FrameMeta{}); err != nil {
			t.Fatalf("frame ready: %v", err)
		}
	}
	if err := w.SequenceFinished(seq); err != nil {
		t.Fatalf("finish: %v", err)
	}

	for _, name := range []string{"frame_t000.png", "frame_t001.png", "sequence.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

func TestHandlerForPath(t *testing.T) {
	if h, err := HandlerForPath("memory:"); err != nil {
		t.Errorf("memory: %v", err)
	} else if _, ok := h.(*MemoryHandler); !ok {
		t.Errorf("memory: got %T", h)
	}

	boltPath := filepath.Join(t.TempDir(), "run.bolt")
	h, err := HandlerForPath(boltPath)
	if err != nil {
		t.Fatalf("bolt: %v", err)
	}
	bh, ok := h.(*BoltHandler)
	if !ok {
		t.Fatalf("bolt: got %T", h)
	}
	bh.Close()

	dir := filepath.Join(t.TempDir(), "sequence-out")
	if h, err := HandlerForPath(dir); err != nil {
		t.Errorf("dir: %v", err)
	} else if _, ok := h.(*ImageSequenceWriter); !ok {
		t.Errorf("dir: got %T", h)
	}

	if _, err := HandlerForPath(filepath.Join(t.TempDir(), "out.xyz")); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestNextAvailablePath(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	free := filepath.Join(dir, "run.bolt")
	if got := NextAvailablePath(free); got != free {
		t.Errorf("free path changed: %q", got)
	}

	touch("run.bolt")
	if got := NextAvailablePath(free); got != filepath.Join(dir, "run_001.bolt") {
		t.Errorf("after plain file: %q", got)
	}

	touch("run_001.bolt")
	touch("run_005.bolt")
	if got := NextAvailablePath(free); got != filepath.Join(dir, "run_006.bolt") {
		t.Errorf("counter not strictly greater than max: %q", got)
	}

	// A higher counter on the requested path itself wins.
	if got := NextAvailablePath(filepath.Join(dir, "run_010.bolt")); got != filepath.Join(dir, "run_010.bolt") {
		t.Errorf("requested counter not honored: %q", got)
	}

	// Unrelated stems do not influence the counter.
	touch("other_099.bolt")
	if got := NextAvailablePath(free); got != filepath.Join(dir, "run_006.bolt") {
		t.Errorf("unrelated stem affected counter: %q", got)
	}
}
