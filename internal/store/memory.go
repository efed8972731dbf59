package store

import (
	"sync"

	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
)

// MemoryHandler buffers acquisition frames in an in-memory Array. It is the
// handler the viewer manager falls back to when a run has no output handler
// of its own.
type MemoryHandler struct {
	mu  sync.Mutex
	arr *Array
}

func NewMemoryHandler() *MemoryHandler { return &MemoryHandler{} }

func (h *MemoryHandler) Reset(seq *mda.Sequence) error {
	labels := make([]string, 0, len(seq.Axes))
	dims := make([]int, 0, len(seq.Axes))
	for _, ax := range seq.Axes {
		labels = append(labels, ax.Label)
		dims = append(dims, ax.Size)
	}
	h.mu.Lock()
	h.arr = newArray(labels, dims)
	h.mu.Unlock()
	return nil
}

func (h *MemoryHandler) FrameReady(frame mmcore.Frame, ev mda.Event, meta mda.FrameMeta) error {
	h.mu.Lock()
	arr := h.arr
	h.mu.Unlock()
	if arr == nil {
		return nil
	}
	arr.put(ev.Index, frame)
	return nil
}

func (h *MemoryHandler) SequenceFinished(seq *mda.Sequence) error { return nil }

func (h *MemoryHandler) Store() *Array {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.arr
}
