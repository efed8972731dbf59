// Package mda implements multi-dimensional acquisition sequences and the
// background runner that executes them against the hardware core.
package mda

import (
	"time"

	"github.com/google/uuid"

	"mmstudio/internal/mmcore"
)

// Axis is one dimension of an acquisition plan, e.g. {"t", 5} for five
// timepoints. Size must be at least 1.
type Axis struct {
	Label string
	Size  int
}

// Sequence is an ordered acquisition plan. Axes are iterated row-major with
// the last axis varying fastest.
type Sequence struct {
	UID      string
	Axes     []Axis
	Metadata map[string]string
}

func NewSequence(axes ...Axis) *Sequence {
	return &Sequence{
		UID:      uuid.NewString(),
		Axes:     axes,
		Metadata: map[string]string{},
	}
}

// Size returns the total number of events in the plan. A sequence with no
// axes has exactly one event.
func (s *Sequence) Size() int {
	n := 1
	for _, ax := range s.Axes {
		if ax.Size < 1 {
			return 0
		}
		n *= ax.Size
	}
	return n
}

// Event is one acquisition step. Index maps each axis label to the step's
// position along that axis.
type Event struct {
	Index map[string]int
}

// Events expands the plan into its ordered event list. Successive events
// differ by incrementing the last axis first, so per-axis indices are
// non-decreasing in blocks.
func (s *Sequence) Events() []Event {
	total := s.Size()
	if total == 0 {
		return nil
	}
	events := make([]Event, 0, total)
	counters := make([]int, len(s.Axes))
	for {
		index := make(map[string]int, len(s.Axes))
		for i, ax := range s.Axes {
			index[ax.Label] = counters[i]
		}
		events = append(events, Event{Index: index})

		i := len(counters) - 1
		for ; i >= 0; i-- {
			counters[i]++
			if counters[i] < s.Axes[i].Size {
				break
			}
			counters[i] = 0
		}
		if i < 0 {
			return events
		}
	}
}

// FrameMeta describes when a frame was acquired within a run.
type FrameMeta struct {
	Timestamp time.Time
	Elapsed   time.Duration
}

// FrameHandler receives frames as a runner produces them. Implementations
// live in internal/store; the viewer manager adopts the runner's handlers
// to display data as it arrives.
type FrameHandler interface {
	Reset(seq *Sequence) error
	FrameReady(frame mmcore.Frame, ev Event, meta FrameMeta) error
	SequenceFinished(seq *Sequence) error
}
