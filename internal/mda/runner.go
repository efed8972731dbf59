package mda

import (
	"context"
	"errors"
	"sync"
	"time"

	"mmstudio/internal/logging"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/runctx"
)

var ErrAlreadyRunning = errors.New("an acquisition is already running")

// Runner executes acquisition sequences against the core, one at a time.
// Frames are delivered to the configured output handlers first, then to
// event subscribers, so handlers always see a frame before any viewer does.
type Runner struct {
	core   mmcore.Core
	logger *logging.Logger
	events Events

	// Interval is an optional pause between successive frames.
	Interval time.Duration

	mu       sync.Mutex
	handlers []FrameHandler
	running  bool
}

func NewRunner(core mmcore.Core, logger *logging.Logger) *Runner {
	if logger == nil {
		panic("mda.NewRunner: logger must not be nil")
	}
	return &Runner{core: core, logger: logger}
}

func (r *Runner) Events() *Events { return &r.events }

// OutputHandlers returns a copy of the handler list for the next run.
func (r *Runner) OutputHandlers() []FrameHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FrameHandler(nil), r.handlers...)
}

func (r *Runner) SetOutputHandlers(handlers ...FrameHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append([]FrameHandler(nil), handlers...)
}

// Running reports whether a sequence is currently executing.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes seq to completion or cancellation. It blocks; callers wanting
// a background acquisition run it on their own goroutine. SequenceFinished
// is emitted exactly once per run regardless of how the run ends.
func (r *Runner) Run(ctx context.Context, seq *Sequence) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	handlers := append([]FrameHandler(nil), r.handlers...)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.logger.Info("starting acquisition",
		logging.Field("uid", seq.UID),
		logging.Field("events", seq.Size()),
		logging.Field("handlers", len(handlers)),
	)

	for _, h := range handlers {
		if err := h.Reset(seq); err != nil {
			return err
		}
	}
	r.events.emitSequenceStarted(seq)
	defer func() {
		for _, h := range handlers {
			if err := h.SequenceFinished(seq); err != nil {
				r.logger.Warn("output handler failed to finalize",
					logging.Field("uid", seq.UID),
					logging.Field("error", err),
				)
			}
		}
		r.events.emitSequenceFinished(seq)
	}()

	start := time.Now()
	for i, ev := range seq.Events() {
		if err := ctx.Err(); err != nil {
			r.logger.Info("acquisition canceled", logging.Field("uid", seq.UID), logging.Field("acquired", i))
			return err
		}
		if i > 0 && r.Interval > 0 {
			if !runctx.SleepOrDone(ctx, r.Interval) {
				r.logger.Info("acquisition canceled", logging.Field("uid", seq.UID), logging.Field("acquired", i))
				return ctx.Err()
			}
		}

		frame, err := r.core.SnapImage(ctx)
		if err != nil {
			r.logger.Error("failed to snap frame",
				logging.Field("uid", seq.UID),
				logging.Field("event", i),
				logging.Field("error", err),
			)
			return err
		}
		meta := FrameMeta{Timestamp: time.Now(), Elapsed: time.Since(start)}
		for _, h := range handlers {
			if err := h.FrameReady(frame, ev, meta); err != nil {
				return err
			}
		}
		r.events.emitFrameReady(frame, ev, meta)
	}

	r.logger.Info("acquisition finished",
		logging.Field("uid", seq.UID),
		logging.Field("frames", seq.Size()),
		logging.Field("elapsed", time.Since(start).Round(time.Millisecond).String()),
	)
	return nil
}
