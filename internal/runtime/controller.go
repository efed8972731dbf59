// Package runtime manages the lifecycle of acquisition runs: one active
// run at a time, started on a background goroutine and stoppable with a
// bounded wait.
package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
)

type Controller struct {
	rootCtx context.Context
	runner  *mda.Runner

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

type StartHooks struct {
	// OnFrame reports acquisition progress as frames complete.
	OnFrame func(done, total int)
	OnExit  func(error)
}

func NewController(rootCtx context.Context, runner *mda.Runner) *Controller {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	return &Controller{rootCtx: rootCtx, runner: runner}
}

func (c *Controller) Runner() *mda.Runner { return c.runner }

// Start launches an acquisition run in the background. It fails if a run
// is already in flight or the options do not resolve to a service.
func (c *Controller) Start(opts AcquireOptions, logger *logging.Logger, hooks StartHooks) error {
	if logger == nil {
		panic("runtime.Controller.Start: logger must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return mda.ErrAlreadyRunning
	}

	service, err := NewService(c.runner, opts, logger)
	if err != nil {
		return err
	}

	total := opts.Sequence.Size()
	var unsubscribe func()
	if hooks.OnFrame != nil {
		done := 0
		unsubscribe = c.runner.Events().OnFrameReady(func(frame mmcore.Frame, ev mda.Event, meta mda.FrameMeta) {
			done++
			hooks.OnFrame(done, total)
		})
	}

	parent := c.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	c.cancel = cancel
	c.running = true
	c.wg.Go(func() {
		defer cancel()
		runErr := service.RunContext(ctx)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			logger.Debug("acquisition run canceled", logging.Field("error", runErr))
		} else if runErr != nil {
			logger.Warn("acquisition run exited with error", logging.Field("error", runErr))
		} else {
			logger.Info("acquisition run finished")
		}
		if unsubscribe != nil {
			unsubscribe()
		}
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()

		if hooks.OnExit != nil {
			hooks.OnExit(runErr)
		}
	})

	return nil
}

func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) Wait(timeout time.Duration) bool {
	waitDone := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitDone)
	}()
	if timeout <= 0 {
		<-waitDone
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waitDone:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Controller) StopAndWait(timeout time.Duration) bool {
	c.Stop()
	return c.Wait(timeout)
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
