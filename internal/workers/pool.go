// Package workers runs long, non-UI computations on background goroutines
// and marshals their results back through an injected dispatcher. Task
// bodies must never touch widgets; only the dispatched callbacks may.
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"mmstudio/internal/logging"
)

// Task is one background computation.
type Task func(ctx context.Context) (any, error)

// Callbacks receive the task outcome. Every callback runs on the
// dispatcher (the UI thread in the GUI front end). OnFinished always runs
// last, after OnResult or OnError.
type Callbacks struct {
	OnResult   func(result any)
	OnError    func(err error)
	OnFinished func()
}

// Pool bounds the number of concurrently running tasks.
type Pool struct {
	logger   *logging.Logger
	dispatch func(fn func())
	sem      chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a pool of the given width. dispatch marshals callbacks
// onto the caller's preferred thread; nil means run them inline on the
// worker goroutine.
func NewPool(size int, dispatch func(fn func()), logger *logging.Logger) *Pool {
	if logger == nil {
		panic("workers.NewPool: logger must not be nil")
	}
	if size < 1 {
		size = 1
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Pool{
		logger:   logger,
		dispatch: dispatch,
		sem:      make(chan struct{}, size),
	}
}

// Submit schedules task. It blocks only while the pool is saturated and
// the context is live; a canceled context reports straight to OnError.
func (p *Pool) Submit(ctx context.Context, name string, task Task, cb Callbacks) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.finish(cb, nil, ctx.Err())
		return
	}

	p.wg.Go(func() {
		defer func() { <-p.sem }()
		p.logger.Debug("background task started", logging.Field("task", name))
		result, err := task(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("background task failed",
				logging.Field("task", name),
				logging.Field("error", err),
			)
		} else {
			p.logger.Debug("background task finished", logging.Field("task", name))
		}
		p.finish(cb, result, err)
	})
}

func (p *Pool) finish(cb Callbacks, result any, err error) {
	p.dispatch(func() {
		if err != nil {
			if cb.OnError != nil {
				cb.OnError(err)
			}
		} else if cb.OnResult != nil {
			cb.OnResult(result)
		}
		if cb.OnFinished != nil {
			cb.OnFinished()
		}
	})
}

// Wait blocks until all submitted tasks have completed, or the timeout
// elapses. A timeout of zero or less waits indefinitely.
func (p *Pool) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
