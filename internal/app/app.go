// Package app assembles the studio session shared by the GUI and terminal
// front-ends: the device core, acquisition machinery, worker pool, and
// CRISP autofocus support.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"mmstudio/internal/config"
	"mmstudio/internal/crisp"
	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/runtime"
	"mmstudio/internal/workers"
)

const workerPoolSize = 4

type Studio struct {
	Options config.Options
	Logger  *logging.Logger
	Core    *mmcore.SimCore
	Runner  *mda.Runner
	Acq     *runtime.Controller
	Pool    *workers.Pool

	watcher *mmcore.ConfigWatcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a studio session. dispatch marshals worker callbacks onto the
// front-end's UI thread; nil runs them inline.
func New(rootCtx context.Context, opts config.Options, logger *logging.Logger, dispatch func(fn func())) *Studio {
	if logger == nil {
		panic("app.New: logger must not be nil")
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(rootCtx)

	core := mmcore.NewSimCore()
	runner := mda.NewRunner(core, logger)
	return &Studio{
		Options: opts,
		Logger:  logger,
		Core:    core,
		Runner:  runner,
		Acq:     runtime.NewController(ctx, runner),
		Pool:    workers.NewPool(workerPoolSize, dispatch, logger),
		watcher: mmcore.NewConfigWatcher(core, logger),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Ctx returns the session context. It is canceled when Shutdown begins.
func (s *Studio) Ctx() context.Context { return s.ctx }

// Start loads the startup system configuration and begins watching it for
// on-disk changes.
func (s *Studio) Start() error {
	if path := s.Options.ConfigPath; path != "" {
		if err := config.ValidateConfigPath(path); err != nil {
			return err
		}
		if err := s.Core.LoadSystemConfiguration(path); err != nil {
			return err
		}
		s.Logger.Info("system configuration loaded", logging.Field("path", path))
	}

	s.wg.Go(func() {
		if err := s.watcher.RunContext(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.Logger.Warn("configuration watcher stopped", logging.Field("error", err))
		}
	})
	return nil
}

// DetectCRISP probes the loaded devices for an ASI autofocus controller.
// When none answers, the simulated device stands in only if the session was
// started with the sim-crisp option; otherwise the detection error is
// returned and the caller degrades its UI. Detection blocks through its
// backoff retries, so call it off the UI thread.
func (s *Studio) DetectCRISP(ctx context.Context) (crisp.Device, error) {
	hw := crisp.NewHardwareDevice(s.Core, s.Logger)
	if err := hw.Detect(ctx); err != nil {
		if s.Options.SimCRISP {
			s.Logger.Info("no CRISP hardware found, using simulated device",
				logging.Field("error", err),
			)
			return crisp.NewSimDevice(), nil
		}
		return nil, err
	}
	return hw, nil
}

// Shutdown stops any acquisition in flight and waits for background work
// to drain, bounded by timeout.
func (s *Studio) Shutdown(timeout time.Duration) bool {
	s.cancel()
	ok := s.Acq.StopAndWait(timeout)
	if !s.Pool.Wait(timeout) {
		ok = false
	}

	watcherDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(watcherDone)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-watcherDone:
	case <-timer.C:
		ok = false
	}
	return ok
}
