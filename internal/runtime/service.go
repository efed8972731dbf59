package runtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/store"
)

// AcquireOptions describes one acquisition run.
type AcquireOptions struct {
	Sequence *mda.Sequence

	// OutputPath selects where frames land: "memory", a .bolt database, or
	// a directory of image files. Empty behaves like "memory". File paths
	// are renumbered so an existing dataset is never overwritten.
	OutputPath string

	// Interval is an optional pause between successive frames.
	Interval time.Duration
}

type Service interface {
	RunContext(ctx context.Context) error
}

type acquisitionService struct {
	runner  *mda.Runner
	seq     *mda.Sequence
	handler mda.FrameHandler
	logger  *logging.Logger

	interval time.Duration
	output   string
}

func NewService(runner *mda.Runner, opts AcquireOptions, logger *logging.Logger) (Service, error) {
	if logger == nil {
		panic("runtime.NewService: logger must not be nil")
	}
	if runner == nil {
		return nil, errors.New("acquisition runner is not configured")
	}
	if opts.Sequence == nil {
		return nil, errors.New("acquisition sequence is required")
	}
	if opts.Sequence.Size() == 0 {
		return nil, errors.New("acquisition sequence is empty")
	}

	output := strings.TrimSpace(opts.OutputPath)
	if output == "" {
		output = "memory"
	}
	if output != "memory" {
		output = store.NextAvailablePath(output)
	}
	handler, err := store.HandlerForPath(output)
	if err != nil {
		return nil, err
	}
	logger.Debug("acquisition output resolved",
		logging.Field("requested", opts.OutputPath),
		logging.Field("output", output),
	)

	return &acquisitionService{
		runner:   runner,
		seq:      opts.Sequence,
		handler:  handler,
		logger:   logger,
		interval: opts.Interval,
		output:   output,
	}, nil
}

func (s *acquisitionService) RunContext(ctx context.Context) error {
	s.runner.Interval = s.interval
	s.runner.SetOutputHandlers(s.handler)

	defer func() {
		if closer, ok := s.handler.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.logger.Warn("failed to close acquisition output",
					logging.Field("output", s.output),
					logging.Field("error", err),
				)
			}
		}
	}()

	s.logger.Info("acquisition starting",
		logging.Field("uid", s.seq.UID),
		logging.Field("frames", s.seq.Size()),
		logging.Field("output", s.output),
	)
	return s.runner.Run(ctx, s.seq)
}
