package crisp

import (
	"sync"
	"time"

	"mmstudio/internal/logging"
)

// DefaultPollInterval is the tick period the status panel polls at.
const DefaultPollInterval = 100 * time.Millisecond

// logCalSkipBudget is how many ticks to suppress after starting a log
// calibration, about three seconds at the default interval.
const logCalSkipBudget = 30

// TimerState describes the poll timer's state machine.
type TimerState int

const (
	TimerStopped TimerState = iota
	TimerRunning
	TimerSkipping
)

func (s TimerState) String() string {
	switch s {
	case TimerStopped:
		return "stopped"
	case TimerRunning:
		return "running"
	case TimerSkipping:
		return "running+skipping"
	}
	return "unknown"
}

// PollTimer drives periodic device polling. While a log calibration is in
// flight the controller stops answering reads, so OnLogCal arms a skip
// budget: ticks still fire but the poll callback is suppressed until the
// budget drains.
type PollTimer struct {
	logger *logging.Logger
	poll   func()

	mu        sync.Mutex
	interval  time.Duration
	running   bool
	skipCount int
	skipping  bool

	stop     chan struct{}
	reconfig chan time.Duration
	wg       sync.WaitGroup
}

func NewPollTimer(poll func(), logger *logging.Logger) *PollTimer {
	if logger == nil {
		panic("crisp.NewPollTimer: logger must not be nil")
	}
	return &PollTimer{
		logger:   logger,
		poll:     poll,
		interval: DefaultPollInterval,
	}
}

// State reports the current state machine position.
func (t *PollTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case !t.running:
		return TimerStopped
	case t.skipping:
		return TimerSkipping
	default:
		return TimerRunning
	}
}

func (t *PollTimer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetInterval reconfigures the tick period. A live timer picks up the new
// interval immediately; an armed skip budget is not reset.
func (t *PollTimer) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	t.mu.Lock()
	t.interval = interval
	running := t.running
	reconfig := t.reconfig
	t.mu.Unlock()
	if running {
		select {
		case reconfig <- interval:
		default:
		}
	}
}

// OnLogCal arms the skip budget. Call it just before issuing the log
// calibration command.
func (t *PollTimer) OnLogCal() {
	t.mu.Lock()
	t.skipCount = logCalSkipBudget
	t.skipping = true
	t.mu.Unlock()
	t.logger.Debug("suspending CRISP polling for log calibration",
		logging.Field("skip_ticks", logCalSkipBudget),
	)
}

// Start begins ticking. Starting a running timer is a no-op.
func (t *PollTimer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.reconfig = make(chan time.Duration, 1)
	interval := t.interval
	stop := t.stop
	reconfig := t.reconfig
	t.mu.Unlock()

	t.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case next := <-reconfig:
				ticker.Reset(next)
			case <-ticker.C:
				t.Tick()
			}
		}
	})
}

// Stop halts ticking and waits for the loop to exit. The skip budget
// survives a stop/start cycle.
func (t *PollTimer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stop)
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *PollTimer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Tick performs one timer step: either burn a skip credit or invoke the
// poll callback.
func (t *PollTimer) Tick() {
	t.mu.Lock()
	if t.skipping {
		t.skipCount--
		if t.skipCount <= 0 {
			t.skipping = false
		}
		t.mu.Unlock()
		return
	}
	poll := t.poll
	t.mu.Unlock()
	if poll != nil {
		poll()
	}
}
