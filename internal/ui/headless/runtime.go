package headless

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mmstudio/internal/app"
	"mmstudio/internal/config"
	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/runstatus"
	"mmstudio/internal/runtime"
)

const crispDetectTimeout = 10 * time.Second

func newHeadlessModel(rootCtx context.Context, buildVersion string, opts config.Options, logger *logging.Logger) *headlessModel {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	runCtx, runCancel := context.WithCancel(rootCtx)

	m := &headlessModel{
		buildVersion: buildVersion,
		modelDeps: modelDeps{
			logger:     logger,
			rootCancel: runCancel,
		},
		modelChannels: modelChannels{
			logCh: make(chan string, logChannelBufferSize),
		},
		modelRuntime: modelRuntime{
			status:     runstatus.Idle,
			kind:       statusIdle,
			crispState: "Not detected",
		},
		ui: newUIState(opts),
	}
	m.studio = app.New(runCtx, opts, logger, func(fn func()) { fn() })

	m.unsubscribe = logger.Subscribe(func(event logging.Event) {
		line := logging.FormatEventANSI(event)
		select {
		case m.logCh <- line:
		default:
		}
	})

	return m
}

// startStudioCmd loads the system configuration and kicks off CRISP
// detection. Both happen off the update loop; results come back as
// messages.
func (m *headlessModel) startStudioCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.studio.Start(); err != nil {
			return studioReadyMsg{err: err}
		}
		return studioReadyMsg{}
	}
}

func (m *headlessModel) detectCRISPCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.studio.Ctx(), crispDetectTimeout)
		defer cancel()
		dev, err := m.studio.DetectCRISP(ctx)
		return crispDetectedMsg{device: dev, err: err}
	}
}

func (m *headlessModel) crispStatusCmd() tea.Cmd {
	dev := m.crispDev
	if dev == nil {
		return nil
	}
	return func() tea.Msg {
		return crispStatusMsg{
			state: dev.State(),
			snr:   dev.SNR(),
			sum:   dev.Sum(),
		}
	}
}

func (m *headlessModel) refreshDevices() {
	names := m.studio.Core.LoadedDevices()
	rows := make([]deviceRow, 0, len(names))
	for _, name := range names {
		desc, err := m.studio.Core.DeviceDescription(name)
		if err != nil {
			desc = ""
		}
		rows = append(rows, deviceRow{name: name, description: desc})
	}
	m.devices = rows
	m.ui.DeviceView.SetContent(m.renderDeviceRows())
}

func (m *headlessModel) currentAcquireOptions() (runtime.AcquireOptions, error) {
	frames, err := strconv.Atoi(strings.TrimSpace(m.ui.Inputs[framesInputIndex].Value()))
	if err != nil || frames < 1 {
		return runtime.AcquireOptions{}, errors.New("time points must be a positive integer")
	}
	intervalMS, err := strconv.Atoi(strings.TrimSpace(m.ui.Inputs[intervalInputIndex].Value()))
	if err != nil || intervalMS < 0 {
		return runtime.AcquireOptions{}, errors.New("interval must be a non-negative integer")
	}
	slices, err := strconv.Atoi(strings.TrimSpace(m.ui.Inputs[slicesInputIndex].Value()))
	if err != nil || slices < 1 {
		return runtime.AcquireOptions{}, errors.New("z slices must be a positive integer")
	}

	var axes []mda.Axis
	if frames > 1 {
		axes = append(axes, mda.Axis{Label: "t", Size: frames})
	}
	if slices > 1 {
		axes = append(axes, mda.Axis{Label: "z", Size: slices})
	}
	if len(axes) == 0 {
		axes = append(axes, mda.Axis{Label: "t", Size: 1})
	}

	return runtime.AcquireOptions{
		Sequence:   mda.NewSequence(axes...),
		OutputPath: strings.TrimSpace(m.ui.Inputs[outputInputIndex].Value()),
		Interval:   time.Duration(intervalMS) * time.Millisecond,
	}, nil
}

func (m *headlessModel) startAcquisitionCmd() tea.Cmd {
	opts, err := m.currentAcquireOptions()
	if err != nil {
		m.ui.ErrorModalText = err.Error()
		return nil
	}

	m.status = runstatus.Preparing
	m.kind = statusAcquiring
	m.framesDone = 0
	m.framesTotal = opts.Sequence.Size()
	m.ui.ErrorModalText = ""

	return func() tea.Msg {
		err := m.studio.Acq.Start(opts, m.logger, runtime.StartHooks{
			OnFrame: m.onAcquisitionFrame,
			OnExit:  m.onAcquisitionExit,
		})
		return startResultMsg{err: err}
	}
}

func (m *headlessModel) onAcquisitionFrame(done int, total int) {
	if m.program == nil {
		return
	}
	m.program.Send(frameMsg{done: done, total: total})
}

func (m *headlessModel) onAcquisitionExit(runErr error) {
	if m.program == nil {
		return
	}
	m.program.Send(runDoneMsg{err: runErr})
}

func (m *headlessModel) stopAcquisition() {
	if !m.running {
		return
	}
	m.status = runstatus.Stopping
	m.kind = statusStopping
	m.studio.Acq.Stop()
}

func (m *headlessModel) snapCmd() tea.Cmd {
	return func() tea.Msg {
		frame, err := m.studio.Core.SnapImage(m.studio.Ctx())
		if err != nil {
			return snapDoneMsg{err: err}
		}
		return snapDoneMsg{width: frame.Width, height: frame.Height}
	}
}

func (m *headlessModel) requestQuitCmd() tea.Cmd {
	if m.running {
		m.ui.ConfirmQuit = true
		m.ui.ConfirmQuitChoice = 0
		return nil
	}
	return m.beginQuitCmd()
}

// beginQuitCmd flips the model into its terminal quitting state; the
// actual teardown runs once Update sees quitNowMsg, so an in-flight frame
// still renders.
func (m *headlessModel) beginQuitCmd() tea.Cmd {
	m.quitting = true
	m.ui.ConfirmQuit = false
	return func() tea.Msg { return quitNowMsg{} }
}

func (m *headlessModel) saveSettings() {
	settings, loadErr := config.LoadSettings()
	if loadErr != nil {
		settings = config.SettingsFromOptions(m.studio.Options)
	}
	settings.LastConfigPath = m.studio.Core.SystemConfigurationFile()
	settings.DataDir = strings.TrimSpace(m.ui.Inputs[outputInputIndex].Value())
	if err := config.SaveSettingsWithTimeout(settings, 5*time.Second); err != nil {
		m.logger.Warn("failed to save settings", logging.Field("error", err))
	}
}

func (m *headlessModel) cleanup() {
	m.cleanupOnce.Do(func() {
		m.logger.Debug("tui cleanup started")
		m.saveSettings()
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.rootCancel()
		if ok := m.studio.Shutdown(3 * time.Second); !ok {
			m.logger.Warn("studio session did not stop within timeout")
		}
		if err := m.logger.Close(); err != nil {
			m.logger.Warn("failed to close log file", logging.Field("error", err))
		}
		m.logger.Debug("tui cleanup complete")
	})
}
