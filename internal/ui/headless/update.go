package headless

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"mmstudio/internal/logging"
	"mmstudio/internal/runstatus"
)

func (m *headlessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		if _, ok := msg.(quitNowMsg); ok {
			m.cleanup()
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ui.resize(msg.Width, msg.Height)
		return m, nil
	case logMsg:
		m.ui.appendLog(string(msg))
		return m, waitForLog(m.logCh)
	case studioReadyMsg:
		if msg.err != nil {
			m.ui.ErrorModalText = msg.err.Error()
			return m, nil
		}
		m.refreshDevices()
		return m, m.detectCRISPCmd()
	case crispDetectedMsg:
		if msg.err != nil {
			m.crispDev = nil
			m.crispState = "Not detected"
			m.logger.Warn("CRISP detection failed", logging.Field("error", msg.err))
			return m, nil
		}
		m.crispDev = msg.device
		m.crispState = msg.device.State()
		return m, nil
	case crispStatusMsg:
		m.crispState = msg.state
		m.crispSNR = msg.snr
		m.crispSum = msg.sum
		return m, nil
	case startResultMsg:
		if msg.err != nil {
			m.status = runstatus.Failed
			m.kind = statusError
			m.ui.ErrorModalText = msg.err.Error()
			return m, nil
		}
		m.running = true
		m.status = runstatus.Acquiring
		m.kind = statusAcquiring
		return m, nil
	case frameMsg:
		m.framesDone = msg.done
		m.framesTotal = msg.total
		return m, nil
	case runDoneMsg:
		m.running = false
		if msg.err != nil {
			m.status = runstatus.Failed
			m.kind = statusError
			m.ui.ErrorModalText = msg.err.Error()
		} else {
			m.status = runstatus.Finished
			m.kind = statusIdle
		}
		return m, nil
	case snapDoneMsg:
		if msg.err != nil {
			m.ui.ErrorModalText = "Snap failed: " + msg.err.Error()
			return m, nil
		}
		m.logger.Info("snapped image",
			logging.Field("width", msg.width),
			logging.Field("height", msg.height),
		)
		return m, nil
	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		m.crispTicks++
		if m.crispTicks >= crispPollTickCount {
			m.crispTicks = 0
			if cmd := m.crispStatusCmd(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *headlessModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.ui.Keys

	if m.ui.ErrorModalText != "" {
		switch {
		case key.Matches(msg, keys.Activate):
			m.ui.ErrorModalText = ""
		case key.Matches(msg, keys.Quit):
			return m, m.requestQuitCmd()
		}
		return m, nil
	}

	if m.ui.ConfirmQuit {
		switch {
		case key.Matches(msg, keys.ModalToggle):
			m.ui.ConfirmQuitChoice = 1 - m.ui.ConfirmQuitChoice
		case key.Matches(msg, keys.Activate):
			if m.ui.ConfirmQuitChoice == 0 {
				return m, m.beginQuitCmd()
			}
			m.ui.ConfirmQuit = false
		case key.Matches(msg, keys.Quit):
			return m, m.beginQuitCmd()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, m.requestQuitCmd()
	case key.Matches(msg, keys.Snap):
		return m, m.snapCmd()
	case key.Matches(msg, keys.PrevTab):
		m.ui.Tab = TabOverview
		m.ui.blurInputs()
		return m, nil
	case key.Matches(msg, keys.NextTab):
		m.ui.Tab = TabAcquire
		m.ui.setFocus(m.ui.Focus)
		return m, nil
	}

	if m.ui.Tab != TabAcquire {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.NextFocus):
		m.ui.setFocus(m.ui.Focus + 1)
		return m, nil
	case key.Matches(msg, keys.PrevFocus):
		m.ui.setFocus(m.ui.Focus - 1)
		return m, nil
	case key.Matches(msg, keys.Activate) && m.ui.Focus >= inputCount:
		return m, m.activateFocusedControl()
	}

	if m.ui.Focus < inputCount {
		var cmd tea.Cmd
		m.ui.Inputs[m.ui.Focus], cmd = m.ui.Inputs[m.ui.Focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *headlessModel) activateFocusedControl() tea.Cmd {
	switch m.ui.Focus {
	case focusStartButton:
		if m.running {
			return nil
		}
		return m.startAcquisitionCmd()
	case focusStopButton:
		m.stopAcquisition()
		return nil
	}
	return nil
}

func (m *headlessModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionMotion:
		m.ui.HoverZone = m.zoneAt(msg)
		return m, nil
	case tea.MouseActionRelease:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
	default:
		return m, nil
	}

	clicked := m.zoneAt(msg)
	if clicked == "" {
		return m, nil
	}

	if m.ui.ErrorModalText != "" {
		if clicked == zoneErrorOK {
			m.ui.ErrorModalText = ""
		}
		return m, nil
	}
	if m.ui.ConfirmQuit {
		switch clicked {
		case zoneQuitYes:
			return m, m.beginQuitCmd()
		case zoneQuitNo:
			m.ui.ConfirmQuit = false
		}
		return m, nil
	}

	switch clicked {
	case zoneTabOverview:
		m.ui.Tab = TabOverview
		m.ui.blurInputs()
	case zoneTabAcquire:
		m.ui.Tab = TabAcquire
		m.ui.setFocus(m.ui.Focus)
	case zoneStartButton:
		m.ui.setFocus(focusStartButton)
		return m, m.activateFocusedControl()
	case zoneStopButton:
		m.ui.setFocus(focusStopButton)
		return m, m.activateFocusedControl()
	default:
		for i := 0; i < inputCount; i++ {
			if clicked == zoneInputPrefix+strconv.Itoa(i) {
				m.ui.Tab = TabAcquire
				m.ui.setFocus(i)
				break
			}
		}
	}
	return m, nil
}

func (m *headlessModel) zoneAt(msg tea.MouseMsg) string {
	for _, id := range []string{
		zoneTabOverview, zoneTabAcquire,
		zoneStartButton, zoneStopButton,
		zoneQuitYes, zoneQuitNo, zoneErrorOK,
		zoneInputPrefix + "0", zoneInputPrefix + "1",
		zoneInputPrefix + "2", zoneInputPrefix + "3",
	} {
		if zone.Get(id).InBounds(msg) {
			return id
		}
	}
	return ""
}
