package headless

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"mmstudio/internal/config"
	"mmstudio/internal/ui/headless/keyboard"
)

const (
	TabOverview = 0
	TabAcquire  = 1

	inputCount            = 4
	defaultInputCharLimit = 256
	defaultInputWidth     = 40
	framesInputIndex      = 0
	intervalInputIndex    = 1
	slicesInputIndex      = 2
	outputInputIndex      = 3

	defaultLogViewWidth  = 80
	defaultLogViewHeight = 16
	defaultPaneWidth     = 32
	defaultPaneHeight    = 8
)

// Focusable controls on the acquire tab, in tab order. Inputs occupy
// indices [0, inputCount); the buttons follow.
const (
	focusStartButton = inputCount
	focusStopButton  = inputCount + 1
	focusCount       = inputCount + 2
)

const (
	zoneTabOverview = "tab-overview"
	zoneTabAcquire  = "tab-acquire"
	zoneStartButton = "btn-start"
	zoneStopButton  = "btn-stop"
	zoneQuitYes     = "quit-yes"
	zoneQuitNo      = "quit-no"
	zoneErrorOK     = "error-ok"
	zoneInputPrefix = "input-"
)

type uiState struct {
	Inputs []textinput.Model
	Focus  int
	Tab    int

	HelpView help.Model
	Keys     keyboard.Map

	LogText    string
	LogView    viewport.Model
	DeviceView viewport.Model
	FollowLogs bool

	Width  int
	Height int

	ConfirmQuit       bool
	ConfirmQuitChoice int
	ErrorModalText    string
	HoverZone         string
}

func newUIState(opts config.Options) uiState {
	inputs := make([]textinput.Model, inputCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = defaultInputCharLimit
		inputs[i].Width = defaultInputWidth
		inputs[i].Prompt = ""
	}
	inputs[framesInputIndex].Placeholder = "1"
	inputs[framesInputIndex].SetValue("1")
	inputs[intervalInputIndex].Placeholder = "0"
	inputs[intervalInputIndex].SetValue("0")
	inputs[slicesInputIndex].Placeholder = "1"
	inputs[slicesInputIndex].SetValue("1")
	inputs[outputInputIndex].Placeholder = "memory"
	inputs[outputInputIndex].SetValue(strings.TrimSpace(opts.DataDir))
	inputs[framesInputIndex].Focus()

	helpView := help.New()
	helpView.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	helpView.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpView.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpView.Styles.Ellipsis = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return uiState{
		Inputs:     inputs,
		Tab:        TabOverview,
		HelpView:   helpView,
		Keys:       keyboard.New(),
		FollowLogs: true,
		LogView:    viewport.New(defaultLogViewWidth, defaultLogViewHeight),
		DeviceView: viewport.New(defaultPaneWidth, defaultPaneHeight),
	}
}

func (s *uiState) resize(width int, height int) {
	s.Width = width
	s.Height = height
	logHeight := height - nonLogLayoutReserveMin
	logHeight = max(logHeight, minLogPanelHeight)
	logWidth := max(width-4, 20)
	s.LogView.Width = logWidth
	s.LogView.Height = logHeight
	s.DeviceView.Width = max(width/2-4, 16)
	s.DeviceView.Height = defaultPaneHeight
	s.LogView.SetContent(s.LogText)
}

func (s *uiState) appendLog(line string) {
	wasAtBottom := s.LogView.AtBottom()
	if s.LogText == "" {
		s.LogText = line
	} else {
		s.LogText += "\n" + line
	}
	if n := strings.Count(s.LogText, "\n"); n > headlessLogLineLimit {
		lines := strings.Split(s.LogText, "\n")
		s.LogText = strings.Join(lines[len(lines)-headlessLogLineLimit:], "\n")
	}
	s.LogView.SetContent(s.LogText)
	if s.FollowLogs || wasAtBottom {
		s.LogView.GotoBottom()
		s.FollowLogs = true
	}
}

func (s *uiState) setFocus(focus int) {
	if focus < 0 {
		focus = focusCount - 1
	}
	if focus >= focusCount {
		focus = 0
	}
	s.Focus = focus
	for i := range s.Inputs {
		if i == focus {
			s.Inputs[i].Focus()
		} else {
			s.Inputs[i].Blur()
		}
	}
}

func (s *uiState) blurInputs() {
	for i := range s.Inputs {
		s.Inputs[i].Blur()
	}
}
