package headless

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"mmstudio/internal/app"
	"mmstudio/internal/crisp"
	"mmstudio/internal/logging"
)

const headlessLogLineLimit = 2000

const (
	minLogPanelHeight      = 6
	nonLogLayoutReserveMin = 20
)

type logMsg string
type tickMsg struct{}
type quitNowMsg struct{}

type frameMsg struct {
	done  int
	total int
}

type runDoneMsg struct {
	err error
}

type startResultMsg struct {
	err error
}

type studioReadyMsg struct {
	err error
}

type snapDoneMsg struct {
	width  int
	height int
	err    error
}

type crispDetectedMsg struct {
	device crisp.Device
	err    error
}

type crispStatusMsg struct {
	state string
	snr   float64
	sum   float64
}

type statusKind int

const (
	statusIdle statusKind = iota
	statusAcquiring
	statusStopping
	statusError
)

type modelDeps struct {
	studio      *app.Studio
	logger      *logging.Logger
	unsubscribe func()
	rootCancel  context.CancelFunc
	program     *tea.Program
}

type modelChannels struct {
	logCh chan string
}

type modelRuntime struct {
	running  bool
	quitting bool
	status   string
	kind     statusKind

	framesDone  int
	framesTotal int

	crispDev   crisp.Device
	crispState string
	crispSNR   float64
	crispSum   float64
	crispTicks int

	devices []deviceRow
}

type deviceRow struct {
	name        string
	description string
}

type headlessModel struct {
	buildVersion string
	modelDeps
	modelChannels
	modelRuntime
	cleanupOnce sync.Once
	ui          uiState
}
