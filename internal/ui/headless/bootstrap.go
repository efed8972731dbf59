// Package headless is the terminal front-end: the same studio session as
// the GUI, driven through a Bubble Tea program instead of a window system.
package headless

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"mmstudio/internal/config"
	"mmstudio/internal/logging"
)

const (
	logChannelBufferSize = 512
	updateTickInterval   = 250 * time.Millisecond
	crispPollTickCount   = 4
	runErrorExitCode     = 1
)

func Run(rootCtx context.Context, buildVersion string, opts config.Options) {
	defer forceDisableMouseTracking()

	if saved, loadErr := config.LoadSettings(); loadErr == nil {
		opts = config.MergeOptionsWithSettings(opts, saved)
	}

	logger := logging.New(false)
	if logger == nil {
		panic("headless.Run: logging.New returned nil")
	}
	logger.SetDebugEnabled(opts.Debug)
	if err := logger.EnableFilePersistence(0); err != nil {
		logger.Warn("failed to enable file log persistence", logging.Field("error", err))
	}
	logger.SetTerminalOutputEnabled(false)
	logger.Info("starting studio TUI", logging.Field("version", buildVersion))

	m := newHeadlessModel(rootCtx, buildVersion, opts, logger)
	zone.NewGlobal()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	m.program = program
	result, runErr := program.Run()
	model, _ := result.(*headlessModel)
	if model != nil {
		model.cleanup()
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(runErrorExitCode)
	}
}

func forceDisableMouseTracking() {
	_, _ = os.Stdout.WriteString("\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l\x1b[?1015l")
}

func (m *headlessModel) Init() tea.Cmd {
	return tea.Batch(
		waitForLog(m.logCh),
		tickCmd(),
		m.startStudioCmd(),
	)
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(line)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(updateTickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
