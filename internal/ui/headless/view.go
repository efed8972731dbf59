package headless

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"mmstudio/internal/ui/headless/render"
	"mmstudio/internal/ui/headless/theme"
)

func (m *headlessModel) View() string {
	if m.ui.Width == 0 {
		return "initializing..."
	}

	base := m.renderBase()
	if m.ui.ErrorModalText != "" {
		return m.renderModalOverlay(base, m.renderErrorDialog())
	}
	if m.ui.ConfirmQuit {
		return m.renderModalOverlay(base, m.renderQuitConfirmDialog())
	}
	return zone.Scan(base)
}

func (m *headlessModel) renderBase() string {
	header := theme.TitleStyle.Render("MMStudio (" + m.buildVersion + ")")
	tabs := m.renderTabs()

	var content string
	if m.ui.Tab == TabOverview {
		content = m.renderOverview()
	} else {
		content = m.renderAcquire()
	}

	logs := render.Frame(m.ui.LogView.View(), m.ui.Width, theme.PanelStyle)
	helpText := theme.HelpStyle.Render(m.ui.HelpView.View(m.ui.Keys))

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, logs, helpText)
}

func (m *headlessModel) renderTabs() string {
	names := []struct {
		id    string
		label string
		tab   int
	}{
		{zoneTabOverview, "Overview", TabOverview},
		{zoneTabAcquire, "Acquire", TabAcquire},
	}
	parts := make([]string, 0, len(names))
	for _, t := range names {
		style := theme.TabInactiveStyle
		switch {
		case m.ui.Tab == t.tab:
			style = theme.TabActiveStyle
		case m.ui.HoverZone == t.id:
			style = theme.TabHoverStyle
		}
		parts = append(parts, zone.Mark(t.id, style.Render(t.label)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *headlessModel) statusLine() string {
	style := theme.StatusIdleStyle
	switch m.kind {
	case statusAcquiring, statusStopping:
		style = theme.StatusRunningStyle
	case statusError:
		style = theme.StatusErrorStyle
	}
	line := style.Render(m.status)
	if m.running && m.framesTotal > 0 {
		line += theme.HelpStyle.Render(fmt.Sprintf("  %d/%d frames", m.framesDone, m.framesTotal))
	}
	return line
}

func (m *headlessModel) renderOverview() string {
	halfWidth := max(m.ui.Width/2-1, 24)

	statusBody := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Acquisition"),
		m.statusLine(),
		"",
		theme.TitleStyle.Render("CRISP"),
		m.renderCRISPLines(),
	)
	statusPane := render.Frame(statusBody, halfWidth, theme.PanelStyle)

	deviceBody := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Devices"),
		m.ui.DeviceView.View(),
	)
	devicePane := render.Frame(deviceBody, halfWidth, theme.PanelStyle)

	return lipgloss.JoinHorizontal(lipgloss.Top, statusPane, devicePane)
}

func (m *headlessModel) renderCRISPLines() string {
	if m.crispDev == nil {
		return theme.DimStyle.Render(m.crispState)
	}
	return strings.Join([]string{
		"State: " + m.crispState,
		fmt.Sprintf("SNR:   %.2f", m.crispSNR),
		fmt.Sprintf("Sum:   %.0f", m.crispSum),
	}, "\n")
}

func (m *headlessModel) renderDeviceRows() string {
	if len(m.devices) == 0 {
		return theme.DimStyle.Render("no configuration loaded")
	}
	width := max(m.ui.DeviceView.Width-2, 16)
	lines := make([]string, 0, len(m.devices))
	for _, dev := range m.devices {
		line := dev.name
		if dev.description != "" {
			line += theme.DimStyle.Render("  " + dev.description)
		}
		lines = append(lines, render.TruncateDisplayWidth(line, width))
	}
	return strings.Join(lines, "\n")
}

func (m *headlessModel) renderAcquire() string {
	labels := []string{"Time points", "Interval ms", "Z slices", "Output dir"}
	rows := make([]string, 0, inputCount+2)
	for i, label := range labels {
		style := theme.HelpStyle
		if m.ui.Focus == i {
			style = theme.FocusStyle
		}
		row := style.Render(render.PadLine(label, 12)) + m.ui.Inputs[i].View()
		rows = append(rows, zone.Mark(zoneInputPrefix+strconv.Itoa(i), row))
	}

	start := m.renderButton(zoneStartButton, "Start", m.ui.Focus == focusStartButton, !m.running)
	stop := m.renderButton(zoneStopButton, "Stop", m.ui.Focus == focusStopButton, m.running)
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, start, " ", stop))
	rows = append(rows, m.statusLine())

	return render.Frame(strings.Join(rows, "\n"), m.ui.Width, theme.PanelStyle)
}

func (m *headlessModel) renderButton(id string, label string, focused bool, enabled bool) string {
	style := theme.ButtonStyle
	switch {
	case !enabled:
		style = theme.ButtonDisabledStyle
	case focused:
		style = theme.ButtonFocusedStyle
	case m.ui.HoverZone == id:
		style = theme.ButtonHoverStyle
	}
	return zone.Mark(id, style.Render(label))
}

func (m *headlessModel) renderErrorDialog() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		theme.ErrorStyle.Render("Error"),
		"",
		m.ui.ErrorModalText,
		"",
		zone.Mark(zoneErrorOK, theme.ButtonFocusedStyle.Render("OK")),
	)
	return theme.PanelStyle.Render(body)
}

func (m *headlessModel) renderQuitConfirmDialog() string {
	yesStyle := theme.ButtonStyle
	noStyle := theme.ButtonStyle
	if m.ui.ConfirmQuitChoice == 0 {
		yesStyle = theme.ButtonFocusedStyle
	} else {
		noStyle = theme.ButtonFocusedStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		zone.Mark(zoneQuitYes, yesStyle.Render("Quit")),
		"  ",
		zone.Mark(zoneQuitNo, noStyle.Render("Cancel")),
	)
	body := lipgloss.JoinVertical(lipgloss.Center,
		theme.TitleStyle.Render("Quit MMStudio?"),
		"",
		"An acquisition is still running and will be stopped.",
		"",
		buttons,
	)
	return theme.PanelStyle.Render(body)
}

func (m *headlessModel) renderModalOverlay(base string, dialog string) string {
	faded := theme.ModalBackdrop.Render(base)
	overlay := lipgloss.Place(m.ui.Width, m.ui.Height, lipgloss.Center, lipgloss.Center, dialog)
	return zone.Scan(faded + "\n" + overlay)
}
