//go:build !headless

package gui

import (
	"fmt"
	"image/color"
	"log/slog"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mmstudio/internal/logging"
)

const maxConsoleLines = 500

var (
	consoleDebugColor = color.NRGBA{R: 145, G: 145, B: 145, A: 255}
	consoleInfoColor  = color.NRGBA{R: 120, G: 190, B: 255, A: 255}
	consoleWarnColor  = color.NRGBA{R: 219, G: 167, B: 74, A: 255}
	consoleErrorColor = color.NRGBA{R: 220, G: 84, B: 84, A: 255}
)

func levelColor(level slog.Level) color.NRGBA {
	switch {
	case level >= slog.LevelError:
		return consoleErrorColor
	case level >= slog.LevelWarn:
		return consoleWarnColor
	case level >= slog.LevelInfo:
		return consoleInfoColor
	}
	return consoleDebugColor
}

func formatLogEvent(event logging.Event) string {
	var b strings.Builder
	b.WriteString(event.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(event.Level.String())
	b.WriteByte(' ')
	b.WriteString(event.Message)
	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, event.Fields[k])
		}
	}
	return b.String()
}

// consolePanel renders the structured log stream: one colored row per
// event, capped to a rolling window.
type consolePanel struct {
	grid   *widget.TextGrid
	scroll *container.Scroll
	follow bool
	events []logging.Event
	box    fyne.CanvasObject
}

func newConsolePanel(backlog []logging.Event) *consolePanel {
	p := &consolePanel{
		grid:   widget.NewTextGrid(),
		follow: true,
	}
	p.grid.Scroll = fyne.ScrollNone
	p.scroll = container.NewVScroll(p.grid)
	clear := widget.NewButton("Clear", func() {
		p.events = nil
		p.rebuild()
	})
	header := container.NewBorder(nil, nil, nil, clear, widget.NewLabel("Log"))
	bg := canvas.NewRectangle(color.NRGBA{A: 255})
	p.box = container.NewBorder(header, nil, nil, nil, container.NewStack(bg, p.scroll))

	for _, event := range backlog {
		p.events = append(p.events, event)
	}
	p.rebuild()
	return p
}

func (p *consolePanel) append(event logging.Event) {
	p.events = append(p.events, event)
	if len(p.events) > maxConsoleLines {
		p.events = append([]logging.Event(nil), p.events[len(p.events)-maxConsoleLines:]...)
	}
	p.rebuild()
}

func (p *consolePanel) rebuild() {
	rows := make([]widget.TextGridRow, 0, len(p.events))
	for _, event := range p.events {
		fg := levelColor(event.Level)
		text := formatLogEvent(event)
		cells := make([]widget.TextGridCell, 0, len(text))
		style := &widget.CustomTextGridStyle{FGColor: fg}
		for _, r := range text {
			cells = append(cells, widget.TextGridCell{Rune: r, Style: style})
		}
		rows = append(rows, widget.TextGridRow{Cells: cells})
	}
	p.grid.Rows = rows
	p.grid.Refresh()
	if p.follow {
		p.scroll.ScrollToBottom()
	}
}

// exceptionPanel lists only warning and error events so problems are not
// lost in the debug stream.
type exceptionPanel struct {
	list   *widget.TextGrid
	events []logging.Event
	box    fyne.CanvasObject
}

func newExceptionPanel() *exceptionPanel {
	p := &exceptionPanel{list: widget.NewTextGrid()}
	p.list.Scroll = fyne.ScrollNone
	clear := widget.NewButton("Clear", func() {
		p.events = nil
		p.rebuild()
	})
	header := container.NewBorder(nil, nil, nil, clear, widget.NewLabel("Warnings and errors"))
	p.box = container.NewBorder(header, nil, nil, nil, container.NewVScroll(p.list))
	return p
}

func (p *exceptionPanel) append(event logging.Event) {
	if event.Level < slog.LevelWarn {
		return
	}
	p.events = append(p.events, event)
	if len(p.events) > maxConsoleLines {
		p.events = p.events[len(p.events)-maxConsoleLines:]
	}
	p.rebuild()
}

func (p *exceptionPanel) rebuild() {
	rows := make([]widget.TextGridRow, 0, len(p.events))
	for _, event := range p.events {
		style := &widget.CustomTextGridStyle{FGColor: levelColor(event.Level)}
		text := formatLogEvent(event)
		cells := make([]widget.TextGridCell, 0, len(text))
		for _, r := range text {
			cells = append(cells, widget.TextGridCell{Rune: r, Style: style})
		}
		rows = append(rows, widget.TextGridRow{Cells: cells})
	}
	p.list.Rows = rows
	p.list.Refresh()
}
