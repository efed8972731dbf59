// Package render holds width-aware helpers shared by the terminal views.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Frame wraps content in panelStyle sized to the given outer width.
func Frame(content string, width int, panelStyle lipgloss.Style) string {
	innerWidth := width - panelStyle.GetHorizontalFrameSize()
	innerWidth = max(innerWidth, 1)
	return panelStyle.Width(innerWidth).Render(content)
}

// TruncateDisplayWidth cuts value to the given terminal cell width,
// appending an ellipsis when anything was dropped. ANSI sequences do not
// count toward the width.
func TruncateDisplayWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(value) <= width {
		return value
	}
	if width == 1 {
		return "…"
	}
	limit := width - ansi.StringWidth("…")
	limit = max(limit, 0)
	var b strings.Builder
	current := 0
	for _, r := range value {
		w := ansi.StringWidth(string(r))
		if current+w > limit {
			break
		}
		b.WriteRune(r)
		current += w
	}
	return b.String() + "…"
}

// PadLine right-pads value with spaces to the given display width.
func PadLine(value string, width int) string {
	gap := width - ansi.StringWidth(value)
	if gap <= 0 {
		return value
	}
	return value + strings.Repeat(" ", gap)
}
