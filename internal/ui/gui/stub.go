//go:build headless

// Headless builds carry no window toolkit; this stub keeps the package
// importable so main can select the front-end at runtime.
package gui

import (
	"context"

	"mmstudio/internal/config"
)

func Available() bool { return false }

func Run(context.Context, string, config.Options) {
	panic("gui.Run called in a headless build")
}
