// Package workbench manages the singleton commands and widgets of the main
// window: lazy get-or-create per action key, close-to-hide interception,
// and two-phase layout persistence. It is toolkit-agnostic; the GUI front
// end supplies the DockHost that actually places widgets on screen.
package workbench

import "mmstudio/internal/actions"

// Widget is an opaque toolkit widget instance produced by a factory.
type Widget any

// Placement selects where a widget's container goes when first created.
type Placement int

const (
	DockLeft Placement = iota
	DockRight
	DockBottom
	Floating
	SideBarLeft
)

func (p Placement) String() string {
	switch p {
	case DockLeft:
		return "left"
	case DockRight:
		return "right"
	case DockBottom:
		return "bottom"
	case Floating:
		return "floating"
	case SideBarLeft:
		return "sidebar-left"
	}
	return "unknown"
}

// placementFor is the closed per-key placement table.
var placementFor = map[actions.WidgetAction]Placement{
	actions.About:        Floating,
	actions.PropBrowser:  SideBarLeft,
	actions.MDA:          DockRight,
	actions.StageControl: DockLeft,
	actions.CameraROI:    DockLeft,
	actions.ConfigGroups: DockLeft,
	actions.Console:      DockBottom,
	actions.ExceptionLog: Floating,
	actions.CRISP:        DockLeft,
	actions.IllumControl: DockLeft,
}

// PlacementFor returns the declared placement for key, defaulting to the
// right dock area.
func PlacementFor(key actions.WidgetAction) Placement {
	if p, ok := placementFor[key]; ok {
		return p
	}
	return DockRight
}

// Container wraps a placed widget. Visibility on the container is the
// source of truth for "is this widget open".
type Container interface {
	SetVisible(visible bool)
	Visible() bool
	Raise()
	// OnCloseIntercept registers the handler invoked in place of a user
	// close gesture. The host must not destroy the container on close.
	OnCloseIntercept(fn func())
}

// DockHost is the toolkit-side docking surface.
type DockHost interface {
	Place(key actions.WidgetAction, title string, w Widget, p Placement) Container
	SaveGeometry() []byte
	RestoreGeometry(data []byte) error
	SaveState() []byte
	RestoreState(data []byte) error
}

// WidgetFactory constructs the widget for one key. Called at most once per
// key for the life of the workbench.
type WidgetFactory func() (Widget, error)
