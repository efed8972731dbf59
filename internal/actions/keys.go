// Package actions defines the closed set of user-facing commands: direct
// hardware actions and widget open/close toggles, plus the static metadata
// table used to build menu and toolbar entries for them.
package actions

// ActionKey identifies one user-facing action. It is a sealed interface:
// the only implementations are CoreAction and WidgetAction, so the full key
// space is known at compile time and keys are usable as map keys.
type ActionKey interface {
	String() string
	isActionKey()
}

// CoreAction is a direct hardware command.
type CoreAction string

const (
	SnapImage  CoreAction = "Snap"
	ToggleLive CoreAction = "Toggle Live"
)

func (CoreAction) isActionKey()     {}
func (a CoreAction) String() string { return string(a) }

// WidgetAction opens or closes a singleton widget.
type WidgetAction string

const (
	About        WidgetAction = "About"
	PropBrowser  WidgetAction = "Device Property Browser"
	MDA          WidgetAction = "MDA"
	StageControl WidgetAction = "Stage Control"
	CameraROI    WidgetAction = "Camera ROI"
	ConfigGroups WidgetAction = "Config Groups"
	Console      WidgetAction = "Console"
	ExceptionLog WidgetAction = "Exception Log"
	CRISP        WidgetAction = "CRISP"
	IllumControl WidgetAction = "Illumination"
)

func (WidgetAction) isActionKey()     {}
func (a WidgetAction) String() string { return string(a) }

// WidgetActions lists every widget key in menu order.
func WidgetActions() []WidgetAction {
	return []WidgetAction{
		About,
		PropBrowser,
		MDA,
		StageControl,
		CameraROI,
		ConfigGroups,
		Console,
		ExceptionLog,
		CRISP,
		IllumControl,
	}
}

// ParseWidgetAction maps a persisted key name back to its WidgetAction.
func ParseWidgetAction(name string) (WidgetAction, bool) {
	for _, key := range WidgetActions() {
		if string(key) == name {
			return key, true
		}
	}
	return "", false
}
