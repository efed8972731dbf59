// Package mmcore is the boundary to the microscope hardware core. The rest
// of the application talks to the Core interface only; the simulated core in
// this package stands in for the device layer the same way a remote
// Micro-Manager core would.
package mmcore

import "context"

type DeviceType int

const (
	UnknownType DeviceType = iota
	CameraDevice
	StageDevice
	XYStageDevice
	AutoFocusDevice
	ShutterDevice
)

func (t DeviceType) String() string {
	switch t {
	case CameraDevice:
		return "Camera"
	case StageDevice:
		return "Stage"
	case XYStageDevice:
		return "XYStage"
	case AutoFocusDevice:
		return "AutoFocus"
	case ShutterDevice:
		return "Shutter"
	default:
		return "Unknown"
	}
}

// Frame is a single grayscale camera exposure.
type Frame struct {
	Width  int
	Height int
	Pix    []uint16
}

// Core is the synchronous device-control surface. Calls are cheap and may be
// issued from any goroutine; implementations serialize internally.
type Core interface {
	GetProperty(device, prop string) (string, error)
	SetProperty(device, prop, value string) error
	DeviceLibrary(device string) (string, error)
	DeviceDescription(device string) (string, error)
	LoadedDevices() []string
	LoadedDevicesOfType(t DeviceType) []string
	DevicePropertyNames(device string) ([]string, error)

	EnableContinuousFocus(enabled bool) error
	IsContinuousFocusLocked() (bool, error)
	AutoFocusOffset() (float64, error)
	SetAutoFocusOffset(offset float64) error

	Position(stage string) (float64, error)
	SetPosition(stage string, pos float64) error
	SetRelativePosition(stage string, delta float64) error
	XYPosition(stage string) (x, y float64, err error)
	SetXYPosition(stage string, x, y float64) error

	SnapImage(ctx context.Context) (Frame, error)

	LoadSystemConfiguration(path string) error
	SystemConfigurationFile() string

	Events() *Events
}
