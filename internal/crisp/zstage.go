package crisp

import (
	"mmstudio/internal/mmcore"
)

// ZStage wraps the focus drive CRISP corrects. Discovery picks the first
// loaded single-axis stage.
type ZStage struct {
	core       mmcore.Core
	deviceName string
}

func NewZStage(core mmcore.Core) *ZStage {
	return &ZStage{core: core}
}

// FindDevice locates a Z drive among the loaded stage devices.
func (z *ZStage) FindDevice() bool {
	stages := z.core.LoadedDevicesOfType(mmcore.StageDevice)
	if len(stages) == 0 {
		z.deviceName = ""
		return false
	}
	z.deviceName = stages[0]
	return true
}

func (z *ZStage) DeviceName() string { return z.deviceName }

func (z *ZStage) Position() (float64, error) {
	if z.deviceName == "" {
		return 0, ErrNoDevice
	}
	return z.core.Position(z.deviceName)
}

func (z *ZStage) SetPosition(pos float64) error {
	if z.deviceName == "" {
		return ErrNoDevice
	}
	return z.core.SetPosition(z.deviceName, pos)
}

func (z *ZStage) MoveRelative(delta float64) error {
	if z.deviceName == "" {
		return ErrNoDevice
	}
	return z.core.SetRelativePosition(z.deviceName, delta)
}
