package crisp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"mmstudio/internal/logging"
	"mmstudio/internal/mmcore"
)

const (
	detectInitialDelay = 250 * time.Millisecond
	detectMaxDelay     = 2 * time.Second
	detectMaxTries     = 5
)

// Firmware below this version leaves the Tiger controller unresponsive
// during log calibration, so polling must be suspended for its duration.
const tigerLogCalFirmware = 3.38

var ErrNoDevice = errors.New("no CRISP device detected")

// HardwareDevice drives a real CRISP unit through the core's property
// system.
type HardwareDevice struct {
	core   mmcore.Core
	logger *logging.Logger

	deviceName string
	controller string
	firmware   float64
}

func NewHardwareDevice(core mmcore.Core, logger *logging.Logger) *HardwareDevice {
	if logger == nil {
		panic("crisp.NewHardwareDevice: logger must not be nil")
	}
	return &HardwareDevice{core: core, logger: logger}
}

// Detect searches the loaded autofocus devices for an ASI controller,
// retrying with exponential backoff because adapters can take a moment to
// come up after a configuration load.
func (d *HardwareDevice) Detect(ctx context.Context) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = detectInitialDelay
	retry.MaxInterval = detectMaxDelay
	retry.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if d.scan() {
			return struct{}{}, nil
		}
		return struct{}{}, ErrNoDevice
	},
		backoff.WithBackOff(retry),
		backoff.WithMaxTries(detectMaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Debug("CRISP not found, retrying",
				logging.Field("error", err),
				logging.Field("next_retry", next.String()),
			)
		}),
	)
	if err != nil {
		return err
	}
	d.logger.Info("CRISP device detected",
		logging.Field("device", d.deviceName),
		logging.Field("controller", d.controller),
		logging.Field("firmware", d.firmware),
	)
	return nil
}

func (d *HardwareDevice) scan() bool {
	for _, label := range d.core.LoadedDevicesOfType(mmcore.AutoFocusDevice) {
		library, err := d.core.DeviceLibrary(label)
		if err != nil {
			continue
		}
		switch library {
		case libraryTiger:
			d.deviceName = label
			d.controller = ControllerTiger
		case libraryMS2000:
			d.deviceName = label
			d.controller = ControllerMS2000
		default:
			continue
		}
		if raw, err := d.core.GetProperty(label, propFirmwareVer); err == nil {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				d.firmware = v
			}
		}
		return true
	}
	return false
}

func (d *HardwareDevice) DeviceName() string       { return d.deviceName }
func (d *HardwareDevice) ControllerType() string   { return d.controller }
func (d *HardwareDevice) FirmwareVersion() float64 { return d.firmware }

func (d *HardwareDevice) isTiger() bool  { return d.controller == ControllerTiger }
func (d *HardwareDevice) isMS2000() bool { return d.controller == ControllerMS2000 }

// State returns the raw state string, or a short error description when
// the device cannot be reached.
func (d *HardwareDevice) State() string {
	if d.deviceName == "" {
		return StateNoDevice
	}
	value, err := d.core.GetProperty(d.deviceName, propCRISPState)
	if err != nil {
		msg := err.Error()
		if len(msg) > 100 {
			msg = msg[:100]
		}
		return msg
	}
	return value
}

func (d *HardwareDevice) IsFocusLocked() bool {
	return d.State() == StateInFocus
}

func (d *HardwareDevice) setState(value string) error {
	if d.deviceName == "" {
		return ErrNoDevice
	}
	return d.core.SetProperty(d.deviceName, propCRISPState, value)
}

func (d *HardwareDevice) SetStateIdle() error { return d.setState(StateIdle) }

// SetStateLock engages continuous focus. Locking always goes through the
// core's focus engine rather than the state property.
func (d *HardwareDevice) SetStateLock() error {
	return d.core.EnableContinuousFocus(true)
}

// SetStateLogCal starts log calibration. On Tiger controllers with old
// firmware the hardware stops answering property reads for a few seconds,
// so the poll timer is told to skip ahead of issuing the command.
func (d *HardwareDevice) SetStateLogCal(timer *PollTimer) error {
	if timer != nil && d.isTiger() && d.firmware < tigerLogCalFirmware {
		timer.OnLogCal()
	}
	return d.setState(StateLogCal)
}

func (d *HardwareDevice) SetStateDither() error  { return d.setState(StateDither) }
func (d *HardwareDevice) SetStateGainCal() error { return d.setState(StateGainCal) }

func (d *HardwareDevice) Unlock() error {
	return d.core.EnableContinuousFocus(false)
}

func (d *HardwareDevice) ResetOffset() error { return d.setState(valueResetOffset) }
func (d *HardwareDevice) Save() error        { return d.setState(valueSaveToCtrl) }

func (d *HardwareDevice) floatProp(name string) float64 {
	raw, err := d.core.GetProperty(d.deviceName, name)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func (d *HardwareDevice) intProp(name string) int {
	raw, err := d.core.GetProperty(d.deviceName, name)
	if err != nil {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func (d *HardwareDevice) Sum() float64         { return d.floatProp(propSum) }
func (d *HardwareDevice) SNR() float64         { return d.floatProp(propSNR) }
func (d *HardwareDevice) AGC() float64         { return d.floatProp(propLogAmpAGC) }
func (d *HardwareDevice) DitherError() float64 { return d.floatProp(propDitherError) }

func (d *HardwareDevice) Offset() float64 {
	offset, err := d.core.AutoFocusOffset()
	if err != nil {
		return 0
	}
	return offset
}

func (d *HardwareDevice) Axis() string {
	value, err := d.core.GetProperty(d.deviceName, propAxisLetter)
	if err != nil {
		return ""
	}
	return value
}

func (d *HardwareDevice) LEDIntensity() int { return d.intProp(propLEDIntensity) }
func (d *HardwareDevice) SetLEDIntensity(value int) error {
	return d.core.SetProperty(d.deviceName, propLEDIntensity, strconv.Itoa(value))
}

func (d *HardwareDevice) ObjectiveNA() float64 { return d.floatProp(propObjectiveNA) }
func (d *HardwareDevice) SetObjectiveNA(value float64) error {
	return d.core.SetProperty(d.deviceName, propObjectiveNA, formatFloat(value))
}

func (d *HardwareDevice) CalGain() int { return d.intProp(propGain) }
func (d *HardwareDevice) SetCalGain(value int) error {
	return d.core.SetProperty(d.deviceName, propGain, strconv.Itoa(value))
}

func (d *HardwareDevice) NumAverages() int { return d.intProp(propNumAverages) }
func (d *HardwareDevice) SetNumAverages(value int) error {
	return d.core.SetProperty(d.deviceName, propNumAverages, strconv.Itoa(value))
}

func (d *HardwareDevice) UpdateRate() int { return d.intProp(propNumSkips) }
func (d *HardwareDevice) SetUpdateRate(value int) error {
	return d.core.SetProperty(d.deviceName, propNumSkips, strconv.Itoa(value))
}

func (d *HardwareDevice) LockRange() float64 { return d.floatProp(propMaxLockRange) }
func (d *HardwareDevice) SetLockRange(value float64) error {
	return d.core.SetProperty(d.deviceName, propMaxLockRange, formatFloat(value))
}

// FocusCurveData triggers a focus curve scan and concatenates the chunked
// data properties. Only MS2000 controllers expose the curve this way.
func (d *HardwareDevice) FocusCurveData() (string, error) {
	if !d.isMS2000() {
		return "", fmt.Errorf("focus curve data requires an MS2000 controller, have %s", d.controller)
	}
	if err := d.core.SetProperty(d.deviceName, propObtainCurve, valueDoIt); err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 0; i < focusCurveDataSize; i++ {
		chunk, err := d.core.GetProperty(d.deviceName, fmt.Sprintf("%s%d", propCurveDataPref, i))
		if err != nil {
			break
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
