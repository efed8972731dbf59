package mmcore

import (
	"errors"
	"fmt"
)

var ErrDeviceNotFound = errors.New("device not found")

var ErrPropertyNotFound = errors.New("property not found")

// DeviceError wraps a failed device operation with enough context for the
// adapters to log it. Polling adapters are expected to catch these and
// degrade to zero values rather than propagate.
type DeviceError struct {
	Device   string
	Property string
	Op       string
	Err      error
}

func (e *DeviceError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s %s.%s: %v", e.Op, e.Device, e.Property, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func IsDeviceNotFound(err error) bool {
	return errors.Is(err, ErrDeviceNotFound)
}

func deviceErr(op, device, prop string, err error) error {
	return &DeviceError{Device: device, Property: prop, Op: op, Err: err}
}
