package crisp

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// SimDevice is the in-memory CRISP stand-in used when no hardware is
// loaded. State commands mutate local fields and status getters synthesize
// plausible readings, so the widget and poll timer behave as they would
// against a real controller.
type SimDevice struct {
	mu sync.Mutex

	state    string
	locked   bool
	offset   float64
	ticks    int
	led      int
	gain     int
	averages int
	rate     int
	na       float64
	lockRng  float64
}

func NewSimDevice() *SimDevice {
	return &SimDevice{
		state:    StateIdle,
		led:      50,
		gain:     1,
		averages: 1,
		rate:     10,
		na:       0.65,
		lockRng:  1.0,
	}
}

func (d *SimDevice) DeviceName() string       { return "CRISP (simulated)" }
func (d *SimDevice) ControllerType() string   { return ControllerTiger }
func (d *SimDevice) FirmwareVersion() float64 { return 3.40 }

func (d *SimDevice) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *SimDevice) IsFocusLocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked
}

func (d *SimDevice) setState(state string, locked bool) error {
	d.mu.Lock()
	d.state = state
	d.locked = locked
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) SetStateIdle() error { return d.setState(StateIdle, false) }

func (d *SimDevice) SetStateLock() error { return d.setState(StateInFocus, true) }

func (d *SimDevice) SetStateLogCal(timer *PollTimer) error {
	if timer != nil {
		timer.OnLogCal()
	}
	return d.setState(StateLogCal, false)
}

func (d *SimDevice) SetStateDither() error  { return d.setState(StateDither, false) }
func (d *SimDevice) SetStateGainCal() error { return d.setState(StateGainCal, false) }
func (d *SimDevice) Unlock() error          { return d.setState(StateIdle, false) }

func (d *SimDevice) ResetOffset() error {
	d.mu.Lock()
	d.offset = 0
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) Save() error { return nil }

// Sum and friends synthesize a stable-ish signal that drifts with an
// internal tick counter so the status panel shows movement.
func (d *SimDevice) Sum() float64 {
	return 800 + 50*math.Sin(float64(d.tick())/7)
}

func (d *SimDevice) SNR() float64 {
	if d.IsFocusLocked() {
		return 12.5
	}
	return 4.2
}

func (d *SimDevice) AGC() float64 { return 1.8 }

func (d *SimDevice) DitherError() float64 {
	if d.IsFocusLocked() {
		return 0.02 * math.Sin(float64(d.tick())/3)
	}
	return 1.5
}

func (d *SimDevice) Offset() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

func (d *SimDevice) Axis() string { return "Z" }

func (d *SimDevice) tick() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks++
	return d.ticks
}

func (d *SimDevice) LEDIntensity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.led
}

func (d *SimDevice) SetLEDIntensity(value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("LED intensity %d out of range 0..100", value)
	}
	d.mu.Lock()
	d.led = value
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) ObjectiveNA() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.na
}

func (d *SimDevice) SetObjectiveNA(value float64) error {
	d.mu.Lock()
	d.na = value
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) CalGain() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain
}

func (d *SimDevice) SetCalGain(value int) error {
	d.mu.Lock()
	d.gain = value
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) NumAverages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.averages
}

func (d *SimDevice) SetNumAverages(value int) error {
	d.mu.Lock()
	d.averages = value
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) UpdateRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

func (d *SimDevice) SetUpdateRate(value int) error {
	d.mu.Lock()
	d.rate = value
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) LockRange() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lockRng
}

func (d *SimDevice) SetLockRange(value float64) error {
	d.mu.Lock()
	d.lockRng = value
	d.mu.Unlock()
	return nil
}

// FocusCurveData synthesizes a Lorentzian-shaped curve around zero.
func (d *SimDevice) FocusCurveData() (string, error) {
	var b strings.Builder
	for i := -50; i <= 50; i++ {
		z := float64(i) / 10
		signal := 1 / (1 + z*z)
		fmt.Fprintf(&b, "%.2f %.4f\n", z, signal)
	}
	return b.String(), nil
}
