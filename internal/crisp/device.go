// Package crisp controls ASI CRISP continuous autofocus hardware: device
// detection, state commands, polled status readout, settings profiles, and
// a focus-curve collection path. Two device variants exist behind one
// interface: a hardware adapter speaking through the core's property
// system and an in-memory simulation.
package crisp

// Controller types reported by detection.
const (
	ControllerNone   = "NONE"
	ControllerTiger  = "TIGER"
	ControllerMS2000 = "MS2000"
)

// Property names matching the device adapter.
const (
	propCRISPState    = "CRISP State"
	propDescription   = "Description"
	propAxisLetter    = "AxisLetter"
	propSum           = "Sum"
	propSNR           = "Signal Noise Ratio"
	propGain          = "GainMultiplier"
	propLogAmpAGC     = "LogAmpAGC"
	propLEDIntensity  = "LED Intensity"
	propObjectiveNA   = "Objective NA"
	propNumSkips      = "Number of Skips"
	propNumAverages   = "Number of Averages"
	propMaxLockRange  = "Max Lock Range(mm)"
	propDitherError   = "Dither Error"
	propFirmwareVer   = "FirmwareVersion"
	propObtainCurve   = "Obtain Focus Curve"
	propCurveDataPref = "Focus Curve Data"
)

// CRISP State property values.
const (
	StateIdle        = "Idle"
	StateLogCal      = "loG_cal"
	StateDither      = "Dither"
	StateGainCal     = "gain_Cal"
	StateInFocus     = "In Focus"
	StateNoDevice    = "No Device"
	valueResetOffset = "Reset Focus Offset"
	valueSaveToCtrl  = "Save to Controller"
	valueDoIt        = "Do it"
)

// Device library names for the two ASI controllers.
const (
	libraryTiger  = "ASITiger"
	libraryMS2000 = "ASIStage"
)

// Number of string properties holding focus curve data on MS2000.
const focusCurveDataSize = 24

// Device is the CRISP capability surface. Status getters never fail: on a
// device fault they degrade to a zero value (or a short error string for
// State), because the poll loop must survive transient hardware hiccups.
// Setters and state commands report errors normally. SetStateLock takes no
// argument and always locks; unlocking is a separate operation.
type Device interface {
	DeviceName() string
	ControllerType() string
	FirmwareVersion() float64

	State() string
	IsFocusLocked() bool

	SetStateIdle() error
	SetStateLock() error
	SetStateLogCal(timer *PollTimer) error
	SetStateDither() error
	SetStateGainCal() error
	Unlock() error
	ResetOffset() error
	Save() error

	Sum() float64
	SNR() float64
	AGC() float64
	DitherError() float64
	Offset() float64
	Axis() string

	LEDIntensity() int
	SetLEDIntensity(value int) error
	ObjectiveNA() float64
	SetObjectiveNA(value float64) error
	CalGain() int
	SetCalGain(value int) error
	NumAverages() int
	SetNumAverages(value int) error
	UpdateRate() int
	SetUpdateRate(value int) error
	LockRange() float64
	SetLockRange(value float64) error

	FocusCurveData() (string, error)
}
