package crisp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mmstudio/internal/logging"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/workers"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

const tigerConfig = `Device,Camera,DemoCamera,Camera,Simulated monochrome camera
Device,ZStage,DemoCamera,Stage,Simulated Z drive
Device,CRISP,ASITiger,AutoFocus,ASI CRISP AutoFocus
Property,CRISP,FirmwareVersion,3.40
Property,CRISP,CRISP State,Idle
Property,CRISP,LED Intensity,50
Property,CRISP,GainMultiplier,1
Property,CRISP,Number of Averages,1
Property,CRISP,Number of Skips,10
Property,CRISP,Objective NA,0.65
Property,CRISP,Max Lock Range(mm),1.0
Property,CRISP,Signal Noise Ratio,8.5
Property,CRISP,Sum,812
`

func tigerCore(t *testing.T) *mmcore.SimCore {
	t.Helper()
	core := mmcore.NewSimCore()
	path := filepath.Join(t.TempDir(), "tiger.cfg")
	if err := os.WriteFile(path, []byte(tigerConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := core.LoadSystemConfiguration(path); err != nil {
		t.Fatal(err)
	}
	return core
}

func TestHardwareDeviceDetect(t *testing.T) {
	dev := NewHardwareDevice(tigerCore(t), testLogger(t))
	if err := dev.Detect(context.Background()); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if dev.DeviceName() != "CRISP" || dev.ControllerType() != ControllerTiger {
		t.Errorf("detected %q/%q", dev.DeviceName(), dev.ControllerType())
	}
	if dev.FirmwareVersion() != 3.40 {
		t.Errorf("firmware = %v", dev.FirmwareVersion())
	}
}

func TestHardwareDeviceDetectFailsWithoutDevice(t *testing.T) {
	dev := NewHardwareDevice(mmcore.NewSimCore(), testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := dev.Detect(ctx); err == nil {
		t.Fatal("expected detection failure on a rig without CRISP")
	}
}

// idleTimer returns a started timer whose ticker will not fire on its
// own, so tests can drive Tick directly.
func idleTimer(t *testing.T, poll func()) *PollTimer {
	t.Helper()
	timer := NewPollTimer(poll, testLogger(t))
	timer.SetInterval(time.Hour)
	timer.Start()
	t.Cleanup(timer.Stop)
	return timer
}

func TestHardwareDeviceGettersDegrade(t *testing.T) {
	core := tigerCore(t)
	dev := NewHardwareDevice(core, testLogger(t))
	if err := dev.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := dev.SNR(); got != 8.5 {
		t.Errorf("SNR = %v, want 8.5", got)
	}
	// Properties the adapter never declared read as zero values.
	if got := dev.DitherError(); got != 0 {
		t.Errorf("missing dither error property should read 0, got %v", got)
	}
	if got := dev.Axis(); got != "" {
		t.Errorf("missing axis property should read empty, got %q", got)
	}

	undetected := NewHardwareDevice(core, testLogger(t))
	if got := undetected.State(); got != StateNoDevice {
		t.Errorf("state without device = %q", got)
	}
}

func TestHardwareDeviceLockThroughFocusEngine(t *testing.T) {
	core := tigerCore(t)
	dev := NewHardwareDevice(core, testLogger(t))
	if err := dev.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := dev.SetStateLock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	locked, err := core.IsContinuousFocusLocked()
	if err != nil {
		t.Fatal(err)
	}
	if !locked {
		t.Error("lock did not engage continuous focus")
	}
	if err := dev.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestHardwareDeviceSettingsRoundTrip(t *testing.T) {
	dev := NewHardwareDevice(tigerCore(t), testLogger(t))
	if err := dev.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := Settings{
		Name:         defaultProfileName,
		Gain:         3,
		LEDIntensity: 75,
		UpdateRateMS: 20,
		NumAverages:  4,
		ObjectiveNA:  1.2,
		LockRange:    0.5,
	}
	if err := want.Apply(dev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got := SettingsFromDevice(dev)
	got.Name = want.Name
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestOldTigerFirmwareArmsSkipOnLogCal(t *testing.T) {
	core := tigerCore(t)
	if err := core.SetProperty("CRISP", propFirmwareVer, "3.30"); err != nil {
		t.Fatal(err)
	}
	dev := NewHardwareDevice(core, testLogger(t))
	if err := dev.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}

	timer := idleTimer(t, func() {})
	if err := dev.SetStateLogCal(timer); err != nil {
		t.Fatalf("log cal: %v", err)
	}
	if timer.State() != TimerSkipping {
		t.Errorf("timer state = %v, want skipping", timer.State())
	}
	if got := dev.State(); got != StateLogCal {
		t.Errorf("device state = %q", got)
	}
}

func TestNewTigerFirmwareDoesNotSkip(t *testing.T) {
	dev := NewHardwareDevice(tigerCore(t), testLogger(t))
	if err := dev.Detect(context.Background()); err != nil {
		t.Fatal(err)
	}

	timer := idleTimer(t, func() {})
	if err := dev.SetStateLogCal(timer); err != nil {
		t.Fatal(err)
	}
	if timer.State() != TimerRunning {
		t.Errorf("timer state = %v, want plain running", timer.State())
	}
}

func TestPollTimerSkipBudget(t *testing.T) {
	polls := 0
	stopped := NewPollTimer(nil, testLogger(t))
	if stopped.State() != TimerStopped {
		t.Fatalf("initial state = %v", stopped.State())
	}

	timer := idleTimer(t, func() { polls++ })
	timer.OnLogCal()
	if timer.State() != TimerSkipping {
		t.Fatalf("state after OnLogCal = %v", timer.State())
	}

	for i := 0; i < logCalSkipBudget; i++ {
		timer.Tick()
		if polls != 0 {
			t.Fatalf("poll fired during skip tick %d", i+1)
		}
	}
	if timer.State() != TimerRunning {
		t.Errorf("state after budget drained = %v", timer.State())
	}

	timer.Tick()
	if polls != 1 {
		t.Errorf("31st tick polls = %d, want 1", polls)
	}
}

func TestPollTimerIntervalChangeKeepsBudget(t *testing.T) {
	timer := idleTimer(t, func() {})

	timer.OnLogCal()
	timer.Tick()
	timer.SetInterval(30 * time.Minute)

	if got := timer.Interval(); got != 30*time.Minute {
		t.Errorf("interval = %v", got)
	}
	if timer.State() != TimerSkipping {
		t.Error("interval change reset the skip budget")
	}
}

func TestSimDeviceStateMachine(t *testing.T) {
	dev := NewSimDevice()
	if dev.State() != StateIdle || dev.IsFocusLocked() {
		t.Fatalf("initial state = %q locked=%v", dev.State(), dev.IsFocusLocked())
	}

	if err := dev.SetStateLock(); err != nil {
		t.Fatal(err)
	}
	if dev.State() != StateInFocus || !dev.IsFocusLocked() {
		t.Errorf("after lock: state=%q locked=%v", dev.State(), dev.IsFocusLocked())
	}

	timer := idleTimer(t, func() {})
	if err := dev.SetStateLogCal(timer); err != nil {
		t.Fatal(err)
	}
	if dev.State() != StateLogCal {
		t.Errorf("after log cal: %q", dev.State())
	}
	if timer.State() != TimerSkipping {
		t.Error("sim log cal should arm the skip budget")
	}

	if err := dev.Unlock(); err != nil {
		t.Fatal(err)
	}
	if dev.State() != StateIdle {
		t.Errorf("after unlock: %q", dev.State())
	}
}

func TestProfiles(t *testing.T) {
	p := NewProfiles()
	if p.Len() != 1 || p.Current().Name != defaultProfileName {
		t.Fatalf("fresh profiles: len=%d current=%q", p.Len(), p.Current().Name)
	}
	if p.Remove() {
		t.Error("sole profile must not be removable")
	}

	name := p.Add()
	if name != "Profile1" {
		t.Errorf("added profile name = %q", name)
	}
	if err := p.SetIndex(1); err != nil {
		t.Fatal(err)
	}
	if !p.Remove() {
		t.Error("second profile should be removable")
	}
	if p.Index() != 0 {
		t.Errorf("index after removing current = %d", p.Index())
	}
	if err := p.SetIndex(5); err == nil {
		t.Error("expected range error")
	}
}

func TestUserSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := DefaultUserSettings()
	want.TimerIntervalMS = 250
	want.Profiles = append(want.Profiles, Settings{Name: "Oil 100x", Gain: 2, ObjectiveNA: 1.4})
	want.CurrentIndex = 1

	if err := SaveUserSettings(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadUserSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	profiles := ProfilesFromUserSettings(got)
	if profiles.Current().Name != "Oil 100x" {
		t.Errorf("current profile = %q", profiles.Current().Name)
	}
}

func TestLoadUserSettingsMissingFileDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	got, err := LoadUserSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(DefaultUserSettings(), got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectFocusCurve(t *testing.T) {
	pool := workers.NewPool(1, nil, testLogger(t))
	dev := NewSimDevice()

	var points []CurvePoint
	var gotErr error
	CollectFocusCurve(context.Background(), pool, dev, workers.Callbacks{
		OnResult: func(result any) { points = result.([]CurvePoint) },
		OnError:  func(err error) { gotErr = err },
	})
	if !pool.Wait(2 * time.Second) {
		t.Fatal("pool did not drain")
	}
	if gotErr != nil {
		t.Fatalf("collect: %v", gotErr)
	}
	if len(points) != 101 {
		t.Fatalf("points = %d, want 101", len(points))
	}
	// Peak at z = 0.
	mid := points[50]
	if mid.Z != 0 || mid.Signal != 1 {
		t.Errorf("midpoint = %+v", mid)
	}
}

func TestParseCurveDataSkipsGarbage(t *testing.T) {
	points := ParseCurveData("0.1 0.9\nnot-a-number 2\n\n0.2 0.8 extra\n")
	want := []CurvePoint{{Z: 0.1, Signal: 0.9}, {Z: 0.2, Signal: 0.8}}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}
