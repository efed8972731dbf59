package crisp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	profileNamePrefix  = "Profile"
	defaultProfileName = "Default"
)

// Settings is one software profile of CRISP tuning values.
type Settings struct {
	Name         string  `json:"name"`
	Gain         int     `json:"gain"`
	LEDIntensity int     `json:"led_intensity"`
	UpdateRateMS int     `json:"update_rate_ms"`
	NumAverages  int     `json:"num_averages"`
	ObjectiveNA  float64 `json:"objective_na"`
	LockRange    float64 `json:"lock_range"`
}

func DefaultSettings() Settings {
	return Settings{
		Name:         defaultProfileName,
		Gain:         1,
		LEDIntensity: 50,
		UpdateRateMS: 10,
		NumAverages:  1,
		ObjectiveNA:  0.65,
		LockRange:    1.0,
	}
}

// SettingsFromDevice reads the live tuning values off a device.
func SettingsFromDevice(dev Device) Settings {
	return Settings{
		Name:         "Current Values",
		Gain:         dev.CalGain(),
		LEDIntensity: dev.LEDIntensity(),
		UpdateRateMS: dev.UpdateRate(),
		NumAverages:  dev.NumAverages(),
		ObjectiveNA:  dev.ObjectiveNA(),
		LockRange:    dev.LockRange(),
	}
}

// Apply pushes the profile's values to the device, stopping at the first
// failure.
func (s Settings) Apply(dev Device) error {
	if err := dev.SetCalGain(s.Gain); err != nil {
		return err
	}
	if err := dev.SetLEDIntensity(s.LEDIntensity); err != nil {
		return err
	}
	if err := dev.SetUpdateRate(s.UpdateRateMS); err != nil {
		return err
	}
	if err := dev.SetNumAverages(s.NumAverages); err != nil {
		return err
	}
	if err := dev.SetObjectiveNA(s.ObjectiveNA); err != nil {
		return err
	}
	return dev.SetLockRange(s.LockRange)
}

// Profiles is an ordered list of settings profiles with one current
// selection. The default profile at index 0 can never be removed.
type Profiles struct {
	list  []Settings
	index int
}

func NewProfiles() *Profiles {
	return &Profiles{list: []Settings{DefaultSettings()}}
}

func (p *Profiles) Len() int        { return len(p.list) }
func (p *Profiles) Index() int      { return p.index }
func (p *Profiles) All() []Settings { return append([]Settings(nil), p.list...) }

func (p *Profiles) Current() *Settings {
	return &p.list[p.index]
}

// Add appends a new profile seeded from the defaults and returns its name.
func (p *Profiles) Add() string {
	s := DefaultSettings()
	s.Name = fmt.Sprintf("%s%d", profileNamePrefix, len(p.list))
	p.list = append(p.list, s)
	return s.Name
}

// Remove drops the last profile. The sole remaining profile stays.
func (p *Profiles) Remove() bool {
	if len(p.list) == 1 {
		return false
	}
	p.list = p.list[:len(p.list)-1]
	if p.index >= len(p.list) {
		p.index = len(p.list) - 1
	}
	return true
}

func (p *Profiles) SetIndex(index int) error {
	if index < 0 || index >= len(p.list) {
		return fmt.Errorf("profile index %d out of range", index)
	}
	p.index = index
	return nil
}

// UserSettings is the on-disk record of CRISP preferences.
type UserSettings struct {
	Profiles        []Settings `json:"settings_profiles"`
	CurrentIndex    int        `json:"current_settings_index"`
	PollingEnabled  bool       `json:"polling_enabled"`
	TimerIntervalMS int        `json:"timer_interval_ms"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{
		Profiles:        []Settings{DefaultSettings()},
		PollingEnabled:  true,
		TimerIntervalMS: int(DefaultPollInterval.Milliseconds()),
	}
}

func UserSettingsPath() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "mmstudio", "crisp_settings.json"), nil
}

// LoadUserSettings reads saved preferences, falling back to defaults when
// no file exists yet.
func LoadUserSettings() (UserSettings, error) {
	path, err := UserSettingsPath()
	if err != nil {
		return DefaultUserSettings(), err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultUserSettings(), nil
	}
	if err != nil {
		return DefaultUserSettings(), err
	}
	var us UserSettings
	if err := json.Unmarshal(raw, &us); err != nil {
		return DefaultUserSettings(), fmt.Errorf("failed to parse CRISP settings: %w", err)
	}
	if len(us.Profiles) == 0 {
		us.Profiles = []Settings{DefaultSettings()}
	}
	if us.CurrentIndex < 0 || us.CurrentIndex >= len(us.Profiles) {
		us.CurrentIndex = 0
	}
	if us.TimerIntervalMS <= 0 {
		us.TimerIntervalMS = int(DefaultPollInterval.Milliseconds())
	}
	return us, nil
}

func SaveUserSettings(us UserSettings) error {
	path, err := UserSettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(us, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// ProfilesFromUserSettings rebuilds the profile list from a saved record.
func ProfilesFromUserSettings(us UserSettings) *Profiles {
	p := &Profiles{list: append([]Settings(nil), us.Profiles...), index: us.CurrentIndex}
	if len(p.list) == 0 {
		p.list = []Settings{DefaultSettings()}
		p.index = 0
	}
	return p
}
