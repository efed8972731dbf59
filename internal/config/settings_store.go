package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StudioSettings is the durable per-user state written on shutdown and read
// once at startup. The geometry and window-state blobs are opaque to this
// package; only the dock host that produced them can interpret them.
type StudioSettings struct {
	LastConfigPath string   `json:"last_config_path,omitempty"`
	DataDir        string   `json:"data_dir,omitempty"`
	Debug          bool     `json:"debug"`
	WindowGeometry []byte   `json:"window_geometry,omitempty"`
	WindowState    []byte   `json:"window_state,omitempty"`
	InitialWidgets []string `json:"initial_widgets,omitempty"`
}

func SettingsPath() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "mmstudio", "settings.json"), nil
}

func LoadSettings() (StudioSettings, error) {
	path, err := SettingsPath()
	if err != nil {
		return StudioSettings{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return StudioSettings{}, err
	}
	var settings StudioSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return StudioSettings{}, err
	}
	return settings, nil
}

func SaveSettings(settings StudioSettings) error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// SaveSettingsWithTimeout flushes settings but never blocks application exit
// past the deadline. A timed-out write keeps running in the background; the
// caller only loses the confirmation.
func SaveSettingsWithTimeout(settings StudioSettings, timeout time.Duration) error {
	if timeout <= 0 {
		return SaveSettings(settings)
	}
	done := make(chan error, 1)
	go func() {
		done <- SaveSettings(settings)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errors.New("settings flush timed out")
	}
}

func MergeOptionsWithSettings(cli Options, saved StudioSettings) Options {
	if strings.TrimSpace(cli.ConfigPath) == "" {
		cli.ConfigPath = saved.LastConfigPath
	}
	if strings.TrimSpace(cli.DataDir) == "" {
		cli.DataDir = saved.DataDir
	}
	if !cli.Debug {
		cli.Debug = saved.Debug
	}
	return cli
}

func SettingsFromOptions(opts Options) StudioSettings {
	return StudioSettings{
		LastConfigPath: strings.TrimSpace(opts.ConfigPath),
		DataDir:        strings.TrimSpace(opts.DataDir),
		Debug:          opts.Debug,
	}
}
