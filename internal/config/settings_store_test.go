package config

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSettingsSaveLoadAndPath(t *testing.T) {
	root := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("AppData", root)
	} else {
		t.Setenv("XDG_CONFIG_HOME", root)
	}

	path, err := SettingsPath()
	if err != nil {
		t.Fatalf("SettingsPath() error = %v", err)
	}
	wantPath := filepath.Join(root, "mmstudio", "settings.json")
	if path != wantPath {
		t.Fatalf("SettingsPath() = %q, want %q", path, wantPath)
	}

	in := StudioSettings{
		LastConfigPath: "/configs/demo.cfg",
		DataDir:        "/data/mmstudio",
		Debug:          true,
		WindowGeometry: []byte{0x01, 0x02, 0x03},
		WindowState:    []byte(`{"left":["mda"]}`),
		InitialWidgets: []string{"mda", "stage_control"},
	}
	if err := SaveSettings(in); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	out, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("settings round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveSettingsWithTimeoutFlushes(t *testing.T) {
	root := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("AppData", root)
	} else {
		t.Setenv("XDG_CONFIG_HOME", root)
	}
	if err := SaveSettingsWithTimeout(StudioSettings{DataDir: "/tmp/x"}, 5*time.Second); err != nil {
		t.Fatalf("SaveSettingsWithTimeout() error = %v", err)
	}
	out, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if out.DataDir != "/tmp/x" {
		t.Fatalf("DataDir = %q", out.DataDir)
	}
}

func TestMergeOptionsWithSettings_PrefersCLI(t *testing.T) {
	merged := MergeOptionsWithSettings(
		Options{ConfigPath: "/cli/demo.cfg", DataDir: "", Debug: false},
		StudioSettings{LastConfigPath: "/saved/old.cfg", DataDir: "/saved/data", Debug: true},
	)
	if merged.ConfigPath != "/cli/demo.cfg" {
		t.Fatalf("ConfigPath = %q", merged.ConfigPath)
	}
	if merged.DataDir != "/saved/data" {
		t.Fatalf("DataDir = %q", merged.DataDir)
	}
	if !merged.Debug {
		t.Fatalf("Debug should merge from saved when CLI false")
	}
}
