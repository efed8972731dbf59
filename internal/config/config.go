package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Options struct {
	ConfigPath string `long:"config" env:"MMSTUDIO_CONFIG" description:"System configuration file to load into the core at startup"`
	DataDir    string `long:"data-dir" env:"MMSTUDIO_DATA_DIR" description:"Default directory for acquisition output"`
	Headless   bool   `long:"headless" env:"MMSTUDIO_HEADLESS" description:"Run the terminal front-end instead of the GUI"`
	Debug      bool   `long:"debug" env:"MMSTUDIO_DEBUG" description:"Enable verbose debug output"`
	SimCRISP   bool   `long:"sim-crisp" env:"MMSTUDIO_SIM_CRISP" description:"Use a simulated CRISP device when no hardware answers"`
}

func ParseOptions() (Options, error) {
	_ = godotenv.Load()
	opts := Options{}
	if _, err := flags.Parse(&opts); err != nil {
		return Options{}, err
	}
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir()
	}
	return opts, nil
}

func DefaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, "MMStudio")
	}
	return "."
}

func ValidateConfigPath(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return errors.New("system configuration file is not accessible: " + err.Error())
	}
	if info.IsDir() {
		return errors.New("system configuration path is a directory")
	}
	return nil
}
