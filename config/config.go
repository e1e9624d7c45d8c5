package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is wrapped by every Settings validation error.
var ErrInvalidSettings = errors.New("invalid settings")

// Dir returns the beatclock configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "beatclock")
}

// InitFile returns the path to init.lua
func InitFile() string {
	return filepath.Join(Dir(), "init.lua")
}

// SettingsFile returns the path to config.yaml
func SettingsFile() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Settings are the startup options read from config.yaml.
type Settings struct {
	// Tempo is the tempo placed at beat 0 on startup. 0 leaves the map
	// empty, which runs at 60 bpm.
	Tempo       float64 `yaml:"tempo"`
	LookaheadMS float64 `yaml:"lookahead_ms"`
	RefreshMS   int     `yaml:"refresh_ms"`
	LogLevel    string  `yaml:"log_level"`
	LogFormat   string  `yaml:"log_format"`
	LogFile     string  `yaml:"log_file"`
	Simple      bool    `yaml:"simple"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		LookaheadMS: -60,
		RefreshMS:   100,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads settings from path over the defaults. A missing file is not
// an error.
func Load(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if s.Tempo < 0 {
		return fmt.Errorf("%w: tempo must be positive, got %v", ErrInvalidSettings, s.Tempo)
	}
	if s.RefreshMS <= 0 {
		return fmt.Errorf("%w: refresh_ms must be positive, got %d", ErrInvalidSettings, s.RefreshMS)
	}
	switch strings.ToLower(s.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidSettings, s.LogFormat)
	}
	return nil
}

// Lookahead returns the default cue lead.
func (s Settings) Lookahead() time.Duration {
	return time.Duration(s.LookaheadMS * float64(time.Millisecond))
}

// Refresh returns the transport refresh interval.
func (s Settings) Refresh() time.Duration {
	return time.Duration(s.RefreshMS) * time.Millisecond
}
