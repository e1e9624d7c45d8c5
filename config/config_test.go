package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if s != DefaultSettings() {
		t.Fatalf("settings = %+v", s)
	}
	if s.Lookahead() != -60*time.Millisecond || s.Refresh() != 100*time.Millisecond {
		t.Fatalf("lookahead %v refresh %v", s.Lookahead(), s.Refresh())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeSettings(t, "tempo: 128\nlookahead_ms: -25.5\nlog_level: debug\nsimple: true\n")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tempo != 128 || !s.Simple || s.LogLevel != "debug" {
		t.Fatalf("settings = %+v", s)
	}
	if s.Lookahead() != -25500*time.Microsecond {
		t.Fatalf("lookahead = %v", s.Lookahead())
	}
	// Unset fields keep their defaults.
	if s.RefreshMS != 100 || s.LogFormat != "text" {
		t.Fatalf("defaults lost: %+v", s)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative tempo", "tempo: -1\n"},
		{"zero refresh", "refresh_ms: 0\n"},
		{"negative refresh", "refresh_ms: -10\n"},
		{"bad log format", "log_format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tt.body))
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("err = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeSettings(t, "tempo: [\n"))
	if err == nil || errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("err = %v, want a parse error", err)
	}
}

func TestDirHonoursXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows layout")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := Dir(); got != filepath.Join("/tmp/xdg", "beatclock") {
		t.Fatalf("Dir = %q", got)
	}
	if got := SettingsFile(); got != filepath.Join("/tmp/xdg", "beatclock", "config.yaml") {
		t.Fatalf("SettingsFile = %q", got)
	}
	if got := InitFile(); got != filepath.Join("/tmp/xdg", "beatclock", "init.lua") {
		t.Fatalf("InitFile = %q", got)
	}
}
