package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testOptions struct {
	Config       string `toml:"-"`
	Host         string `toml:"host" env:"HOST"`
	Port         int    `toml:"port" env:"PORT"`
	Debug        bool   `toml:"debug" env:"DEBUG"`
	LoggingLevel string `toml:"logging.level" env:"LOGGING_LEVEL"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeFile(t, "castnode.toml", `
host = "0.0.0.0"
port = 9000
debug = true

[logging]
level = "debug"
`)

	opts := testOptions{Config: path, Host: "127.0.0.1", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if opts.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", opts.Host)
	}
	if opts.Port != 9000 {
		t.Errorf("Port = %d, want 9000", opts.Port)
	}
	if !opts.Debug {
		t.Error("Debug should be true")
	}
	if opts.LoggingLevel != "debug" {
		t.Errorf("LoggingLevel = %q, want debug (nested TOML path)", opts.LoggingLevel)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeFile(t, "castnode.toml", `port = 9000`)
	t.Setenv("CASTNODE_PORT", "9100")

	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.Port != 9100 {
		t.Errorf("Port = %d, want env override 9100", opts.Port)
	}
}

func TestMissingConfigFileIsNotAnError(t *testing.T) {
	opts := testOptions{Config: "/nonexistent/castnode.toml", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig() with missing file error = %v", err)
	}
	if opts.Port != 8080 {
		t.Errorf("Port = %d, want untouched default 8080", opts.Port)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Port", "port"},
		{"LoggingLevel", "logging-level"},
		{"EncoderBinary", "encoder-binary"},
	}
	for _, tt := range tests {
		if got := fieldNameToFlag(tt.in); got != tt.want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, "castnode.toml", `
[logging]
level = "warn"
format = "json"
session = "debug"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("got level=%q format=%q", cfg.Level, cfg.Format)
	}
	if cfg.Modules["session"] != "debug" {
		t.Errorf("module override = %q, want debug", cfg.Modules["session"])
	}

	defaults := LoadLoggingConfig("")
	if defaults.Level != "info" || defaults.Format != "text" {
		t.Errorf("defaults = %+v", defaults)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	path := writeFile(t, "profiles.toml", `
[profiles.high]
bitrate_kbps = 8000
max_bitrate_kbps = 8800
buf_size_kbps = 16000
gop = 120
preset = "medium"
frame_rate_ceiling = 60.0
`)

	overrides, err := LoadProfileOverrides(path)
	if err != nil {
		t.Fatalf("LoadProfileOverrides() error = %v", err)
	}
	high, ok := overrides.Profiles["high"]
	if !ok {
		t.Fatal("high profile missing")
	}
	if high.BitrateKbps != 8000 || high.Preset != "medium" {
		t.Errorf("high = %+v", high)
	}
}
