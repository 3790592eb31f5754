package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agisfl.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Bind == "" {
		t.Error("expected default bind address")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level info, got %q", cfg.Logging.Level)
	}
	if !cfg.Discovery.Enabled {
		t.Error("expected mDNS discovery enabled by default")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
bind = "127.0.0.1:9090"

[logging]
level = "debug"

[discovery]
enabled = false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Bind != "127.0.0.1:9090" {
		t.Errorf("expected bind override, got %q", cfg.Server.Bind)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level override, got %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Realtime.MaxSessions != 64 {
		t.Errorf("expected default max_sessions, got %d", cfg.Realtime.MaxSessions)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if cfg.Discovery.Enabled {
		t.Error("expected discovery override to false")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `[server bind =`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"empty bind", "[server]\nbind = \"\"\n"},
		{"bad level", "[logging]\nlevel = \"verbose\"\n"},
		{"bad format", "[logging]\nformat = \"xml\"\n"},
		{"zero sessions", "[realtime]\nmax_sessions = 0\n"},
		{"zero metrics interval", "[metrics]\ninterval_seconds = 0\n"},
		{"zero demo interval", "[demo]\ninterval_seconds = 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.contents)
			if _, err := Load(path); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}
