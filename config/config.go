// Package config handles loading, defaulting, and validation of the AgisFL
// realtime daemon's TOML configuration file. Every section maps to a typed
// struct so the rest of the codebase gets strong typing without manual key
// lookups.
package config

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Server    ServerConfig    `toml:"server"    json:"server"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
	Realtime  RealtimeConfig  `toml:"realtime"  json:"realtime"`
	Metrics   MetricsConfig   `toml:"metrics"   json:"metrics"`
	Demo      DemoConfig      `toml:"demo"      json:"demo"`
	Discovery DiscoveryConfig `toml:"discovery" json:"discovery"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"`
	Format string `toml:"format" json:"format"`
}

type RealtimeConfig struct {
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`
}

type MetricsConfig struct {
	Enabled         bool `toml:"enabled"          json:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds" json:"interval_seconds"`
}

type DemoConfig struct {
	Enabled         bool `toml:"enabled"          json:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds" json:"interval_seconds"`
}

// DiscoveryConfig controls mDNS advertisement of the daemon on the LAN.
type DiscoveryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Realtime: RealtimeConfig{
			MaxSessions: 64,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			IntervalSeconds: 5,
		},
		Demo: DemoConfig{
			Enabled:         true,
			IntervalSeconds: 3,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return errors.New("logging.format must be text or json")
	}
	if cfg.Realtime.MaxSessions < 1 {
		return errors.New("realtime.max_sessions must be >= 1")
	}
	if cfg.Metrics.IntervalSeconds < 1 {
		return errors.New("metrics.interval_seconds must be >= 1")
	}
	if cfg.Demo.IntervalSeconds < 1 {
		return errors.New("demo.interval_seconds must be >= 1")
	}
	return nil
}
