// Package config resolves runtime configuration from a yaml file,
// environment variables and defaults, in that ascending precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Atan-D-RP4/dpms/internal/daemon"
	"github.com/Atan-D-RP4/dpms/internal/wayland"
)

// Config holds the few knobs the tool exposes. Everything has a working
// default; the file and environment exist for unusual setups (non-standard
// runtime dirs, a renamed wlr-randr, slow hardware needing longer start
// windows).
type Config struct {
	RecordPath   string
	WaylandTool  string
	StartTimeout time.Duration
	StopTimeout  time.Duration
}

// fileConfig is the on-disk shape. Durations are Go duration strings
// ("2s", "500ms"); absent keys leave the defaults untouched.
type fileConfig struct {
	RecordPath   string `yaml:"record_path"`
	WaylandTool  string `yaml:"wayland_tool"`
	StartTimeout string `yaml:"start_timeout"`
	StopTimeout  string `yaml:"stop_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	sup := daemon.DefaultSupervisorConfig()
	return Config{
		RecordPath:   daemon.RecordPath(),
		WaylandTool:  wayland.DefaultTool,
		StartTimeout: sup.StartTimeout,
		StopTimeout:  sup.StopTimeout,
	}
}

// Load resolves configuration: defaults, then ~/.config/dpms/config.yaml
// if present, then DPMS_* environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := filePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		if file.RecordPath != "" {
			cfg.RecordPath = file.RecordPath
		}
		if file.WaylandTool != "" {
			cfg.WaylandTool = file.WaylandTool
		}
		if file.StartTimeout != "" {
			d, err := time.ParseDuration(file.StartTimeout)
			if err != nil {
				return cfg, fmt.Errorf("parse config %s: start_timeout: %w", path, err)
			}
			cfg.StartTimeout = d
		}
		if file.StopTimeout != "" {
			d, err := time.ParseDuration(file.StopTimeout)
			if err != nil {
				return cfg, fmt.Errorf("parse config %s: stop_timeout: %w", path, err)
			}
			cfg.StopTimeout = d
		}
	}

	if v := os.Getenv("DPMS_RECORD_PATH"); v != "" {
		cfg.RecordPath = v
	}
	if v := os.Getenv("DPMS_WAYLAND_TOOL"); v != "" {
		cfg.WaylandTool = v
	}
	if v := os.Getenv("DPMS_START_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DPMS_START_TIMEOUT: %w", err)
		}
		cfg.StartTimeout = d
	}
	if v := os.Getenv("DPMS_STOP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DPMS_STOP_TIMEOUT: %w", err)
		}
		cfg.StopTimeout = d
	}

	return cfg, nil
}

// SupervisorConfig maps the timeouts onto the daemon supervisor's budgets.
func (c Config) SupervisorConfig() daemon.SupervisorConfig {
	sup := daemon.DefaultSupervisorConfig()
	sup.StartTimeout = c.StartTimeout
	sup.StopTimeout = c.StopTimeout
	return sup
}

func filePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	path := filepath.Join(base, "dpms", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
