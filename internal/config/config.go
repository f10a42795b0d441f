// Package config loads and validates the deskd daemon configuration.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/example/deskd/internal/ops"
	"github.com/example/deskd/internal/session"
	"github.com/example/deskd/internal/shell"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Config mirrors the deskd.yaml document structure.
type Config struct {
	Listen   string       `yaml:"listen"`
	Token    string       `yaml:"token"`
	Defaults Defaults     `yaml:"defaults"`
	Sessions SessionSpec  `yaml:"sessions"`
	Files    FileSpec     `yaml:"files"`
	Docker   *DockerSpec  `yaml:"docker"`
	Log      *LoggingSpec `yaml:"log"`
}

// Defaults applies when a dispatch request omits the corresponding
// parameter.
type Defaults struct {
	Shell          string   `yaml:"shell"`
	Runner         string   `yaml:"runner"`
	ExecuteTimeout Duration `yaml:"executeTimeout"`
	ReadTimeout    Duration `yaml:"readTimeout"`
}

// SessionSpec bounds per-session and registry-wide resource usage.
type SessionSpec struct {
	BufferSize int `yaml:"bufferSize"`
	Retain     int `yaml:"retain"`
}

// FileSpec configures the file operations.
type FileSpec struct {
	MaxReadSize int64 `yaml:"maxReadSize"`
}

// DockerSpec configures the container runner.
type DockerSpec struct {
	Enabled bool     `yaml:"enabled"`
	Image   string   `yaml:"image"`
	Workdir string   `yaml:"workdir"`
	Ports   []string `yaml:"ports"`
}

// LoggingSpec configures the daemon's event log.
type LoggingSpec struct {
	// Buffer sizes the event fan-in channel.
	Buffer int `yaml:"buffer"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = "127.0.0.1:7677"
	}
	if c.Defaults.Runner == "" {
		c.Defaults.Runner = "process"
	}
	if !c.Defaults.ExecuteTimeout.IsSet() {
		c.Defaults.ExecuteTimeout = Duration{Duration: 30 * time.Second}
	}
	if !c.Defaults.ReadTimeout.IsSet() {
		c.Defaults.ReadTimeout = Duration{Duration: 5 * time.Second}
	}
	if c.Sessions.BufferSize == 0 {
		c.Sessions.BufferSize = session.DefaultBufferSize
	}
	if c.Sessions.Retain == 0 {
		c.Sessions.Retain = session.DefaultRetention
	}
	if c.Files.MaxReadSize == 0 {
		c.Files.MaxReadSize = ops.DefaultMaxReadSize
	}
	if c.Log == nil {
		c.Log = &LoggingSpec{}
	}
	if c.Log.Buffer <= 0 {
		c.Log.Buffer = 256
	}
}

// Validate checks the document for inconsistencies.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("%s: invalid listen address %q: %w", fieldPath("listen"), c.Listen, err)
	}
	if c.Defaults.Shell != "" {
		if _, err := shell.Resolve(c.Defaults.Shell); err != nil {
			return fmt.Errorf("%s: %w", fieldPath("defaults", "shell"), err)
		}
	}
	switch c.Defaults.Runner {
	case "process":
	case "docker":
		if c.Docker == nil || !c.Docker.Enabled {
			return fmt.Errorf("%s: docker runner selected but docker is not enabled", fieldPath("defaults", "runner"))
		}
	default:
		return fmt.Errorf("%s: unknown runner %q", fieldPath("defaults", "runner"), c.Defaults.Runner)
	}
	if c.Defaults.ExecuteTimeout.Duration < 0 {
		return fmt.Errorf("%s: must be non-negative", fieldPath("defaults", "executeTimeout"))
	}
	if c.Defaults.ReadTimeout.Duration < 0 {
		return fmt.Errorf("%s: must be non-negative", fieldPath("defaults", "readTimeout"))
	}
	if c.Sessions.BufferSize < 0 {
		return fmt.Errorf("%s: must be non-negative", fieldPath("sessions", "bufferSize"))
	}
	if c.Sessions.Retain < 0 {
		return fmt.Errorf("%s: must be non-negative", fieldPath("sessions", "retain"))
	}
	if c.Files.MaxReadSize < 0 {
		return fmt.Errorf("%s: must be non-negative", fieldPath("files", "maxReadSize"))
	}
	if c.Docker != nil && c.Docker.Enabled && strings.TrimSpace(c.Docker.Image) == "" {
		return fmt.Errorf("%s: is required when docker is enabled", fieldPath("docker", "image"))
	}
	return nil
}

func fieldPath(parts ...string) string {
	return strings.Join(parts, ".")
}
