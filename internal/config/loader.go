package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a deskd configuration document from the provided path, applies
// defaults and env overrides, and validates the result.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc Config
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	doc.applyEnvOverrides()
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// applyEnvOverrides lets deployment environments override the listen address
// and auth token without editing the file.
func (c *Config) applyEnvOverrides() {
	if value := os.Getenv("DESKD_LISTEN"); value != "" {
		c.Listen = value
	}
	if value := os.Getenv("DESKD_TOKEN"); value != "" {
		c.Token = value
	}
}
