// Package config provides configuration loading and management for mrireorient.
// It handles loading configuration from YAML files and provides default values
// for the elvos bucket layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mrireorient/pkg/logging"
)

// Failure policies applied to any single-item failure
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Bucket is the blob store reference, e.g. "gs://elvos", "file:///data" or "mem://"
	Bucket string `yaml:"bucket"`

	// Layout holds the key prefixes of each orientation collection
	Layout struct {
		// Source is the prefix listed for axial volumes
		Source string `yaml:"source"`

		// Coronal is the prefix derived coronal volumes are written under
		Coronal string `yaml:"coronal"`

		// Sagittal is the prefix derived sagittal volumes are written under
		Sagittal string `yaml:"sagittal"`
	} `yaml:"layout"`

	// Blacklist lists source keys that are never fetched or converted
	Blacklist []string `yaml:"blacklist"`

	// Processing parameters
	Processing struct {
		// OnError is "abort" to stop the batch at the first failed item or
		// "skip" to record it and continue
		OnError string `yaml:"onError"`

		// Verify checks that derived volumes hold exactly the source voxels
		// before they are written
		Verify bool `yaml:"verify"`
	} `yaml:"processing"`

	// Previews controls optional JPEG previews of the derived volumes
	Previews struct {
		Enabled bool   `yaml:"enabled"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"previews"`

	// Log controls where log lines are written
	Log logging.Config `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Bucket = "gs://elvos"

	cfg.Layout.Source = "numpy/axial"
	cfg.Layout.Coronal = "numpy/coronal"
	cfg.Layout.Sagittal = "numpy/sagittal"

	cfg.Blacklist = []string{
		"numpy/LAUIHISOEZIM5ILF.npy",
		"numpy/ALOUY4SF3BQKXQCZ.npy",
		"numpy/ABPO2BORDNF3OVL3.npy",
	}

	cfg.Processing.OnError = OnErrorAbort
	cfg.Processing.Verify = false

	cfg.Previews.Enabled = false
	cfg.Previews.Prefix = "numpy/preview"

	cfg.Log.MaxSize = 100
	cfg.Log.MaxAge = 30

	return cfg
}

// Validate checks the configuration for values the converter cannot run with
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket must be set")
	}
	if c.Layout.Source == "" || c.Layout.Coronal == "" || c.Layout.Sagittal == "" {
		return fmt.Errorf("layout prefixes must all be set")
	}
	if c.Layout.Coronal == c.Layout.Sagittal {
		return fmt.Errorf("coronal and sagittal prefixes must differ (both %q)", c.Layout.Coronal)
	}
	for _, dest := range []string{c.Layout.Coronal, c.Layout.Sagittal} {
		if strings.HasPrefix(dest, c.Layout.Source) {
			return fmt.Errorf("destination prefix %q lies under source prefix %q", dest, c.Layout.Source)
		}
	}
	if c.Previews.Enabled && strings.HasPrefix(c.Previews.Prefix, c.Layout.Source) {
		return fmt.Errorf("previews prefix %q lies under source prefix %q", c.Previews.Prefix, c.Layout.Source)
	}
	switch c.Processing.OnError {
	case OnErrorAbort, OnErrorSkip:
	default:
		return fmt.Errorf("unknown onError policy %q (must be %q or %q)",
			c.Processing.OnError, OnErrorAbort, OnErrorSkip)
	}
	if c.Previews.Enabled && c.Previews.Prefix == "" {
		return fmt.Errorf("previews prefix must be set when previews are enabled")
	}
	return nil
}

// BlacklistSet returns the blacklist as a set
func (c *Config) BlacklistSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Blacklist))
	for _, k := range c.Blacklist {
		set[k] = struct{}{}
	}
	return set
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
