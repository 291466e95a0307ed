// Package config provides configuration loading and management for graphcut.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// Kappa scales neighbour edges and so the smoothness of the cut
		Kappa float64 `yaml:"kappa"`

		// Sigma controls the sensitivity of neighbour edges to colour difference
		Sigma float64 `yaml:"sigma"`

		// Classifier is "naive" or "gaussian"
		Classifier string `yaml:"classifier"`

		// Prior is "uniform" or "proportional"
		Prior string `yaml:"prior"`

		// Regularization is added to every class variance
		Regularization float64 `yaml:"regularization"`

		// HardSeeds pins seed pixels to their terminal
		HardSeeds bool `yaml:"hardSeeds"`

		// Timeout bounds the max-flow computation, 0 disables it
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"segmentation"`

	// Processing parameters
	Processing struct {
		// Workers specifies how many goroutines classify pixels
		Workers int `yaml:"workers"`

		// ColorSpace is "rgb" or "lab"
		ColorSpace string `yaml:"colorSpace"`

		// Scale resizes image and mask before segmenting, 1 keeps full size
		Scale float64 `yaml:"scale"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveOverlay writes an overlay of the labels on the input image
		SaveOverlay bool `yaml:"saveOverlay"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default segmentation parameters
	cfg.Segmentation.Kappa = 2
	cfg.Segmentation.Sigma = 100
	cfg.Segmentation.Classifier = "naive"
	cfg.Segmentation.Prior = "uniform"
	cfg.Segmentation.Regularization = 1e-3

	// Set default processing parameters
	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.ColorSpace = "rgb"
	cfg.Processing.Scale = 1

	// Set default output parameters
	cfg.Output.SaveOverlay = true
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that every value is usable
func (cfg *Config) Validate() error {
	var err error
	s := cfg.Segmentation
	if !(s.Kappa > 0) {
		err = multierr.Append(err, errors.Errorf("kappa must be positive, got %v", s.Kappa))
	}
	if !(s.Sigma > 0) {
		err = multierr.Append(err, errors.Errorf("sigma must be positive, got %v", s.Sigma))
	}
	if !(s.Regularization > 0) {
		err = multierr.Append(err, errors.Errorf("regularization must be positive, got %v", s.Regularization))
	}
	if s.Classifier != "naive" && s.Classifier != "gaussian" {
		err = multierr.Append(err, errors.Errorf("unknown classifier %q", s.Classifier))
	}
	if s.Prior != "uniform" && s.Prior != "proportional" {
		err = multierr.Append(err, errors.Errorf("unknown prior %q", s.Prior))
	}
	if s.Timeout < 0 {
		err = multierr.Append(err, errors.Errorf("timeout must not be negative, got %v", s.Timeout))
	}

	p := cfg.Processing
	if p.Workers < 1 {
		err = multierr.Append(err, errors.Errorf("workers must be at least 1, got %d", p.Workers))
	}
	if p.ColorSpace != "rgb" && p.ColorSpace != "lab" {
		err = multierr.Append(err, errors.Errorf("unknown color space %q", p.ColorSpace))
	}
	if !(p.Scale > 0 && p.Scale <= 1) {
		err = multierr.Append(err, errors.Errorf("scale must be in (0, 1], got %v", p.Scale))
	}
	return err
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
