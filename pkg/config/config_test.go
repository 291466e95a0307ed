package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Segmentation.Kappa != 2 {
		t.Errorf("Expected kappa 2, got %f", cfg.Segmentation.Kappa)
	}
	if cfg.Segmentation.Sigma != 100 {
		t.Errorf("Expected sigma 100, got %f", cfg.Segmentation.Sigma)
	}
	if cfg.Segmentation.Classifier != "naive" {
		t.Errorf("Expected naive classifier, got %s", cfg.Segmentation.Classifier)
	}
	if cfg.Processing.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Processing.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if cfg.Segmentation.Sigma != 100 {
		t.Errorf("Expected default sigma, got %f", cfg.Segmentation.Sigma)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphcut.yaml")
	data := "segmentation:\n  kappa: 0.5\n  classifier: gaussian\n  timeout: 3s\nprocessing:\n  colorSpace: lab\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Segmentation.Kappa != 0.5 {
		t.Errorf("Expected kappa 0.5, got %f", cfg.Segmentation.Kappa)
	}
	if cfg.Segmentation.Classifier != "gaussian" {
		t.Errorf("Expected gaussian classifier, got %s", cfg.Segmentation.Classifier)
	}
	if cfg.Segmentation.Timeout != 3*time.Second {
		t.Errorf("Expected timeout 3s, got %v", cfg.Segmentation.Timeout)
	}
	if cfg.Processing.ColorSpace != "lab" {
		t.Errorf("Expected lab colour space, got %s", cfg.Processing.ColorSpace)
	}
	// Unset values keep their defaults
	if cfg.Segmentation.Sigma != 100 {
		t.Errorf("Expected default sigma, got %f", cfg.Segmentation.Sigma)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("segmentation: [1, 2"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected invalid YAML to fail")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graphcut.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	def := DefaultConfig()
	if cfg.Segmentation != def.Segmentation || cfg.Processing != def.Processing || cfg.Output != def.Output {
		t.Errorf("Expected saved defaults to load back unchanged, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segmentation.Kappa = 0
	cfg.Segmentation.Sigma = -1
	cfg.Segmentation.Classifier = "forest"
	cfg.Processing.Scale = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected invalid config to fail validation")
	}
	if n := len(multierr.Errors(err)); n != 4 {
		t.Errorf("Expected 4 validation errors, got %d: %v", n, err)
	}
	if !strings.Contains(err.Error(), "forest") {
		t.Errorf("Expected the classifier name in the error, got %v", err)
	}
}
