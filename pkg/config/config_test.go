package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the evaluation defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Evaluation.Threshold != 0.5 {
		t.Errorf("Expected default threshold 0.5, got %f", cfg.Evaluation.Threshold)
	}
	if cfg.Evaluation.Smooth != 0.02 {
		t.Errorf("Expected default smooth 0.02, got %f", cfg.Evaluation.Smooth)
	}
	if cfg.Evaluation.CropLeading != 3 {
		t.Errorf("Expected default crop 3, got %d", cfg.Evaluation.CropLeading)
	}
	if cfg.Evaluation.ImagesPerPatient != 5 {
		t.Errorf("Expected default 5 images per patient, got %d", cfg.Evaluation.ImagesPerPatient)
	}
	if !cfg.Output.Verbose {
		t.Error("Expected verbose output by default")
	}
}

// TestLoadConfigMissingFile verifies defaults are returned when no
// config file exists
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed for a missing file: %v", err)
	}
	if cfg.Evaluation.Threshold != 0.5 {
		t.Errorf("Expected default config, got threshold %f", cfg.Evaluation.Threshold)
	}
}

// TestLoadConfigOverrides verifies file values override the defaults
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "evaluation:\n  threshold: 0.7\n  workers: 4\noutput:\n  verbose: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Evaluation.Threshold != 0.7 {
		t.Errorf("Expected threshold 0.7 from file, got %f", cfg.Evaluation.Threshold)
	}
	if cfg.Evaluation.Workers != 4 {
		t.Errorf("Expected 4 workers from file, got %d", cfg.Evaluation.Workers)
	}
	if cfg.Output.Verbose {
		t.Error("Expected verbose disabled from file")
	}
	// Untouched fields keep their defaults
	if cfg.Evaluation.Smooth != 0.02 {
		t.Errorf("Expected default smooth to survive, got %f", cfg.Evaluation.Smooth)
	}
}

// TestSaveConfigRoundTrip verifies a saved config loads back identically
func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Evaluation.SampleSeed = 99
	cfg.Output.Verbose = false

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Evaluation.SampleSeed != 99 {
		t.Errorf("Expected sample seed 99 after round trip, got %d", loaded.Evaluation.SampleSeed)
	}
	if loaded.Output.Verbose {
		t.Error("Expected verbose to stay disabled after round trip")
	}
}
