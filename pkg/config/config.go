// Package config provides configuration loading and management for the
// segmentation evaluator. It handles loading configuration from YAML
// files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Dataset parameters
	Dataset struct {
		// Root is the directory containing the BraTS dataset
		Root string `yaml:"root"`

		// Year selects the BraTS challenge release to evaluate against
		Year int `yaml:"year"`
	} `yaml:"dataset"`

	// Evaluation parameters
	Evaluation struct {
		// Threshold is the decision threshold for binarizing masks
		Threshold float64 `yaml:"threshold"`

		// Smooth is the smoothing constant added to the dice quotient
		Smooth float64 `yaml:"smooth"`

		// CropLeading is the number of planes removed from the leading
		// edge of the scan axis before inference. The same value is
		// applied to the ground truth so plane indices stay aligned.
		CropLeading int `yaml:"cropLeading"`

		// ImagesPerPatient is how many slices to render per subject
		ImagesPerPatient int `yaml:"imagesPerPatient"`

		// SampleSeed seeds the weighted slice sampler
		SampleSeed uint64 `yaml:"sampleSeed"`

		// Workers bounds how many patients are evaluated concurrently
		Workers int `yaml:"workers"`

		// ContinueOnError skips failed patients instead of aborting
		// the partition
		ContinueOnError bool `yaml:"continueOnError"`
	} `yaml:"evaluation"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default dataset parameters
	cfg.Dataset.Root = "BraTS"
	cfg.Dataset.Year = 2018

	// Set default evaluation parameters
	cfg.Evaluation.Threshold = 0.5
	cfg.Evaluation.Smooth = 0.02
	cfg.Evaluation.CropLeading = 3
	cfg.Evaluation.ImagesPerPatient = 5
	cfg.Evaluation.SampleSeed = 1
	cfg.Evaluation.Workers = 1

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
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
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Workers <= 0 in the file means "use every core"
	if cfg.Evaluation.Workers < 1 {
		cfg.Evaluation.Workers = runtime.NumCPU()
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
