package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/greenandcoop/weather-etl/internal/validate"
)

// PipelineFile is the optional YAML run configuration. Values present in
// the file override environment-derived settings; CLI flags override both.
type PipelineFile struct {
	Sources          []string                  `yaml:"sources"`
	Stations         map[string][]string       `yaml:"stations"`
	Bounds           map[string]validate.Range `yaml:"bounds"`
	ExpectedInterval string                    `yaml:"expected_interval"`
	Workers          int                       `yaml:"workers"`
	StrictValidation *bool                     `yaml:"strict_validation"`
	WriteMode        string                    `yaml:"write_mode"`
}

// LoadPipelineFile reads and parses a pipeline YAML file.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file %s: %w", path, err)
	}
	var f PipelineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pipeline file %s: %w", path, err)
	}
	return &f, nil
}

// Apply overlays the file's values onto cfg and re-validates the result.
// Bound overrides merge on top of the stock range table, so a file needs to
// name only the fields it changes.
func (f *PipelineFile) Apply(cfg *Config) error {
	if len(f.Sources) > 0 {
		cfg.Sources = f.Sources
	}
	if len(f.Stations) > 0 {
		cfg.Stations = f.Stations
	}
	if len(f.Bounds) > 0 {
		cfg.Bounds = validate.DefaultBounds().Merge(validate.Bounds(f.Bounds))
	}
	if f.ExpectedInterval != "" {
		d, err := time.ParseDuration(f.ExpectedInterval)
		if err != nil {
			return fmt.Errorf("invalid expected_interval %q: %w", f.ExpectedInterval, err)
		}
		cfg.ExpectedInterval = d
	}
	if f.Workers > 0 {
		cfg.PipelineWorkers = f.Workers
	}
	if f.StrictValidation != nil {
		cfg.StrictValidation = *f.StrictValidation
	}
	if f.WriteMode != "" {
		cfg.WriteMode = f.WriteMode
	}
	return cfg.validate()
}
