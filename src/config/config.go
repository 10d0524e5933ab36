// Package config loads hookstat configuration from .hookstat.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hookstat/src/codec"
	"hookstat/src/report"
	"hookstat/src/sink"
)

// Environment variables read by LoadFromEnv.
const (
	EnvBrokers     = "REDPANDA_BROKERS"
	EnvPostgresDSN = "POSTGRES_DSN"
	EnvRunID       = "HOOKSTAT_RUN_ID"
)

// Config holds hookstat configuration.
type Config struct {
	// Analyses holds per-analysis overrides keyed by analysis name.
	Analyses  map[string]AnalysisConfig `yaml:"analyses"`
	Format    string                    `yaml:"format"`
	Output    string                    `yaml:"output"`
	Workers   int                       `yaml:"workers"`
	Codec     string                    `yaml:"codec"`
	Locations string                    `yaml:"locations"`
	BatchSize int                       `yaml:"batch_size"`

	// Brokers is a comma-separated list of Redpanda brokers. Empty means local mode.
	Brokers     string `yaml:"-"`
	PostgresDSN string `yaml:"-"`
	RunID       string `yaml:"-"`
}

// AnalysisConfig overrides the reporting defaults of one analysis.
// Unset fields keep the analysis' own defaults.
type AnalysisConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Threshold *int64 `yaml:"threshold"`
	Limit     *int   `yaml:"limit"`
	Mode      string `yaml:"mode"`
}

// Load searches for .hookstat.yaml or .hookstat.yml in dir and returns the
// parsed config. Returns an empty Config if no file is found.
func Load(dir string) (*Config, error) {
	candidates := []string{
		filepath.Join(dir, ".hookstat.yaml"),
		filepath.Join(dir, ".hookstat.yml"),
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return cfg, err
	}

	return &Config{}, nil
}

// LoadFile parses the config file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromEnv loads the config file from the working directory and applies the environment.
func LoadFromEnv() (*Config, error) {
	cfg, err := Load(".")
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv copies the environment variables found by lookup into c.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBrokers); ok {
		c.Brokers = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPostgresDSN); ok {
		c.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvRunID); ok {
		c.RunID = strings.TrimSpace(v)
	}
}

// Distributed reports whether a broker is configured.
func (c *Config) Distributed() bool {
	return c.Brokers != ""
}

// Validate checks the values that can be checked without the analyses.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0, got %d", c.BatchSize)
	}
	if _, err := codec.ParseFormat(c.Codec); err != nil {
		return err
	}
	if _, err := sink.ParseFormat(c.Format); err != nil {
		return err
	}
	for name, ac := range c.Analyses {
		if _, err := ac.Apply(report.Config{}); err != nil {
			return fmt.Errorf("analysis %s: %w", name, err)
		}
	}
	return nil
}

// For returns the overrides of the named analysis, matching names case-insensitively.
func (c *Config) For(name string) AnalysisConfig {
	if ac, ok := c.Analyses[name]; ok {
		return ac
	}
	for k, ac := range c.Analyses {
		if strings.EqualFold(k, name) {
			return ac
		}
	}
	return AnalysisConfig{}
}

// Enabled reports whether the analysis should run. Analyses are enabled unless disabled explicitly.
func (c *Config) Enabled(name string) bool {
	ac := c.For(name)
	return ac.Enabled == nil || *ac.Enabled
}

// Apply overlays the overrides on rc.
func (a AnalysisConfig) Apply(rc report.Config) (report.Config, error) {
	if a.Threshold != nil {
		if *a.Threshold < 0 {
			return rc, fmt.Errorf("threshold must be >= 0, got %d", *a.Threshold)
		}
		rc.Threshold = *a.Threshold
	}
	if a.Limit != nil {
		if *a.Limit < 0 {
			return rc, fmt.Errorf("limit must be >= 0, got %d", *a.Limit)
		}
		rc.Limit = *a.Limit
	}
	if a.Mode != "" {
		mode, err := report.ParseMode(a.Mode)
		if err != nil {
			return rc, err
		}
		rc.Mode = mode
	}
	return rc, nil
}
