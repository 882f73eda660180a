// Package config loads the run configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gmaffy/klp/reconcile"
	"github.com/gmaffy/klp/registry"
	"github.com/gmaffy/klp/step"
	"gopkg.in/yaml.v3"
)

// Config is the content of the "configuration" object. Sections that belong
// to other tools (bcl-convert, qc, fastqc, ...) are ignored.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Registry  RegistryConfig  `yaml:"registry"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// PipelineConfig holds run-level defaults.
type PipelineConfig struct {
	// Type is left empty to let each command pick its own pipeline type.
	Type       string `yaml:"type"`
	OutputPath string `yaml:"output_path"`
	// JobPoolSize bounds concurrent file work. Zero means one per CPU.
	JobPoolSize int `yaml:"job_pool_size"`
}

// RegistryConfig selects and tunes the registry adapter. Snapshot, when
// set, takes precedence over BaseURL.
type RegistryConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Token             string  `yaml:"token"`
	Snapshot          string  `yaml:"snapshot"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	FailureThreshold  uint32  `yaml:"failure_threshold"`
	OpenTimeout       string  `yaml:"open_timeout"`
}

// ReconcileConfig tunes the reconciliation engine.
type ReconcileConfig struct {
	AliasCategory string `yaml:"alias_category"`
	ExampleCap    int    `yaml:"example_cap"`
	Seed          uint64 `yaml:"seed"`
}

type file struct {
	Configuration Config `yaml:"configuration"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Timeout:          "30s",
			Burst:            1,
			FailureThreshold: 5,
			OpenTimeout:      "60s",
		},
		Reconcile: ReconcileConfig{
			AliasCategory: registry.DefaultAliasCategory,
			ExampleCap:    reconcile.DefaultExampleCap,
		},
	}
}

// Load reads a YAML or JSON configuration file, layers it over the defaults,
// applies environment overrides and validates the result. An empty path
// starts from the defaults alone.
func Load(path string) (*Config, error) {
	f := file{Configuration: *DefaultConfig()}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg := &f.Configuration

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("QIITA_URL"); url != "" {
		c.Registry.BaseURL = url
	}
	if token := os.Getenv("QIITA_TOKEN"); token != "" {
		c.Registry.Token = token
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.Type != "" && !step.ValidPipelineType(c.Pipeline.Type) {
		return fmt.Errorf("%w: %q", step.ErrUnknownPipelineType, c.Pipeline.Type)
	}
	if c.Pipeline.JobPoolSize < 0 {
		return fmt.Errorf("job_pool_size must not be negative")
	}
	for name, d := range map[string]string{"timeout": c.Registry.Timeout, "open_timeout": c.Registry.OpenTimeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("registry %s: %w", name, err)
		}
	}
	if c.Registry.RequestsPerSecond < 0 {
		return fmt.Errorf("registry requests_per_second must not be negative")
	}
	if c.Reconcile.AliasCategory == "" {
		return fmt.Errorf("reconcile alias_category must not be empty")
	}
	if c.Reconcile.ExampleCap < 0 {
		return fmt.Errorf("reconcile example_cap must not be negative")
	}
	return nil
}

// HTTPConfig returns the settings of the registry HTTP adapter.
func (c *Config) HTTPConfig() registry.HTTPConfig {
	return registry.HTTPConfig{
		BaseURL:           c.Registry.BaseURL,
		Token:             c.Registry.Token,
		Timeout:           duration(c.Registry.Timeout, 30*time.Second),
		RequestsPerSecond: c.Registry.RequestsPerSecond,
		Burst:             c.Registry.Burst,
		FailureThreshold:  c.Registry.FailureThreshold,
		OpenTimeout:       duration(c.Registry.OpenTimeout, 60*time.Second),
	}
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
