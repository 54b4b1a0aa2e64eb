// Package config loads autopilot configuration from a YAML file with
// sensible defaults for every option.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default option values.
const (
	DefaultTimeoutSeconds        = 60
	DefaultMaxRetries            = 3
	DefaultMaxConcurrentSessions = 5
	DefaultEscalationThreshold   = 0.5
	DefaultModel                 = "gpt-4o"
)

// Config is the recognized configuration surface of the orchestration
// core. Zero values are filled in by Load and Default.
type Config struct {
	// Headless controls whether browser sessions run without a window.
	Headless bool `yaml:"headless"`

	// TimeoutSeconds bounds each browser action.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxRetries bounds re-attempts of a failed step.
	MaxRetries int `yaml:"max_retries"`

	// MaxConcurrentSessions bounds the browser session pool.
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions"`

	// EscalationConfidenceThreshold is the confidence above which a
	// failed step is aborted without human review.
	EscalationConfidenceThreshold float64 `yaml:"escalation_confidence_threshold"`

	// Model is the reasoning model used for planning.
	Model string `yaml:"model"`

	// BaseURL optionally points the planner at an OpenAI-compatible API.
	BaseURL string `yaml:"base_url"`
}

// Default returns a config populated with default values. Headless
// defaults to true so unattended runs do not require a display.
func Default() *Config {
	return &Config{
		Headless:                      true,
		TimeoutSeconds:                DefaultTimeoutSeconds,
		MaxRetries:                    DefaultMaxRetries,
		MaxConcurrentSessions:         DefaultMaxConcurrentSessions,
		EscalationConfidenceThreshold: DefaultEscalationThreshold,
		Model:                         DefaultModel,
	}
}

// DefaultPath returns the default config file location,
// ~/.autopilot/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".autopilot", "config.yaml"), nil
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file is not an error: defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks option ranges.
func (c *Config) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.MaxConcurrentSessions < 1 {
		return fmt.Errorf("max_concurrent_sessions must be at least 1, got %d", c.MaxConcurrentSessions)
	}
	if c.EscalationConfidenceThreshold < 0 || c.EscalationConfidenceThreshold > 1 {
		return fmt.Errorf("escalation_confidence_threshold must be in [0, 1], got %g", c.EscalationConfidenceThreshold)
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	return nil
}
