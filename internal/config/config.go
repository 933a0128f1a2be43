// Package config loads the process-level settings cortex's front-ends
// (cmd/cortexctl and any future collaborator) need to boot: where the
// data lives on disk and how loudly the categorized logger should talk.
// It does not know about stores, categories, or policies — those live in
// the per-store registry document each adapter owns (spec.md §6 "Store
// configuration"; see internal/adapter/fsadapter/config_store.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the settings needed to construct a Cortex and its logger.
type Config struct {
	// DataPath is the root directory holding config.yaml and every
	// store's data (fsadapter's "stores/<name>" convention).
	DataPath string `yaml:"data_path"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the categorized logger (internal/logging).
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug" or "info"
	JSON  bool   `yaml:"json"`  // structured JSON encoding instead of console
}

// DefaultConfig returns cortex's out-of-the-box settings: data under
// "./cortex-data", info-level console logging.
func DefaultConfig() *Config {
	return &Config{
		DataPath: "./cortex-data",
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load reads path as YAML, falling back to DefaultConfig when the file
// does not exist, then applies environment overrides on top either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes c to path as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Debug reports whether the configured log level is "debug".
func (l LoggingConfig) Debug() bool { return l.Level == "debug" }

// applyEnvOverrides lets the environment win over both defaults and a
// loaded file, for the two settings a deployment typically pins outside
// version control: where data lives and how loud logs are.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORTEX_DATA_PATH"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("CORTEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
