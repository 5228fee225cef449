// Package config loads CLI configuration from a YAML file, overlaying
// values onto production defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the CLI's logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the factbind CLI configuration.
type Config struct {
	// FactLimit caps live asserted facts per environment. Zero means
	// unlimited.
	FactLimit int `yaml:"fact_limit"`
	// Programs are Mangle source files loaded into every environment
	// before command-specific programs.
	Programs []string      `yaml:"programs"`
	Logging  LoggingConfig `yaml:"logging"`
}

// Default returns production defaults.
func Default() Config {
	return Config{
		FactLimit: 100000,
		Logging:   LoggingConfig{Level: "info", JSON: false},
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the CLI cannot run with.
func (c Config) Validate() error {
	if c.FactLimit < 0 {
		return fmt.Errorf("config: fact_limit must not be negative, got %d", c.FactLimit)
	}
	if c.Logging.Level != "" {
		switch c.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
		}
	}
	return nil
}
