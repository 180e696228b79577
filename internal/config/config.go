// Package config loads the small set of tunables spec.md leaves as
// implementation choices: pipeline queue depth and logging setup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds runtime tunables. All fields have sane defaults, so a
// missing config file is not an error — only a malformed one is.
type Config struct {
	Pipeline struct {
		QueueDepth int `yaml:"queue_depth"`
	} `yaml:"pipeline"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Default returns the built-in tunables used when no config file is
// supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.Pipeline.QueueDepth = 4096
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// Load reads path, if it exists, over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// proceed with defaults
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects tunables that would make the pipeline unusable.
func (c *Config) Validate() error {
	if c.Pipeline.QueueDepth <= 0 {
		return fmt.Errorf("pipeline queue depth must be positive, got %d", c.Pipeline.QueueDepth)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unrecognized log format %q", c.Logging.Format)
	}
	return nil
}

// overrideWithEnv lets ITCH_LOG_LEVEL and ITCH_QUEUE_SIZE take priority
// over both the file and the built-in defaults.
func overrideWithEnv(cfg *Config) {
	if level := os.Getenv("ITCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if size := os.Getenv("ITCH_QUEUE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			cfg.Pipeline.QueueDepth = n
		}
	}
}
