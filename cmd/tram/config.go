package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Flags given on the
// command line override it.
type Config struct {
	Ticks    int64         `yaml:"ticks"`
	MaxDepth int           `yaml:"max_depth"`
	Jobs     int           `yaml:"jobs"`
	Timeout  time.Duration `yaml:"timeout"`
	FailFast bool          `yaml:"fail_fast"`
	LogLevel string        `yaml:"log_level"`
	Trace    TraceConfig   `yaml:"trace"`
	History  string        `yaml:"history"` // REPL history file
}

// TraceConfig configures the execution tracer
type TraceConfig struct {
	Enabled bool     `yaml:"enabled"`
	Filters []string `yaml:"filters"`
}

func defaultConfig() *Config {
	return &Config{
		MaxDepth: 10000,
		LogLevel: "warn",
	}
}

// loadConfig reads path over the defaults
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := cfg.level(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
