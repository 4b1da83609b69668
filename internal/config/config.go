package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Volume used by the free-space query.
	TotalCapacity int64 `yaml:"total_capacity"`
	MinFree       int64 `yaml:"min_free"`

	// Window used by the directory sizes query.
	MinSize int64 `yaml:"min_size"`
	MaxSize int64 `yaml:"max_size"`

	IndentWidth int      `yaml:"indent_width"`
	Exclude     []string `yaml:"exclude"`
	Workers     int      `yaml:"workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Listen    string `yaml:"listen"`
}

func DefaultConfig() *Config {
	return &Config{
		TotalCapacity: 70_000_000,
		MinFree:       30_000_000,
		MinSize:       0,
		MaxSize:       100_000,
		IndentWidth:   2,
		Exclude: []string{
			".git/",
			".svn/",
			"node_modules/",
			"__pycache__/",
			".DS_Store",
			"Thumbs.db",
		},
		Workers:   4,
		LogLevel:  "info",
		LogFormat: "console",
		Listen:    ":8080",
	}
}

// LoadConfig reads a YAML file on top of the defaults. A missing file yields
// the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if cfg.Exclude == nil {
		cfg.Exclude = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TotalCapacity <= 0 {
		return fmt.Errorf("total_capacity must be positive, got %d", c.TotalCapacity)
	}
	if c.MinFree < 0 || c.MinFree > c.TotalCapacity {
		return fmt.Errorf("min_free must be between 0 and total_capacity, got %d", c.MinFree)
	}
	if c.MinSize > c.MaxSize {
		return fmt.Errorf("min_size %d exceeds max_size %d", c.MinSize, c.MaxSize)
	}
	if c.IndentWidth <= 0 {
		return fmt.Errorf("indent_width must be positive, got %d", c.IndentWidth)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}
