// Package config loads project configuration from .codeindex.yaml.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete codeindex configuration
type Config struct {
	Project       ProjectConfig `yaml:"project" mapstructure:"project"`
	Ignore        []string      `yaml:"ignore,omitempty" mapstructure:"ignore"`
	Layers        []LayerConfig `yaml:"layers,omitempty" mapstructure:"layers"`
	SeedRulesFrom []string      `yaml:"seed_rules_from,omitempty" mapstructure:"seed_rules_from"`
	Index         IndexConfig   `yaml:"index" mapstructure:"index"`
	Log           LogConfig     `yaml:"log" mapstructure:"log"`
}

// ProjectConfig identifies the project being indexed
type ProjectConfig struct {
	Name         string `yaml:"name" mapstructure:"name"`
	Repo         string `yaml:"repo,omitempty" mapstructure:"repo"`
	Instructions string `yaml:"instructions,omitempty" mapstructure:"instructions"`
}

// LayerConfig declares an architectural layer and what it may import
type LayerConfig struct {
	Name           string   `yaml:"name" mapstructure:"name"`
	Paths          []string `yaml:"paths" mapstructure:"paths"`
	AllowedImports []string `yaml:"allowed_imports" mapstructure:"allowed_imports"`
	Description    string   `yaml:"description,omitempty" mapstructure:"description"`
}

// IndexConfig contains indexing and query options
type IndexConfig struct {
	// InlineSourceThreshold attaches symbol source to context results when
	// the symbol spans at most this many lines. Zero disables it.
	InlineSourceThreshold int `yaml:"inline_source_threshold" mapstructure:"inline_source_threshold"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	Level  string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{},
		Ignore:  []string{},
		Index: IndexConfig{
			InlineSourceThreshold: 0,
		},
		Log: LogConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .codeindex.yaml in the project root.
// A missing config file is not an error; defaults are returned.
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.format", "human")
	v.SetDefault("log.level", "info")
	v.SetDefault("index.inline_source_threshold", 0)

	v.SetConfigName(".codeindex")
	v.SetConfigType("yaml")
	v.AddConfigPath(projectRoot)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WriteScaffold writes a starter .codeindex.yaml for the given project name.
// Refuses to overwrite an existing config.
func WriteScaffold(projectRoot, projectName string) (string, error) {
	path := filepath.Join(projectRoot, ".codeindex.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, os.ErrExist
	}

	cfg := DefaultConfig()
	cfg.Project.Name = projectName

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
