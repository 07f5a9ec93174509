// Package config loads swish settings from ~/.config/swish/config.yaml and
// SWISH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/swish/internal/logging"
	"github.com/marcelocantos/swish/internal/rules"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SWISH"

// Config holds the global swish configuration.
type Config struct {
	Shell   ShellConfig   `yaml:"shell"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
	Policy  PolicyConfig  `yaml:"policy"`
}

// ShellConfig controls the interactive prompt.
type ShellConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls diagnostics on stderr.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// PolicyConfig controls the checks applied before a step runs.
type PolicyConfig struct {
	Script string                       `yaml:"script"` // Starlark policy script, empty for none
	Rules  map[string]rules.ProgramRule `yaml:"rules"`  // keyed by program name
}

// RuleSet compiles the hardcoded rules and the configured ones.
func (p *PolicyConfig) RuleSet() *rules.RuleSet {
	return rules.Compile(p.Rules)
}

// env holds the environment overrides. Unset variables leave the field nil.
type env struct {
	Prompt       *string `split_words:"true"`
	HistoryFile  *string `split_words:"true"`
	AuditEnabled *bool   `split_words:"true"`
	AuditPath    *string `split_words:"true"`
	LogLevel     *string `split_words:"true"`
	LogDev       *bool   `split_words:"true"`
	PolicyScript *string `split_words:"true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Shell: ShellConfig{
			Prompt:      "swish> ",
			HistoryFile: filepath.Join(home, ".swish_history"),
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    filepath.Join(home, ".local", "share", "swish", "audit.jsonl"),
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads the config from the standard location and applies environment
// overrides. If the file doesn't exist, the defaults are used.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config from the given path and applies environment
// overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Shell.HistoryFile = expandHome(cfg.Shell.HistoryFile)
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Policy.Script = expandHome(cfg.Policy.Script)
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	set(&c.Shell.Prompt, e.Prompt)
	set(&c.Shell.HistoryFile, e.HistoryFile)
	set(&c.Audit.Enabled, e.AuditEnabled)
	set(&c.Audit.Path, e.AuditPath)
	set(&c.Logging.Level, e.LogLevel)
	set(&c.Logging.Development, e.LogDev)
	set(&c.Policy.Script, e.PolicyScript)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// LoggingConfig returns the logger configuration for diagnostics on stderr.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	if c.Logging.Level != "" {
		lc.Level = c.Logging.Level
	}
	lc.Development = c.Logging.Development
	return lc
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "swish", "config.yaml")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
