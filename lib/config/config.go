// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration for roomkeys binaries.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Encryption configures default megolm session rotation.
	Encryption EncryptionConfig `yaml:"encryption"`

	// PushRules locates the push ruleset.
	PushRules PushRulesConfig `yaml:"push_rules"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Encryption *EncryptionConfig `yaml:"encryption,omitempty"`
	PushRules  *PushRulesConfig  `yaml:"push_rules,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
}

// EncryptionConfig holds the rotation defaults applied to rooms whose
// m.room.encryption state does not set its own.
type EncryptionConfig struct {
	// RotationPeriodMessages is how many messages a session may
	// encrypt before it is replaced.
	// Default: 100
	RotationPeriodMessages int `yaml:"rotation_period_messages"`

	// RotationPeriod is how long a session may live before it is
	// replaced, as a Go duration string.
	// Default: 168h
	RotationPeriod string `yaml:"rotation_period"`
}

// Period parses RotationPeriod.
func (e EncryptionConfig) Period() (time.Duration, error) {
	period, err := time.ParseDuration(e.RotationPeriod)
	if err != nil {
		return 0, fmt.Errorf("encryption.rotation_period: %w", err)
	}
	return period, nil
}

// PushRulesConfig locates the push ruleset.
type PushRulesConfig struct {
	// File is a JSONC file holding the ruleset. Empty means the
	// binary must be given one on the command line.
	File string `yaml:"file"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is json or text.
	// Default: text (development), json (production)
	Format string `yaml:"format"`
}

// Default returns the default configuration. The defaults give every
// field a usable value; they are not a substitute for the config file
// when one is required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Encryption: EncryptionConfig{
			RotationPeriodMessages: 100,
			RotationPeriod:         "168h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the ROOMKEYS_CONFIG environment
// variable. It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("ROOMKEYS_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ROOMKEYS_CONFIG environment variable not set; " +
			"set it to the path of your roomkeys.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Logging: &LoggingConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Encryption != nil {
		if overrides.Encryption.RotationPeriodMessages != 0 {
			c.Encryption.RotationPeriodMessages = overrides.Encryption.RotationPeriodMessages
		}
		if overrides.Encryption.RotationPeriod != "" {
			c.Encryption.RotationPeriod = overrides.Encryption.RotationPeriod
		}
	}

	if overrides.PushRules != nil && overrides.PushRules.File != "" {
		c.PushRules.File = overrides.PushRules.File
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.PushRules.File = expandVars(c.PushRules.File, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Encryption.RotationPeriodMessages <= 0 {
		errs = append(errs, fmt.Errorf("encryption.rotation_period_messages must be positive, got %d",
			c.Encryption.RotationPeriodMessages))
	}
	if period, err := c.Encryption.Period(); err != nil {
		errs = append(errs, err)
	} else if period <= 0 {
		errs = append(errs, fmt.Errorf("encryption.rotation_period must be positive, got %s", period))
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// Logger builds a logger writing to w with the configured level and
// format. Unknown values fall back to info and text; call Validate to
// reject them instead.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}
