// Package config handles configuration loading and validation for sandboxdb
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for sandboxdb
type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Seed  SeedConfig  `mapstructure:"seed"`
	Shell ShellConfig `mapstructure:"shell"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SeedConfig selects the seed pack loaded on every reset.
// An empty Path means the built-in pack.
type SeedConfig struct {
	Path string `mapstructure:"path"`
}

// ShellConfig holds settings of the interactive shell
type ShellConfig struct {
	Prompt         string `mapstructure:"prompt"`
	HistoryFile    string `mapstructure:"history_file"`
	Format         string `mapstructure:"format"`
	MaxColumnWidth int    `mapstructure:"max_column_width"`
}

// Default configuration values
func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Shell: ShellConfig{
			Prompt:         "sandbox> ",
			HistoryFile:    "",
			Format:         "table",
			MaxColumnWidth: 40,
		},
	}
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("seed.path", cfg.Seed.Path)
	v.SetDefault("shell.prompt", cfg.Shell.Prompt)
	v.SetDefault("shell.history_file", cfg.Shell.HistoryFile)
	v.SetDefault("shell.format", cfg.Shell.Format)
	v.SetDefault("shell.max_column_width", cfg.Shell.MaxColumnWidth)

	// SANDBOX_LOG_LEVEL overrides log.level and so on
	v.SetEnvPrefix("SANDBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("sandboxdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sandboxdb")

		// Defaults apply when no file is found.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are sensible
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if !ValidOutputFormat(c.Shell.Format) {
		return fmt.Errorf("invalid shell format: %s (must be table or json)", c.Shell.Format)
	}

	if c.Shell.MaxColumnWidth < 0 {
		return fmt.Errorf("max_column_width must not be negative")
	}

	if c.Seed.Path != "" {
		info, err := os.Stat(c.Seed.Path)
		if err != nil {
			return fmt.Errorf("cannot access seed file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("seed path is a directory: %s", c.Seed.Path)
		}
	}

	return nil
}

// ValidOutputFormat reports whether f names a result format the shell can print.
func ValidOutputFormat(f string) bool {
	switch strings.ToLower(f) {
	case "table", "json":
		return true
	}
	return false
}

// CreateDefaultConfig writes a default configuration file
func CreateDefaultConfig(path string, seedPath string) error {
	content := fmt.Sprintf(`# sandboxdb configuration file

log:
  level: warn            # debug, info, warn, error
  format: text           # text or json
  output: stderr         # stderr, stdout, or file path

seed:
  path: %q  # empty uses the built-in users/orders pack

shell:
  prompt: "sandbox> "
  history_file: ""       # empty disables history
  format: table          # table or json
  max_column_width: 40   # 0 disables truncation
`, seedPath)

	return os.WriteFile(path, []byte(content), 0644)
}
