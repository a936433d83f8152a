// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// ContainerEngine specifies which container runtime to use.
type ContainerEngine string

const (
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"
)

// Config holds the application configuration.
type Config struct {
	// ContainerEngine selects "docker" or "podman" for the sandbox
	// supervisor; AutoDetectEngine is used when empty.
	ContainerEngine ContainerEngine `toml:"container_engine" mapstructure:"container_engine"`
	// ForceRebuildImage always rebuilds the grading image instead of
	// reusing one that already exists.
	ForceRebuildImage bool `toml:"force_rebuild_image" mapstructure:"force_rebuild_image"`
	// PoolSize bounds the worker pool's degree of parallelism when
	// grading a batch of candidates (internal/batch).
	PoolSize int `toml:"pool_size" mapstructure:"pool_size"`
	// LogLevel ("debug", "info", "warn", "error") is read by the CLI only
	// to turn on verbose output when it is "debug"; other values change
	// nothing.
	LogLevel string `toml:"log_level" mapstructure:"log_level"`
}

const (
	// AppName is the application name.
	AppName = "shellgrader"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

var (
	// globalConfig holds the loaded configuration.
	globalConfig *Config
	// configPath stores the path where config was loaded from.
	configPath string
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine:   ContainerEngineDocker,
		ForceRebuildImage: false,
		PoolSize:          4,
		LogLevel:          "info",
	}
}

// ConfigDir returns the shellgrader configuration directory.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads and parses the configuration file.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)

	cfgDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(cfgDir)
	v.AddConfigPath(".")

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("force_rebuild_image", defaults.ForceRebuildImage)
	v.SetDefault("pool_size", defaults.PoolSize)
	v.SetDefault("log_level", defaults.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			globalConfig = defaults
			return globalConfig, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	configPath = v.ConfigFileUsed()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	globalConfig = &cfg
	return globalConfig, nil
}

// Get returns the currently loaded configuration.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			return DefaultConfig()
		}
		return cfg
	}
	return globalConfig
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath() string {
	return configPath
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig creates a default config file if it doesn't exist.
func CreateDefaultConfig() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return nil // File exists
	}

	defaults := DefaultConfig()
	data, err := toml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	header := []byte(`# shellgrader Configuration File
# This file configures the shellgrader autograder.

`)

	if err := os.WriteFile(cfgPath, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Save writes the current configuration to file.
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	globalConfig = cfg
	return nil
}

// Reset clears the cached configuration.
func Reset() {
	globalConfig = nil
	configPath = ""
}
