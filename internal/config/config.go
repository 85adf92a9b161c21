// Package config loads, validates and hot-reloads the monitor configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "LH2MON"

// ConfigDirEnv names the environment variable selecting the config directory.
const ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"

// configFilePath stores the path to the loaded config file
var configFilePath string

// current holds the typed configuration built by the last successful
// Init or Reload.
var current atomic.Pointer[Config]

var (
	hooksMu     sync.Mutex
	reloadHooks []func(old, new *Config)
)

// Init initializes the configuration subsystem.
// It searches for configuration files in priority order:
//  1. Directory specified by LH2MON_CONFIG_DIR environment variable
//  2. ~/.config/lh2monitor/
//  3. Current working directory (.)
//
// A .env file in any of those directories is loaded into the process
// environment first; variables already set are not overridden.
// If no config file is found, defaults are used.
// If a config file exists but is invalid or unreadable, Init returns an error.
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	dirs := searchDirs()
	for _, dir := range dirs {
		viper.AddConfigPath(dir)
	}

	if err := loadDotEnv(dirs...); err != nil {
		return err
	}

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config; %w", err)
		}
		configFilePath = ""
	} else {
		configFilePath = viper.ConfigFileUsed()
	}

	cfg, err := unmarshalConfig(viper.GetViper())
	if err != nil {
		return err
	}
	current.Store(cfg)

	slog.Debug("config initialized", "file", configFilePath)

	return nil
}

// searchDirs returns the config search path in priority order.
func searchDirs() []string {
	var dirs []string
	if envPath := os.Getenv(ConfigDirEnv); envPath != "" {
		dirs = append(dirs, envPath)
	}
	if dir := ConfigDir(); dir != "" {
		dirs = append(dirs, dir)
	}
	return append(dirs, ".")
}

// Get returns the current typed configuration. Before Init it returns the
// defaults.
func Get() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	cfg := NewDefaultConfig()
	return &cfg
}

// OnReload registers fn to run after every successful Reload.
func OnReload(fn func(old, new *Config)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// ConfigFilePath returns the path to the loaded config file,
// or empty string if using defaults only.
func ConfigFilePath() string {
	return configFilePath
}

// Reset clears the configuration state for testing purposes.
func Reset() {
	viper.Reset()
	configFilePath = ""
	current.Store(nil)

	hooksMu.Lock()
	reloadHooks = nil
	hooksMu.Unlock()
}

// GetString returns the string value for the given key.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns the integer value for the given key.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns the boolean value for the given key.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set sets a value for the given key, overriding defaults and config file values.
// Primarily used for testing.
func Set(key string, value any) {
	viper.Set(key, value)
}

// GetPath returns the string value for the given key with ~ expanded to $HOME.
func GetPath(key string) string {
	return ExpandHome(viper.GetString(key))
}

// GetConfigPath returns the path of the loaded config file, or the default
// path when none was loaded.
func GetConfigPath() string {
	if configFilePath != "" {
		return configFilePath
	}
	return DefaultConfigPath()
}

// GetAllSettings returns all configuration settings as a map.
func GetAllSettings() map[string]any {
	return viper.AllSettings()
}

// Reload re-reads the configuration from disk.
// The file is validated in a staging instance first; on failure the previous
// configuration is retained.
func Reload() error {
	old := Get()

	if configFilePath != "" {
		if _, err := LoadFromPath(configFilePath); err != nil {
			return reloadFailed(err)
		}
		if err := viper.ReadInConfig(); err != nil {
			return reloadFailed(err)
		}
	}

	cfg, err := unmarshalConfig(viper.GetViper())
	if err != nil {
		return reloadFailed(err)
	}
	current.Store(cfg)

	slog.Info("config reloaded", "file", viper.ConfigFileUsed())
	publishConfigReloaded(old, cfg)

	hooksMu.Lock()
	hooks := append([]func(old, new *Config){}, reloadHooks...)
	hooksMu.Unlock()
	for _, fn := range hooks {
		fn(old, cfg)
	}

	return nil
}

func reloadFailed(err error) error {
	slog.Error("config reload failed; retaining previous values", "error", err)
	publishConfigReloadFailed(err)
	return fmt.Errorf("failed to reload config; %w", err)
}
