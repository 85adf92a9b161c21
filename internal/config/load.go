package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadFromPath reads configuration from a specific file path without touching
// the package-level state.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(ExpandHome(path))
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	return unmarshalConfig(v)
}

// LoadWithDefaults returns configuration using defaults only.
// Use this in contexts where a config file is not required (e.g., config init).
func LoadWithDefaults() *Config {
	cfg := NewDefaultConfig()
	return &cfg
}

// unmarshalConfig converts viper config to typed Config struct.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	if len(cfg.Sequence.Steps) == 0 {
		cfg.Sequence.Steps = DefaultSteps()
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
