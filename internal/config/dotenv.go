package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// loadDotEnv reads KEY=value pairs from a .env file in each of dirs into the
// process environment. Variables that are already set win over the file, and
// earlier directories win over later ones.
func loadDotEnv(dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(ExpandHome(dir), ".env")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat %s; %w", path, err)
		}

		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read %s; %w", path, err)
		}

		for _, key := range v.AllKeys() {
			name := strings.ToUpper(key)
			if _, set := os.LookupEnv(name); set {
				continue
			}
			if err := os.Setenv(name, v.GetString(key)); err != nil {
				return fmt.Errorf("failed to set %s from %s; %w", name, path, err)
			}
		}

		slog.Debug("loaded environment file", "path", path)
	}
	return nil
}
