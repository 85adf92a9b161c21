package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "lh2monitor"
	configFileName = "config.yaml"
)

// ConfigDir returns ~/.config/lh2monitor, or "" when no home directory can
// be determined.
func ConfigDir() string {
	home := resolveHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", appDirName)
}

// DefaultConfigPath is where config init writes and where Init looks last.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), configFileName)
}

// ConfigExistsAt reports whether path (with ~ expanded) exists.
func ConfigExistsAt(path string) bool {
	_, err := os.Stat(ExpandHome(path))
	return err == nil
}

// ExpandHome replaces a leading "~" or "~/" with the home directory. Paths
// like "~operator/x" are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home := resolveHomeDir()
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// resolveHomeDir prefers $HOME so tests and systemd units can redirect it.
func resolveHomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return ""
}
