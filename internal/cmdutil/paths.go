// Package cmdutil holds helpers shared by the CLI commands.
package cmdutil

import (
	"path/filepath"
	"sync/atomic"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/logging"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

var logManager atomic.Pointer[logging.Manager]

// SetLogManager records the process log manager so commands can change the
// level on config reload.
func SetLogManager(m *logging.Manager) {
	logManager.Store(m)
}

// LogManager returns the process log manager, or nil before SetLogManager.
func LogManager() *logging.Manager {
	return logManager.Load()
}

// ResolvePath expands "~" and returns an absolute, cleaned path.
// Empty input returns an empty string.
func ResolvePath(path string) (string, error) {
	expanded := config.ExpandHome(path)
	if expanded == "" {
		return "", nil
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

// TriggerPaths resolves the configured marker paths.
func TriggerPaths(cfg config.TriggersConfig) (trigger.Paths, error) {
	var p trigger.Paths
	var err error
	if p.Skip, err = ResolvePath(cfg.SkipPath); err != nil {
		return p, err
	}
	if p.Cancel, err = ResolvePath(cfg.CancelPath); err != nil {
		return p, err
	}
	if p.Extend, err = ResolvePath(cfg.ExtendPath); err != nil {
		return p, err
	}
	return p, nil
}
