// Package logging owns the process logger: a bootstrap stderr handler that is
// upgraded to a stderr plus rotated JSON file fanout once configuration loads.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log rotation defaults.
const (
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// UpgradeOption configures Manager.Upgrade.
type UpgradeOption func(*upgradeConfig)

type upgradeConfig struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	stderr     io.Writer
}

// WithRotation sets the log file rotation limits.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) UpgradeOption {
	return func(c *upgradeConfig) {
		c.maxSizeMB = maxSizeMB
		c.maxBackups = maxBackups
		c.maxAgeDays = maxAgeDays
	}
}

// WithStderr replaces the terminal writer. Pass io.Discard to log to the file
// only, e.g. while the console renderer owns the terminal.
func WithStderr(w io.Writer) UpgradeOption {
	return func(c *upgradeConfig) {
		c.stderr = w
	}
}

// Manager handles logger lifecycle including bootstrap-to-full mode transitions.
// Components should obtain a logger via Logger() and use it for all logging.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	level   *slog.LevelVar
	stderr  io.Writer

	mu      sync.Mutex
	logFile *lumberjack.Logger
}

// NewManager creates a logging manager in bootstrap mode.
// Bootstrap mode writes only to stderr using text format.
// Call Upgrade() after config is available to enable file logging.
func NewManager() *Manager {
	return newManager(os.Stderr)
}

func newManager(stderr io.Writer) *Manager {
	level := new(slog.LevelVar)
	level.Set(DefaultLevel)

	bootstrap := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	handler := NewSwappableHandler(bootstrap)

	return &Manager{
		handler: handler,
		logger:  slog.New(handler),
		level:   level,
		stderr:  stderr,
	}
}

// Logger returns the current logger instance.
// The returned logger is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade transitions from bootstrap mode (stderr-only) to full mode
// (stderr text + rotated JSON file). Call after config is initialized.
// Returns error if the log file cannot be opened or created.
func (m *Manager) Upgrade(logFilePath string, level slog.Level, opts ...UpgradeOption) error {
	cfg := upgradeConfig{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
		stderr:     m.stderr,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}

	// lumberjack opens lazily; open now so a bad path fails at startup.
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", logFilePath, err)
	}
	_ = file.Close()

	rotated := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.maxSizeMB,
		MaxBackups: cfg.maxBackups,
		MaxAge:     cfg.maxAgeDays,
	}

	if m.logFile != nil {
		_ = m.logFile.Close()
	}
	m.logFile = rotated

	m.level.Set(level)
	handlerOpts := &slog.HandlerOptions{Level: m.level}

	m.handler.Swap(slogmulti.Fanout(
		slog.NewTextHandler(cfg.stderr, handlerOpts),
		slog.NewJSONHandler(rotated, handlerOpts),
	))

	return nil
}

// SetLevel changes the log level at runtime.
// Applies immediately to all future log calls.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Level returns the current log level.
func (m *Manager) Level() slog.Level {
	return m.level.Level()
}

// Close cleanly shuts down the logger, closing any open file handles.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.logFile != nil {
		err := m.logFile.Close()
		m.logFile = nil
		return err
	}
	return nil
}
