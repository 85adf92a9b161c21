// Package testutil provides testing utilities for isolated test environments.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/lh2-monitor/internal/config"
)

// TestEnv provides an isolated test environment with its own config directory.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
}

// NewTestEnv creates an isolated test environment.
// Every path the monitor touches is redirected into a temp directory through
// environment variables, so tests in different packages never share markers,
// status files or PID files.
// Cleanup is automatic via t.Cleanup.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	configDir := filepath.Join(t.TempDir(), "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create test config dir: %v", err)
	}

	// These env vars override viper settings via AutomaticEnv()
	t.Setenv(config.ConfigDirEnv, configDir)
	t.Setenv("LH2MON_LOG_FILE", filepath.Join(configDir, "lh2monitor.log"))
	t.Setenv("LH2MON_DAEMON_PID_FILE", filepath.Join(configDir, "daemon.pid"))
	t.Setenv("LH2MON_STATUS_PATH", filepath.Join(configDir, "LH2_status.txt"))
	t.Setenv("LH2MON_TRIGGERS_SKIP_PATH", filepath.Join(configDir, "skip.now"))
	t.Setenv("LH2MON_TRIGGERS_CANCEL_PATH", filepath.Join(configDir, "cancel.now"))
	t.Setenv("LH2MON_TRIGGERS_EXTEND_PATH", filepath.Join(configDir, "extend.now"))

	config.Reset()
	if err := config.Init(); err != nil {
		t.Fatalf("failed to initialize test config: %v", err)
	}

	env := &TestEnv{
		t:         t,
		ConfigDir: configDir,
	}

	t.Cleanup(func() {
		config.Reset()
	})

	return env
}

// PIDFilePath returns the daemon PID file path used by the environment.
func (e *TestEnv) PIDFilePath() string {
	return filepath.Join(e.ConfigDir, "daemon.pid")
}

// StatusPath returns the status file path used by the environment.
func (e *TestEnv) StatusPath() string {
	return filepath.Join(e.ConfigDir, "LH2_status.txt")
}

// WriteStatus writes a status file with the leak flag set to value.
func (e *TestEnv) WriteStatus(value string) {
	e.t.Helper()
	e.CreateTestFile(e.ConfigDir, "LH2_status.txt", "Temp_Target: 20.1\nAlert_H2leak: "+value+"\n")
}

// CreateTestFile creates a test file with the given content.
// Returns the absolute path to the created file.
func (e *TestEnv) CreateTestFile(dir, name, content string) string {
	e.t.Helper()

	filePath := filepath.Join(dir, name)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to create test file %s: %v", filePath, err)
	}
	return filePath
}
