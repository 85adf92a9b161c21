package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readJSONLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not valid JSON: %v\nline: %s", err, scanner.Text())
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestManager_BootstrapWritesTextToStderr(t *testing.T) {
	var stderr bytes.Buffer
	mgr := newManager(&stderr)
	defer func() { _ = mgr.Close() }()

	mgr.Logger().Info("bootstrap message", "key", "value")

	if !strings.Contains(stderr.String(), "msg=\"bootstrap message\"") {
		t.Errorf("bootstrap output = %q, want text format", stderr.String())
	}
}

func TestManager_Logger_Stable(t *testing.T) {
	mgr := NewManager()
	defer func() { _ = mgr.Close() }()

	logger := mgr.Logger()
	if err := mgr.Upgrade(filepath.Join(t.TempDir(), "m.log"), slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if mgr.Logger() != logger {
		t.Error("Manager.Logger() should return the same instance across Upgrade")
	}
}

func TestManager_Upgrade_FansOutToFileAndStderr(t *testing.T) {
	var stderr bytes.Buffer
	mgr := newManager(&stderr)
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "nested", "dir", "lh2monitor.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	mgr.Logger().With("component", "monitor").Info("alert raised", "raw", "1")

	entries := readJSONLines(t, logFile)
	if len(entries) != 1 {
		t.Fatalf("log file has %d entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "alert raised" || entries[0]["component"] != "monitor" {
		t.Errorf("log entry = %v, want msg and component", entries[0])
	}
	if !strings.Contains(stderr.String(), "alert raised") {
		t.Errorf("stderr = %q, want text copy of the record", stderr.String())
	}
}

func TestManager_Upgrade_FileOnly(t *testing.T) {
	var stderr bytes.Buffer
	mgr := newManager(&stderr)
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "quiet.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo, WithStderr(io.Discard), WithRotation(1, 1, 1)); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	mgr.Logger().Info("file only")

	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want nothing with WithStderr(io.Discard)", stderr.String())
	}
	if len(readJSONLines(t, logFile)) != 1 {
		t.Error("expected one entry in the log file")
	}
}

func TestManager_SetLevel(t *testing.T) {
	mgr := newManager(io.Discard)
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "level.log")
	if err := mgr.Upgrade(logFile, slog.LevelWarn); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	mgr.Logger().Info("filtered")
	mgr.SetLevel(slog.LevelDebug)
	mgr.Logger().Debug("kept")

	if mgr.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", mgr.Level())
	}

	entries := readJSONLines(t, logFile)
	if len(entries) != 1 || entries[0]["msg"] != "kept" {
		t.Errorf("entries = %v, want only the debug record", entries)
	}
}

func TestManager_Upgrade_PathIsDirectory(t *testing.T) {
	mgr := newManager(io.Discard)
	defer func() { _ = mgr.Close() }()

	if err := mgr.Upgrade(t.TempDir(), slog.LevelInfo); err == nil {
		t.Error("Upgrade() with a directory path should fail")
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr := newManager(io.Discard)
	if err := mgr.Upgrade(filepath.Join(t.TempDir(), "c.log"), slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
