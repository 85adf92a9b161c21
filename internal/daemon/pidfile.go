package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrDaemonAlreadyRunning indicates that another monitor process holds the PID file.
var ErrDaemonAlreadyRunning = errors.New("monitor already running")

// PIDFile guards against two monitors driving the same hardware.
type PIDFile struct {
	path string
}

// NewPIDFile creates a PIDFile at path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the path to the PID file.
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current PID via a temporary file and rename.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("failed to create PID file directory; %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write temporary PID file; %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename PID file; %w", err)
	}
	return nil
}

// Read returns the PID stored in the file.
func (p *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file; %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	if pidStr == "" {
		return 0, errors.New("empty PID file")
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file; %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID %d; must be positive", pid)
	}
	return pid, nil
}

// Remove deletes the PID file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file; %w", err)
	}
	return nil
}

// Owner returns the PID of the running process holding the file. ok is false
// when there is no file or its process is gone.
func (p *PIDFile) Owner() (pid int, ok bool, err error) {
	pid, err = p.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}

	alive, err := processAlive(pid)
	if err != nil {
		return pid, false, err
	}
	return pid, alive, nil
}

// IsStale reports whether the file names a process that is no longer running.
// A missing file is not stale.
func (p *PIDFile) IsStale() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if _, statErr := os.Stat(p.path); os.IsNotExist(statErr) {
			return false, nil
		}
		return false, fmt.Errorf("PID file exists but unreadable; %w", err)
	}

	alive, err := processAlive(pid)
	if err != nil {
		return false, err
	}
	return !alive, nil
}

// CheckAndClaim writes the current PID unless a live process already holds
// the file. A stale file is replaced.
func (p *PIDFile) CheckAndClaim() error {
	if _, err := os.Stat(p.path); os.IsNotExist(err) {
		return p.Write()
	}

	pid, alive, err := p.Owner()
	if err != nil {
		return fmt.Errorf("failed to check PID file owner; %w", err)
	}
	if alive {
		return fmt.Errorf("%w (pid %d)", ErrDaemonAlreadyRunning, pid)
	}

	if err := p.Remove(); err != nil {
		return fmt.Errorf("failed to remove stale PID file; %w", err)
	}
	return p.Write()
}

// processAlive probes pid with signal 0. EPERM means the process exists.
func processAlive(pid int) (bool, error) {
	err := syscall.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, syscall.ESRCH):
		return false, nil
	case errors.Is(err, syscall.EPERM):
		return true, nil
	default:
		return false, fmt.Errorf("failed to check process; %w", err)
	}
}
