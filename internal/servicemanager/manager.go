// Package servicemanager installs the monitor as a systemd service.
package servicemanager

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// ServiceName is the systemd unit name.
const ServiceName = "lh2monitor.service"

// ServiceState represents the installation state of the service.
type ServiceState string

const (
	// ServiceStateEnabled indicates the service is installed and enabled for auto-start.
	ServiceStateEnabled ServiceState = "enabled"

	// ServiceStateDisabled indicates the service is installed but not enabled for auto-start.
	ServiceStateDisabled ServiceState = "disabled"

	// ServiceStateNotInstalled indicates the service is not installed.
	ServiceStateNotInstalled ServiceState = "not-installed"
)

// String returns the service state as a string.
func (s ServiceState) String() string {
	return string(s)
}

// Scope selects between a per-user and a system-wide unit.
type Scope string

const (
	// ScopeUser installs under ~/.config/systemd/user and uses systemctl --user.
	ScopeUser Scope = "user"

	// ScopeSystem installs under /etc/systemd/system.
	ScopeSystem Scope = "system"
)

// ServiceStatus is what systemd reports about the unit.
type ServiceStatus struct {
	State       ServiceState `json:"state"`
	ActiveState string       `json:"active_state,omitempty"`
	Running     bool         `json:"running"`
	PID         int          `json:"pid,omitempty"`
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// defaultExecutor implements CommandExecutor using os/exec.
type defaultExecutor struct{}

// Run executes a command using os/exec.
func (e *defaultExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// NewCommandExecutor returns the default command executor.
func NewCommandExecutor() CommandExecutor {
	return &defaultExecutor{}
}

// BinaryPath returns the path of the running lh2monitor binary, falling back
// to a PATH lookup.
func BinaryPath() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			return resolved
		}
		return exe
	}
	if path, err := exec.LookPath("lh2monitor"); err == nil {
		return path
	}
	return "lh2monitor"
}
