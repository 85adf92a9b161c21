package servicemanager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// systemdUnitTemplate runs the monitor as a Type=notify service so systemd
// knows when polling has started and can enforce the watchdog.
const systemdUnitTemplate = `[Unit]
Description=LH2 target leak monitor
After=network-online.target
Wants=network-online.target

[Service]
Type=notify
NotifyAccess=main
ExecStart={{.BinaryPath}} daemon start
ExecReload=/bin/kill -HUP $MAINPID
{{- if .ConfigDir}}
Environment=LH2MON_CONFIG_DIR={{.ConfigDir}}
{{- end}}
{{- if .WatchdogSec}}
WatchdogSec={{.WatchdogSec}}
{{- end}}
Restart=always
RestartSec=5
TimeoutStopSec={{.TimeoutStopSec}}

[Install]
WantedBy={{.WantedBy}}
`

// UnitOptions configures the generated unit file.
type UnitOptions struct {
	BinaryPath string

	// ConfigDir is exported as LH2MON_CONFIG_DIR when set.
	ConfigDir string

	// WatchdogSec enables the systemd watchdog when positive.
	WatchdogSec int

	// TimeoutStopSec bounds a graceful stop; a running shutdown sequence
	// finishes its current step first.
	TimeoutStopSec int
}

// Systemd manages the lh2monitor unit through systemctl.
type Systemd struct {
	scope    Scope
	unitDir  string
	executor CommandExecutor
}

// SystemdOption configures a Systemd manager.
type SystemdOption func(*Systemd)

// WithExecutor replaces the command executor.
func WithExecutor(e CommandExecutor) SystemdOption {
	return func(s *Systemd) {
		s.executor = e
	}
}

// WithUnitDir overrides the directory the unit file is written to.
func WithUnitDir(dir string) SystemdOption {
	return func(s *Systemd) {
		s.unitDir = dir
	}
}

// NewSystemd creates a manager for scope.
func NewSystemd(scope Scope, opts ...SystemdOption) (*Systemd, error) {
	s := &Systemd{
		scope:    scope,
		executor: NewCommandExecutor(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.unitDir == "" {
		dir, err := defaultUnitDir(scope)
		if err != nil {
			return nil, err
		}
		s.unitDir = dir
	}

	return s, nil
}

func defaultUnitDir(scope Scope) (string, error) {
	switch scope {
	case ScopeSystem:
		return "/etc/systemd/system", nil
	case ScopeUser:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory; %w", err)
		}
		return filepath.Join(home, ".config", "systemd", "user"), nil
	default:
		return "", fmt.Errorf("unknown systemd scope %q", scope)
	}
}

// UnitPath returns the path of the unit file.
func (s *Systemd) UnitPath() string {
	return filepath.Join(s.unitDir, ServiceName)
}

// GenerateUnit renders the unit file for opts.
func GenerateUnit(scope Scope, opts UnitOptions) (string, error) {
	if opts.BinaryPath == "" {
		opts.BinaryPath = BinaryPath()
	}
	if opts.TimeoutStopSec <= 0 {
		opts.TimeoutStopSec = 90
	}

	data := struct {
		UnitOptions
		WantedBy string
	}{
		UnitOptions: opts,
		WantedBy:    "default.target",
	}
	if scope == ScopeSystem {
		data.WantedBy = "multi-user.target"
	}

	tmpl, err := template.New("unit").Parse(systemdUnitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template; %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute unit template; %w", err)
	}

	return buf.String(), nil
}

// Install writes the unit file and enables auto-start.
func (s *Systemd) Install(ctx context.Context, opts UnitOptions) error {
	content, err := GenerateUnit(s.scope, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.unitDir, 0755); err != nil {
		return fmt.Errorf("failed to create systemd unit directory; %w", err)
	}

	if err := os.WriteFile(s.UnitPath(), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write unit file; %w", err)
	}

	if _, err := s.systemctl(ctx, "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd daemon; %w", err)
	}

	if _, err := s.systemctl(ctx, "enable", ServiceName); err != nil {
		return fmt.Errorf("failed to enable service; %w", err)
	}

	return nil
}

// Uninstall stops the service, disables auto-start, and removes the unit file.
func (s *Systemd) Uninstall(ctx context.Context) error {
	// Not running or not enabled is fine here
	_, _ = s.systemctl(ctx, "stop", ServiceName)
	_, _ = s.systemctl(ctx, "disable", ServiceName)

	if err := os.Remove(s.UnitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file; %w", err)
	}

	_, _ = s.systemctl(ctx, "daemon-reload")

	return nil
}

// IsInstalled checks if the unit file exists.
func (s *Systemd) IsInstalled() (bool, error) {
	_, err := os.Stat(s.UnitPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Status returns what systemd reports about the unit.
func (s *Systemd) Status(ctx context.Context) (ServiceStatus, error) {
	status := ServiceStatus{State: ServiceStateNotInstalled}

	installed, err := s.IsInstalled()
	if err != nil {
		return status, err
	}
	if !installed {
		return status, nil
	}

	output, err := s.systemctl(ctx, "show", ServiceName,
		"--property=ActiveState,MainPID,UnitFileState")
	if err != nil {
		status.State = ServiceStateDisabled
		return status, nil
	}

	return parseSystemctlOutput(string(output)), nil
}

func (s *Systemd) systemctl(ctx context.Context, args ...string) ([]byte, error) {
	if s.scope == ScopeUser {
		args = append([]string{"--user"}, args...)
	}
	out, err := s.executor.Run(ctx, "systemctl", args...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// parseSystemctlOutput parses the output of systemctl show.
func parseSystemctlOutput(output string) ServiceStatus {
	status := ServiceStatus{State: ServiceStateDisabled}

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}

		switch key {
		case "ActiveState":
			status.ActiveState = value
			status.Running = value == "active" || value == "activating" || value == "reloading"
		case "MainPID":
			if p, err := strconv.Atoi(value); err == nil && p > 0 {
				status.PID = p
			}
		case "UnitFileState":
			switch value {
			case "enabled", "enabled-runtime":
				status.State = ServiceStateEnabled
			case "disabled":
				status.State = ServiceStateDisabled
			}
		}
	}

	return status
}
