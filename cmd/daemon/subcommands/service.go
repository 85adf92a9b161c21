package subcommands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/servicemanager"
)

// ServiceCmd manages the systemd unit that runs the monitor.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install or remove the systemd unit for the monitor",
	Long: "Install or remove the systemd unit for the monitor.\n\n" +
		"The unit runs 'lh2monitor daemon start' as a Type=notify service with " +
		"ExecReload sending SIGHUP. Use --system to install a system-wide unit " +
		"under /etc/systemd/system; the default is a per-user unit.",
}

var (
	serviceSystem      bool
	serviceWatchdogSec int
	serviceStopSec     int
	serviceJSON        bool
)

// ServiceInstallCmd writes and enables the unit.
var ServiceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Write and enable the systemd unit",
	Example: `  # Per-user unit with a 30s watchdog
  lh2monitor daemon service install --watchdog-sec 30

  # System-wide unit
  sudo lh2monitor daemon service install --system`,
	PreRunE: validateService,
	RunE:    runServiceInstall,
}

// ServiceUninstallCmd stops, disables and removes the unit.
var ServiceUninstallCmd = &cobra.Command{
	Use:     "uninstall",
	Short:   "Stop, disable and remove the systemd unit",
	PreRunE: validateService,
	RunE:    runServiceUninstall,
}

// ServiceStatusCmd reports what systemd knows about the unit.
var ServiceStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the systemd unit state",
	PreRunE: validateService,
	RunE:    runServiceStatus,
}

func init() {
	ServiceCmd.PersistentFlags().BoolVar(&serviceSystem, "system", false,
		"Manage the system-wide unit instead of the per-user unit")
	ServiceInstallCmd.Flags().IntVar(&serviceWatchdogSec, "watchdog-sec", 30,
		"systemd watchdog period in seconds (0 disables)")
	ServiceInstallCmd.Flags().IntVar(&serviceStopSec, "timeout-stop-sec", 90,
		"Seconds systemd waits for a graceful stop")
	ServiceStatusCmd.Flags().BoolVar(&serviceJSON, "json", false, "Print unit state as JSON")

	ServiceCmd.AddCommand(ServiceInstallCmd)
	ServiceCmd.AddCommand(ServiceUninstallCmd)
	ServiceCmd.AddCommand(ServiceStatusCmd)
}

func validateService(cmd *cobra.Command, args []string) error {
	if serviceWatchdogSec < 0 {
		return errors.New("--watchdog-sec must not be negative")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

// unitManager is the subset of servicemanager.Systemd the commands use.
type unitManager interface {
	Install(ctx context.Context, opts servicemanager.UnitOptions) error
	Uninstall(ctx context.Context) error
	Status(ctx context.Context) (servicemanager.ServiceStatus, error)
	UnitPath() string
}

// newUnitManager is replaced in tests.
var newUnitManager = func() (unitManager, error) {
	scope := servicemanager.ScopeUser
	if serviceSystem {
		scope = servicemanager.ScopeSystem
	}
	return servicemanager.NewSystemd(scope)
}

func runServiceInstall(cmd *cobra.Command, args []string) error {
	m, err := newUnitManager()
	if err != nil {
		return err
	}

	opts := servicemanager.UnitOptions{
		BinaryPath:     servicemanager.BinaryPath(),
		ConfigDir:      os.Getenv(config.ConfigDirEnv),
		WatchdogSec:    serviceWatchdogSec,
		TimeoutStopSec: serviceStopSec,
	}
	return installService(cmd.Context(), cmd.OutOrStdout(), m, opts)
}

func installService(ctx context.Context, out io.Writer, m unitManager, opts servicemanager.UnitOptions) error {
	if err := m.Install(ctx, opts); err != nil {
		return fmt.Errorf("failed to install service; %w", err)
	}
	fmt.Fprintf(out, "Installed %s\n", m.UnitPath())
	fmt.Fprintf(out, "Start it with: %s start %s\n", systemctlCommand(), servicemanager.ServiceName)
	return nil
}

func runServiceUninstall(cmd *cobra.Command, args []string) error {
	m, err := newUnitManager()
	if err != nil {
		return err
	}
	if err := m.Uninstall(cmd.Context()); err != nil {
		return fmt.Errorf("failed to uninstall service; %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", m.UnitPath())
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	m, err := newUnitManager()
	if err != nil {
		return err
	}
	return printServiceStatus(cmd.Context(), cmd.OutOrStdout(), m, serviceJSON)
}

func printServiceStatus(ctx context.Context, out io.Writer, m unitManager, asJSON bool) error {
	st, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get service status; %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "Unit: %s (%s)\n", servicemanager.ServiceName, st.State)
	if st.State == servicemanager.ServiceStateNotInstalled {
		return nil
	}
	fmt.Fprintf(out, "Path: %s\n", m.UnitPath())
	if st.Running {
		fmt.Fprintf(out, "Active: %s (PID %d)\n", st.ActiveState, st.PID)
	} else {
		fmt.Fprintf(out, "Active: %s\n", st.ActiveState)
	}
	return nil
}

func systemctlCommand() string {
	if serviceSystem {
		return "systemctl"
	}
	return "systemctl --user"
}
