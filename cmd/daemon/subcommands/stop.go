package subcommands

import (
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/daemon"
)

// Errors for stop command
var (
	ErrNoDaemonRunning = errors.New("no monitor running")
	ErrStalePIDFile    = errors.New("stale PID file found and cleaned up")
	ErrStopTimeout     = errors.New("monitor did not exit before the timeout")
)

// StopCmd stops a running monitor.
var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running monitor gracefully",
	Long: "Stop the running monitor gracefully.\n\n" +
		"Sends SIGTERM to the monitor process and waits for it to exit. A shutdown " +
		"sequence in progress is allowed to finish its current step; steps that have " +
		"not started are reported as not executed.",
	Example: `  # Stop the monitor
  lh2monitor daemon stop

  # Wait up to two minutes for a running sequence to wind down
  lh2monitor daemon stop --timeout 2m`,
	PreRunE: validateStop,
	RunE:    runStop,
}

var (
	stopTimeout time.Duration
)

// stopPollInterval is how often stop checks whether the process exited.
const stopPollInterval = 100 * time.Millisecond

func init() {
	StopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second,
		"Maximum time to wait for the monitor to stop")
}

func validateStop(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if err := stopDaemon(pidFile(), syscall.SIGTERM, stopTimeout); err != nil {
		if errors.Is(err, ErrNoDaemonRunning) {
			fmt.Fprintln(out, "No monitor is running")
			return nil
		}
		if errors.Is(err, ErrStalePIDFile) {
			fmt.Fprintln(out, "Found stale PID file, cleaned up")
			return nil
		}
		return fmt.Errorf("failed to stop monitor; %w", err)
	}

	fmt.Fprintln(out, "Monitor stopped")
	return nil
}

// stopDaemon signals the process holding pf and waits up to timeout for it
// to exit.
func stopDaemon(pf *daemon.PIDFile, sig syscall.Signal, timeout time.Duration) error {
	pid, alive, err := pf.Owner()
	if err != nil {
		return fmt.Errorf("failed to read PID file; %w", err)
	}
	if pid == 0 {
		return ErrNoDaemonRunning
	}
	if !alive {
		if err := pf.Remove(); err != nil {
			return fmt.Errorf("failed to remove stale PID file; %w", err)
		}
		return ErrStalePIDFile
	}

	slog.Debug("signalling monitor", "pid", pid, "signal", sig)
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to send %s; %w", sig, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, alive, _ := pf.Owner(); !alive {
			return nil
		}
		time.Sleep(stopPollInterval)
	}

	slog.Debug("monitor did not stop within timeout", "pid", pid, "timeout", timeout)
	return fmt.Errorf("%w (pid %d, %s)", ErrStopTimeout, pid, timeout)
}
