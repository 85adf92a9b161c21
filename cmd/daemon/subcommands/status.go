package subcommands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/daemon"
	"github.com/leefowlercu/lh2-monitor/internal/daemonclient"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
	"github.com/leefowlercu/lh2-monitor/internal/sequence"
	"github.com/leefowlercu/lh2-monitor/internal/tui/styles"
)

// DaemonStatus holds the status information about the monitor process.
type DaemonStatus struct {
	Running      bool                 `json:"running"`
	PID          int                  `json:"pid,omitempty"`
	StalePIDFile bool                 `json:"stale_pid_file,omitempty"`
	Health       *daemon.HealthStatus `json:"health,omitempty"`
	Monitor      *monitor.Snapshot    `json:"monitor,omitempty"`
}

// StatusCmd shows the monitor status.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor status, alert state and the last sequence",
	Long: "Show monitor status, alert state and the last sequence.\n\n" +
		"Displays whether the monitor is running, its PID, component health, the " +
		"current leak flag, any open wait window and the outcome of the most recent " +
		"shutdown sequence.",
	Example: `  # Check monitor status
  lh2monitor daemon status

  # Machine-readable output
  lh2monitor daemon status --json`,
	PreRunE: validateStatus,
	RunE:    runStatus,
}

var (
	statusJSON  bool
	statusQuiet bool
)

func init() {
	StatusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")
	StatusCmd.Flags().BoolVarP(&statusQuiet, "quiet", "q", false, "Print nothing; exit status only")
}

func validateStatus(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	client := daemonclient.New(config.Get().Daemon)
	status, err := getDaemonStatus(cmd.Context(), pidFile(), client)
	if err != nil {
		return fmt.Errorf("failed to get monitor status; %w", err)
	}

	if isQuiet(cmd) {
		return nil
	}

	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintln(out, formatStatus(status))
	return nil
}

// statusClient is the subset of the daemon client used by status.
type statusClient interface {
	Ready(ctx context.Context) (*daemon.HealthStatus, error)
	Status(ctx context.Context) (*monitor.Snapshot, error)
}

// getDaemonStatus retrieves the current status of the monitor.
func getDaemonStatus(ctx context.Context, pf *daemon.PIDFile, client statusClient) (*DaemonStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	status := &DaemonStatus{}

	pid, alive, err := pf.Owner()
	if err != nil {
		return nil, fmt.Errorf("failed to read PID file; %w", err)
	}
	status.PID = pid

	if !alive {
		status.StalePIDFile = pid != 0
		return status, nil
	}
	status.Running = true

	// HTTP failures leave the process facts intact
	if health, err := client.Ready(ctx); err == nil {
		status.Health = health
	}
	if snap, err := client.Status(ctx); err == nil {
		status.Monitor = snap
	}

	return status, nil
}

// formatStatus formats the monitor status for display.
func formatStatus(status *DaemonStatus) string {
	var sb strings.Builder

	if !status.Running {
		sb.WriteString("Monitor: not running")
		if status.StalePIDFile {
			sb.WriteString(fmt.Sprintf(" (stale PID file with PID %d)", status.PID))
		}
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Monitor: running (PID %d)", status.PID))

	if status.Health != nil {
		sb.WriteString(fmt.Sprintf("\nHealth: %s", status.Health.Status))
		sb.WriteString(fmt.Sprintf("\nReady: %v", status.Health.Ready))

		if len(status.Health.Components) > 0 {
			sb.WriteString("\nComponents:")
			for _, name := range slices.Sorted(maps.Keys(status.Health.Components)) {
				health := status.Health.Components[name]
				sb.WriteString(fmt.Sprintf("\n  - %s: %s", name, health.Status))
				if health.Error != "" {
					sb.WriteString(fmt.Sprintf(" (%s)", health.Error))
				}
			}
		}
	}

	if snap := status.Monitor; snap != nil {
		sb.WriteString(fmt.Sprintf("\nAlert: %s", snap.Status.State))
		if !snap.Status.LastCheck.IsZero() {
			sb.WriteString(fmt.Sprintf(" (checked %s)", snap.Status.LastCheck.Format(time.DateTime)))
		}
		if snap.Status.LastError != "" {
			sb.WriteString(fmt.Sprintf("\nLast read error: %s", snap.Status.LastError))
		}

		if snap.SequenceRunning {
			sb.WriteString("\nSequence: running")
		} else {
			sb.WriteString("\nSequence: idle")
		}
		sb.WriteString(fmt.Sprintf(" (%d run, %d alerts ignored)", snap.Sequences, snap.IgnoredAlerts))

		if w := snap.Wait; w != nil {
			sb.WriteString(fmt.Sprintf("\nWait: %s remaining until %s",
				w.Remaining.Round(time.Second), w.Deadline.Format(time.TimeOnly)))
			if w.Extended {
				sb.WriteString(" (extended)")
			}
		}

		if r := snap.LastReport; r != nil {
			sb.WriteString(fmt.Sprintf("\nLast sequence: %s at %s",
				r.Classification, r.FinishedAt.Format(time.DateTime)))
			for _, step := range r.Steps {
				sb.WriteString(fmt.Sprintf("\n  %s %s", stepIndicator(step.Status), step.Label))
				if step.Error != "" {
					sb.WriteString(fmt.Sprintf(": %s", step.Error))
				}
			}
		}
	}

	return sb.String()
}

func stepIndicator(s sequence.Status) string {
	switch s {
	case sequence.Succeeded:
		return styles.StepOK
	case sequence.Failed:
		return styles.StepFailed
	default:
		return styles.StepSkipped
	}
}
