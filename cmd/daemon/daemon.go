// Package daemon provides the daemon parent command and subcommands.
package daemon

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/cmd/daemon/subcommands"
)

// DaemonCmd is the parent command for all daemon-related subcommands.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run and inspect the leak monitor",
	Long: "Run and inspect the leak monitor.\n\n" +
		"The daemon polls the LH2 status file, runs the shutdown sequence when the " +
		"leak flag rises and exposes health, status and trigger endpoints over HTTP. " +
		"Only one monitor may run per PID file.",
}

func init() {
	DaemonCmd.AddCommand(subcommands.StartCmd)
	DaemonCmd.AddCommand(subcommands.StopCmd)
	DaemonCmd.AddCommand(subcommands.StatusCmd)
	DaemonCmd.AddCommand(subcommands.ServiceCmd)
}
