// Package subcommands provides the daemon subcommands (start, stop, status).
package subcommands

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/daemon"
)

// Helper functions shared across daemon subcommands.

func isQuiet(cmd *cobra.Command) bool {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return false
	}
	return quiet
}

// pidFile returns the PID file named by the current config.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(config.ExpandHome(config.Get().Daemon.PIDFile))
}
