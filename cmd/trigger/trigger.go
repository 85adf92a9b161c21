// Package trigger provides the trigger parent command and subcommands.
package trigger

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/cmd/trigger/subcommands"
)

// TriggerCmd is the parent command for the operator trigger markers.
var TriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Steer an open wait window",
	Long: "Steer an open wait window.\n\n" +
		"After detector HV is switched off the monitor waits before powering down " +
		"USB hubs and the main supply. During that window an operator can skip the " +
		"rest of the wait, cancel the remaining steps or extend the wait by its full " +
		"duration. Each trigger creates a marker file that the monitor consumes; " +
		"markers created while no window is open are removed at the next start.",
}

func init() {
	TriggerCmd.AddCommand(subcommands.SkipCmd)
	TriggerCmd.AddCommand(subcommands.CancelCmd)
	TriggerCmd.AddCommand(subcommands.ExtendCmd)
	TriggerCmd.AddCommand(subcommands.ClearCmd)
	TriggerCmd.AddCommand(subcommands.ListCmd)
}
