// Package actuate provides commands that drive shutdown hardware by hand.
package actuate

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/cmd/actuate/subcommands"
)

// ActuateCmd is the parent command for manual actuation.
var ActuateCmd = &cobra.Command{
	Use:   "actuate",
	Short: "Run shutdown steps by hand",
	Long: "Run shutdown steps by hand.\n\n" +
		"Runs a single step of the configured shutdown plan, or switches the main " +
		"power supply on or off, without raising an alert or opening a wait window. " +
		"Steps run once; the retry policy of the plan is not applied.",
}

func init() {
	ActuateCmd.AddCommand(subcommands.ListCmd)
	ActuateCmd.AddCommand(subcommands.RunCmd)
	ActuateCmd.AddCommand(subcommands.PSUCmd)
}
