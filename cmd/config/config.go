// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage monitor configuration",
	Long: "Manage monitor configuration.\n\n" +
		"The config command writes, shows and validates the monitor configuration. " +
		"Configuration is stored in a YAML file located at " +
		"~/.config/lh2monitor/config.yaml by default; LH2MON_CONFIG_DIR selects " +
		"another directory.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.InitCmd)
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
}
