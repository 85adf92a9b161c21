package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/cmd/actuate"
	configcmd "github.com/leefowlercu/lh2-monitor/cmd/config"
	daemoncmd "github.com/leefowlercu/lh2-monitor/cmd/daemon"
	triggercmd "github.com/leefowlercu/lh2-monitor/cmd/trigger"
	versioncmd "github.com/leefowlercu/lh2-monitor/cmd/version"
	"github.com/leefowlercu/lh2-monitor/internal/cmdutil"
	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/logging"
)

// logManager is created in bootstrap mode and upgraded after config loads.
var logManager *logging.Manager

var rootCmd = &cobra.Command{
	Use:   "lh2monitor",
	Short: "Liquid hydrogen leak monitor with staged equipment shutdown",
	Long: "lh2monitor watches the LH2 target status file for the leak alert flag.\n\n" +
		"When the flag rises it switches off detector high voltage, waits for an operator " +
		"window that can be skipped, cancelled or extended with trigger files, then powers " +
		"down USB hubs and the main power supply. Every step and its outcome is reported " +
		"to the configured chat webhook.",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())
	cmdutil.SetLogManager(logManager)

	rootCmd.AddCommand(daemoncmd.DaemonCmd)
	rootCmd.AddCommand(triggercmd.TriggerCmd)
	rootCmd.AddCommand(actuate.ActuateCmd)
	rootCmd.AddCommand(configcmd.ConfigCmd)
	rootCmd.AddCommand(versioncmd.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := config.Init(); err != nil {
		return err
	}

	cfg := config.Get()
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok && cfg.LogLevel != "" {
		logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
	}

	if err := logManager.Upgrade(config.ExpandHome(cfg.LogFile), level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
		logManager.SetLevel(level)
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := rootCmd.Execute()
	if err != nil {
		cmd, _, _ := rootCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = rootCmd
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Fprintln(os.Stderr)
			cmd.SetOut(os.Stderr)
			_ = cmd.Usage()
		}
		return err
	}

	return nil
}
