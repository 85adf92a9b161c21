package subcommands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
)

var (
	showRaw bool
)

// redacted replaces secrets in displayed configuration.
const redacted = "********"

// ShowCmd displays the current configuration.
var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Long: "Display the current configuration.\n\n" +
		"Shows the effective configuration with defaults, environment overrides " +
		"and the built-in shutdown plan applied. The webhook URL is redacted. Use " +
		"--raw to print the config file exactly as written.",
	Example: `  # Show effective configuration
  lh2monitor config show

  # Show the config file as written
  lh2monitor config show --raw`,
	PreRunE: validateShow,
	RunE:    runShow,
}

func init() {
	ShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Show the config file contents (no defaults)")
}

func validateShow(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if showRaw {
		return showRawConfig(out, config.GetConfigPath())
	}
	return showEffectiveConfig(out, config.Get(), config.ConfigFilePath())
}

func showRawConfig(out io.Writer, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "# No configuration file found")
			fmt.Fprintf(out, "# Default location: %s\n", configPath)
			return nil
		}
		return fmt.Errorf("failed to read config file; %w", err)
	}

	fmt.Fprintf(out, "# Configuration file: %s\n", configPath)
	fmt.Fprintln(out, string(data))
	return nil
}

func showEffectiveConfig(out io.Writer, cfg *config.Config, loadedFrom string) error {
	display := *cfg
	if display.Notify.WebhookURL != nil && *display.Notify.WebhookURL != "" {
		masked := redacted
		display.Notify.WebhookURL = &masked
	}

	data, err := config.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration; %w", err)
	}

	if loadedFrom == "" {
		loadedFrom = "none (defaults only)"
	}
	fmt.Fprintln(out, "# Effective configuration (with defaults)")
	fmt.Fprintf(out, "# Config file: %s\n", loadedFrom)
	fmt.Fprintln(out, string(data))
	return nil
}
