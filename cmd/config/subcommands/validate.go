package subcommands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("configuration is invalid")

// ValidateCmd validates a configuration file.
var ValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a configuration file",
	Long: "Validate a configuration file.\n\n" +
		"Checks the file for syntax errors, validates every setting and builds the " +
		"shutdown plan without running it. Without an argument the active config " +
		"file is checked. Returns exit code 0 if valid, 1 if invalid.",
	Example: `  # Validate the active configuration
  lh2monitor config validate

  # Validate a candidate file before installing it
  lh2monitor config validate ./config.yaml`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateValidate,
	RunE:    runValidate,
}

func validateValidate(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	configPath := config.GetConfigPath()
	if len(args) == 1 {
		configPath = args[0]
	}

	if !config.ConfigExistsAt(configPath) {
		if len(args) == 1 {
			return fmt.Errorf("config file %s does not exist", configPath)
		}
		fmt.Fprintf(out, "No configuration file found at %s\n", configPath)
		fmt.Fprintln(out, "Using default configuration values.")
		return nil
	}

	if err := validateFile(configPath); err != nil {
		fmt.Fprintln(out, "Configuration validation failed:")
		fmt.Fprintf(out, "  %v\n", err)
		return ErrInvalidConfig
	}

	fmt.Fprintf(out, "Configuration is valid: %s\n", configPath)
	return nil
}

// validateFile loads path (which validates it) and builds its shutdown plan.
func validateFile(path string) error {
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	if _, err := monitor.BuildSteps(cfg.Sequence); err != nil {
		return err
	}
	return nil
}
