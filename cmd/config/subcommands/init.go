package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
)

var (
	initForce bool
	initPath  string
)

// InitCmd writes a configuration file populated with the defaults.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: "Write a default configuration file.\n\n" +
		"Writes every setting with its default value, including the built-in " +
		"shutdown plan (HV Off, uhubctl, Kikusui Off), so the plan can be edited " +
		"in place. The webhook URL is left unset; provide it through the environment " +
		"variable named by notify.webhook_url_env or a .env file next to the config.",
	Example: `  # Write ~/.config/lh2monitor/config.yaml
  lh2monitor config init

  # Overwrite an existing file
  lh2monitor config init --force

  # Write somewhere else
  lh2monitor config init --path /etc/lh2monitor/config.yaml`,
	PreRunE: validateInit,
	RunE:    runInit,
}

func init() {
	InitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	InitCmd.Flags().StringVar(&initPath, "path", "", "Config file to write (default ~/.config/lh2monitor/config.yaml)")
}

func validateInit(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if err := writeDefaultConfig(path, initForce); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", config.ExpandHome(path))
	return nil
}

// writeDefaultConfig writes the defaults to path unless a file exists there
// and force is false.
func writeDefaultConfig(path string, force bool) error {
	if config.ConfigExistsAt(path) && !force {
		return fmt.Errorf("config file %s already exists; use --force to overwrite", path)
	}

	cfg := config.LoadWithDefaults()
	cfg.Sequence.Steps = config.DefaultSteps()

	if err := config.Write(cfg, path); err != nil {
		return fmt.Errorf("failed to write config; %w", err)
	}
	return nil
}
