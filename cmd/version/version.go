package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/version"
)

var (
	versionShort bool
	versionJSON  bool
)

// VersionCmd displays version and build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version and build information",
	Long: "Display version and build information.\n\n" +
		"Shows the semantic version, git commit hash, build date and Go toolchain " +
		"of the lh2monitor binary. The same version is reported on the " +
		"lh2monitor_daemon_info metric and in trace resources.",
	Example: `  # Display version information
  lh2monitor version

  # Print only the version number
  lh2monitor version --short`,
	PreRunE: validateVersion,
	RunE:    runVersion,
}

func init() {
	VersionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
	VersionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
}

func validateVersion(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	switch {
	case versionShort:
		fmt.Fprintln(out, info.Version)
	case versionJSON:
		return json.NewEncoder(out).Encode(info)
	default:
		fmt.Fprintln(out, info.String())
	}
	return nil
}
