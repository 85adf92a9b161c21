package subcommands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ClearCmd removes every trigger marker.
var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all trigger markers",
	Long: "Remove all trigger markers.\n\n" +
		"Removes the skip, cancel and extend markers that have not been consumed " +
		"yet. The monitor does the same on every start.",
	Example: `  # Remove leftover markers
  lh2monitor trigger clear`,
	Args:    cobra.NoArgs,
	PreRunE: validateTrigger,
	RunE:    runClear,
}

func init() {
	addViaDaemonFlag(ClearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	m, err := resolveMarkers(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := m.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear triggers; %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Trigger markers cleared")
	return nil
}
