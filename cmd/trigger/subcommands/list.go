package subcommands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
	"github.com/leefowlercu/lh2-monitor/internal/tui/styles"
)

// ListCmd shows the marker paths and which markers are present.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show trigger marker paths and which are set",
	Long: "Show trigger marker paths and which are set.\n\n" +
		"Markers are listed in the order the monitor checks them: cancel, skip, extend.",
	Example: `  lh2monitor trigger list`,
	Args:    cobra.NoArgs,
	PreRunE: validateTrigger,
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := fileStore(config.Get().Triggers)
	if err != nil {
		return err
	}
	listMarkers(cmd.OutOrStdout(), store)
	return nil
}

func listMarkers(out io.Writer, store *trigger.FileStore) {
	paths := store.Paths()
	for _, kind := range trigger.Kinds {
		state, indicator := "clear", styles.StepSkipped
		if store.Present(kind) {
			state, indicator = "set", styles.StepOK
		}
		fmt.Fprintf(out, "%s %-6s %-5s %s\n", indicator, kind, state, paths.For(kind))
	}
}
