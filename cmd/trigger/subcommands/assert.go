package subcommands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

// SkipCmd ends the wait window early.
var SkipCmd = newAssertCmd(trigger.Skip,
	"Skip the rest of the wait and run the remaining steps",
	"Skip the rest of the wait and run the remaining steps.\n\n"+
		"The monitor pauses briefly, then powers down the USB hubs and the main "+
		"supply without waiting for the window to expire.",
)

// CancelCmd stops the remaining steps.
var CancelCmd = newAssertCmd(trigger.Cancel,
	"Cancel the remaining shutdown steps",
	"Cancel the remaining shutdown steps.\n\n"+
		"Steps already run (detector HV off) are not undone. Steps after the wait "+
		"window are reported as not executed. Cancel wins over skip and extend when "+
		"several markers are present.",
)

// ExtendCmd restarts the wait window.
var ExtendCmd = newAssertCmd(trigger.Extend,
	"Restart the wait window with its full duration",
	"Restart the wait window with its full duration.\n\n"+
		"The remaining time is reset to the configured wait, not added to. Extend "+
		"may be used any number of times.",
)

func newAssertCmd(kind trigger.Kind, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.String(),
		Short: short,
		Long:  long,
		Example: fmt.Sprintf(`  # Write the %[1]s marker
  lh2monitor trigger %[1]s

  # Ask the running monitor to write it
  lh2monitor trigger %[1]s --via-daemon`, kind),
		Args:    cobra.NoArgs,
		PreRunE: validateTrigger,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := resolveMarkers(cmd)
			if err != nil {
				return err
			}
			return assertMarker(cmd.Context(), cmd.OutOrStdout(), m, kind)
		},
	}
	addViaDaemonFlag(cmd)
	return cmd
}

func assertMarker(ctx context.Context, out io.Writer, m markers, kind trigger.Kind) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := m.Assert(ctx, kind); err != nil {
		return fmt.Errorf("failed to assert %s trigger; %w", kind, err)
	}
	fmt.Fprintf(out, "%s trigger set\n", kind)
	return nil
}
