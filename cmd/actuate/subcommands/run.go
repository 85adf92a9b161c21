package subcommands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
)

var runTimeout time.Duration

// RunCmd runs one step of the shutdown plan.
var RunCmd = &cobra.Command{
	Use:   "run <step-id>",
	Short: "Run one step of the shutdown plan",
	Long: "Run one step of the shutdown plan.\n\n" +
		"The step is built from the current configuration and run once. A step " +
		"with the retry_forever policy is still tried only once; use --timeout to " +
		"bound a step that may hang.",
	Example: `  # Switch off detector HV on every relay controller
  lh2monitor actuate run hv_off

  # Power down the readout USB hubs
  lh2monitor actuate run uhubctl --timeout 1m`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateActuate,
	RunE:    runRun,
}

func init() {
	RunCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "Abort the step after this long (0 disables)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd, runTimeout)
	defer cancel()
	return runStep(ctx, cmd.OutOrStdout(), config.Get().Sequence, args[0])
}

// runStep builds the step id from seq and runs it once.
func runStep(ctx context.Context, out io.Writer, seq config.SequenceConfig, id string) error {
	sc, err := findStep(seq.Steps, id)
	if err != nil {
		return err
	}

	act, err := monitor.BuildActuator(sc, seq.SSH, monitor.WithPlanLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to build step %s; %w", sc.ID, err)
	}

	start := time.Now()
	if err := act.Run(ctx); err != nil {
		return fmt.Errorf("%s failed; %w", labelOf(sc), err)
	}

	fmt.Fprintf(out, "%s completed in %s\n", labelOf(sc), time.Since(start).Round(time.Millisecond))
	return nil
}

func labelOf(sc config.StepConfig) string {
	if sc.Label != "" {
		return sc.Label
	}
	return sc.ID
}
