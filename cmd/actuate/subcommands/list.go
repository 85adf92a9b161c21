package subcommands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
)

// ListCmd prints the configured shutdown plan.
var ListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the steps of the shutdown plan",
	Long:    "List the steps of the shutdown plan in execution order.\n\nGated steps run after the wait window.",
	Example: `  lh2monitor actuate list`,
	Args:    cobra.NoArgs,
	PreRunE: validateActuate,
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	listSteps(cmd.OutOrStdout(), config.Get().Sequence.Steps)
	return nil
}

func listSteps(out io.Writer, steps []config.StepConfig) {
	for i, sc := range steps {
		gate := "immediate"
		if sc.Gated {
			gate = "after wait"
		}
		policy := sc.Policy
		if policy == "" {
			policy = "fail_fast"
		}
		fmt.Fprintf(out, "%d. %-12s %-10s %-10s %-13s %s\n",
			i+1, sc.ID, sc.Kind, gate, policy, stepTarget(sc))
	}
}

func stepTarget(sc config.StepConfig) string {
	switch sc.Kind {
	case config.StepKindSCPI:
		return sc.Address + " " + sc.Action
	case config.StepKindCommand:
		return strings.TrimSpace(sc.Path + " " + strings.Join(sc.Args, " "))
	default:
		return strings.Join(sc.Hosts, ", ")
	}
}
