// Package subcommands provides the actuate subcommands.
package subcommands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/config"
)

func validateActuate(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

// findStep returns the configured step with id.
func findStep(steps []config.StepConfig, id string) (config.StepConfig, error) {
	for _, sc := range steps {
		if sc.ID == id {
			return sc, nil
		}
	}
	ids := make([]string, 0, len(steps))
	for _, sc := range steps {
		ids = append(ids, sc.ID)
	}
	return config.StepConfig{}, fmt.Errorf("no step %q in the shutdown plan; have %v", id, ids)
}

// commandContext bounds ctx by timeout when it is positive.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
