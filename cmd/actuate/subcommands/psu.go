package subcommands

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/actuator"
	"github.com/leefowlercu/lh2-monitor/internal/config"
)

var (
	psuAddress string
	psuVoltage float64
	psuTimeout time.Duration
)

// ErrNoSupply is returned when no supply address is given or configured.
var ErrNoSupply = errors.New("no SCPI supply address; pass --address or configure an scpi step")

// PSUCmd switches the main power supply output.
var PSUCmd = &cobra.Command{
	Use:       "psu on|off",
	Short:     "Switch the main power supply output on or off",
	ValidArgs: []string{"on", "off"},
	Long: "Switch the main power supply output on or off.\n\n" +
		"Talks SCPI to the supply named by the first scpi step of the shutdown plan " +
		"unless --address is given. Switching on programs the voltage first.",
	Example: `  # Restore the supply after a leak alarm
  lh2monitor actuate psu on --voltage 5

  # Switch it off
  lh2monitor actuate psu off`,
	Args:    cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	PreRunE: validateActuate,
	RunE:    runPSU,
}

func init() {
	PSUCmd.Flags().StringVar(&psuAddress, "address", "", "Supply host:port (default from the shutdown plan)")
	PSUCmd.Flags().Float64Var(&psuVoltage, "voltage", actuator.DefaultSCPIVoltage, "Output voltage when switching on")
	PSUCmd.Flags().DurationVar(&psuTimeout, "timeout", 10*time.Second, "Abort after this long")
}

func runPSU(cmd *cobra.Command, args []string) error {
	addr, err := supplyAddress(psuAddress, config.Get().Sequence.Steps)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, psuTimeout)
	defer cancel()

	supply := actuator.NewSCPI(addr, actuator.WithSCPILogger(slog.Default()))

	switch args[0] {
	case "on":
		if err := supply.On(ctx, psuVoltage); err != nil {
			return fmt.Errorf("failed to switch supply on; %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Supply %s on at %.2f V\n", addr, psuVoltage)
	default:
		if err := supply.Off(ctx); err != nil {
			return fmt.Errorf("failed to switch supply off; %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Supply %s off\n", addr)
	}
	return nil
}

// supplyAddress returns override, or the address of the first scpi step.
func supplyAddress(override string, steps []config.StepConfig) (string, error) {
	if override != "" {
		return override, nil
	}
	for _, sc := range steps {
		if sc.Kind == config.StepKindSCPI && sc.Address != "" {
			return sc.Address, nil
		}
	}
	return "", ErrNoSupply
}
