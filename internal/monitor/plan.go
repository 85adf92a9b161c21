package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/actuator"
	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/sequence"
)

// PlanOption configures BuildSteps.
type PlanOption func(*planner)

// WithPlanLogger sets the logger handed to every actuator.
func WithPlanLogger(logger *slog.Logger) PlanOption {
	return func(p *planner) {
		p.logger = logger
	}
}

// WithRelayClient sets the HTTP client used by hv_relay steps.
func WithRelayClient(c *http.Client) PlanOption {
	return func(p *planner) {
		p.relayClient = c
	}
}

type planner struct {
	ssh         config.SSHConfig
	logger      *slog.Logger
	relayClient *http.Client
}

// BuildSteps converts the configured plan into sequencer steps. Actuators are
// created fresh, so per-run state such as acknowledged relay ports never
// leaks between sequences.
func BuildSteps(cfg config.SequenceConfig, opts ...PlanOption) ([]sequence.Step, error) {
	p := &planner{ssh: cfg.SSH, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	steps := make([]sequence.Step, 0, len(cfg.Steps))
	for _, sc := range cfg.Steps {
		policy, err := sequence.ParsePolicy(sc.Policy)
		if err != nil {
			return nil, fmt.Errorf("failed to build step %s; %w", sc.ID, err)
		}

		act, err := p.actuator(sc)
		if err != nil {
			return nil, fmt.Errorf("failed to build step %s; %w", sc.ID, err)
		}

		label := sc.Label
		if label == "" {
			label = sc.ID
		}

		steps = append(steps, sequence.Step{
			ID:     sc.ID,
			Label:  label,
			Gated:  sc.Gated,
			Policy: policy,
			Run:    act.Run,
		})
	}
	return steps, nil
}

// TimingFrom converts the configured sequence durations.
func TimingFrom(cfg config.SequenceConfig) sequence.Timing {
	return sequence.Timing{
		Wait:       time.Duration(cfg.WaitSeconds) * time.Second,
		WaitTick:   time.Duration(cfg.WaitTickMs) * time.Millisecond,
		SkipGrace:  time.Duration(cfg.SkipGraceSeconds) * time.Second,
		RetryDelay: time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	}
}

// BuildActuator returns the actuator for a single configured step.
func BuildActuator(sc config.StepConfig, ssh config.SSHConfig, opts ...PlanOption) (actuator.Actuator, error) {
	p := &planner{ssh: ssh, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p.actuator(sc)
}

func (p *planner) actuator(sc config.StepConfig) (actuator.Actuator, error) {
	logger := p.logger.With("step", sc.ID)
	timeout := time.Duration(sc.TimeoutSeconds) * time.Second

	switch sc.Kind {
	case config.StepKindHVRelay:
		relayOpts := []actuator.HVRelayOption{actuator.WithRelayLogger(logger)}
		if sc.Port > 0 {
			relayOpts = append(relayOpts, actuator.WithRelayPort(sc.Port))
		}
		switch {
		case p.relayClient != nil:
			relayOpts = append(relayOpts, actuator.WithHTTPClient(p.relayClient))
		case timeout > 0:
			relayOpts = append(relayOpts, actuator.WithHTTPClient(&http.Client{Timeout: timeout}))
		}

		relays := make(actuator.All, 0, len(sc.Hosts))
		for _, host := range sc.Hosts {
			relays = append(relays, actuator.NewHVRelay(host, sc.Ports, relayOpts...))
		}
		return relays, nil

	case config.StepKindSSH:
		return p.remoteHubs(sc, timeout, logger), nil

	case config.StepKindSCPI:
		scpiOpts := []actuator.SCPIOption{actuator.WithSCPILogger(logger)}
		if timeout > 0 {
			scpiOpts = append(scpiOpts, actuator.WithDialTimeout(timeout))
		}
		supply := actuator.NewSCPI(sc.Address, scpiOpts...)
		switch sc.Action {
		case "off":
			return actuator.Func(supply.Off), nil
		case "on":
			volts := sc.Voltage
			if volts == 0 {
				volts = actuator.DefaultSCPIVoltage
			}
			return actuator.Func(func(ctx context.Context) error { return supply.On(ctx, volts) }), nil
		default:
			return nil, fmt.Errorf("unknown scpi action %q", sc.Action)
		}

	case config.StepKindCommand:
		cmdOpts := []actuator.CommandOption{actuator.WithCommandLogger(logger)}
		if timeout > 0 {
			cmdOpts = append(cmdOpts, actuator.WithCommandTimeout(timeout))
		}
		return actuator.NewCommand(config.ExpandHome(sc.Path), sc.Args, cmdOpts...), nil

	default:
		return nil, fmt.Errorf("unknown step kind %q", sc.Kind)
	}
}

// remoteHubs runs the hub commands on each host in order, stopping at the
// first failure. The key is loaded when the step runs so a missing key is a
// step failure rather than a startup failure.
func (p *planner) remoteHubs(sc config.StepConfig, timeout time.Duration, logger *slog.Logger) actuator.Actuator {
	commands := sc.Commands
	if len(commands) == 0 {
		commands = actuator.UhubctlOffCommands(sc.Uhubctl, sc.HubLocation, sc.Ports)
	}
	if timeout == 0 {
		timeout = time.Duration(p.ssh.TimeoutSeconds) * time.Second
	}
	sshCfg := p.ssh

	return actuator.Func(func(ctx context.Context) error {
		signer, err := actuator.LoadSigner(config.ExpandHome(sshCfg.KeyFile))
		if err != nil {
			return err
		}
		hostKeys, err := actuator.HostKeyCallback(config.ExpandHome(sshCfg.KnownHostsFile))
		if err != nil {
			return err
		}
		clientCfg := actuator.NewSSHConfig(sshCfg.User, signer, hostKeys, timeout)

		hubOpts := []actuator.RemoteHubOption{actuator.WithSSHLogger(logger)}
		if sc.Port > 0 {
			hubOpts = append(hubOpts, actuator.WithSSHPort(sc.Port))
		}

		hubs := make(actuator.Chain, 0, len(sc.Hosts))
		for _, host := range sc.Hosts {
			hubs = append(hubs, actuator.NewRemoteHub(host, clientCfg, commands, hubOpts...))
		}
		return hubs.Run(ctx)
	})
}
