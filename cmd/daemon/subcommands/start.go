package subcommands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/cmdutil"
	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/console"
	"github.com/leefowlercu/lh2-monitor/internal/daemon"
	"github.com/leefowlercu/lh2-monitor/internal/events"
	"github.com/leefowlercu/lh2-monitor/internal/logging"
	"github.com/leefowlercu/lh2-monitor/internal/metrics"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
	"github.com/leefowlercu/lh2-monitor/internal/notify"
	"github.com/leefowlercu/lh2-monitor/internal/sequence"
	"github.com/leefowlercu/lh2-monitor/internal/status"
	"github.com/leefowlercu/lh2-monitor/internal/telemetry"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
	"github.com/leefowlercu/lh2-monitor/internal/version"
)

// StartCmd runs the monitor in the foreground.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the leak monitor in foreground mode",
	Long: "Start the leak monitor in foreground mode.\n\n" +
		"Stale trigger markers are removed, then the status file is polled until " +
		"SIGINT or SIGTERM. SIGHUP reloads the configuration; the log level and the " +
		"sequence section apply from the next shutdown sequence. A webhook URL must be " +
		"configured, either in notify.webhook_url or in the environment variable named " +
		"by notify.webhook_url_env.",
	Example: `  # Start the monitor with the countdown console
  lh2monitor daemon start --console

  # Run under systemd (Type=notify)
  ExecStart=/usr/local/bin/lh2monitor daemon start`,
	PreRunE: validateStart,
	RunE:    runStart,
}

var startConsole bool

func init() {
	StartCmd.Flags().BoolVar(&startConsole, "console", false,
		"Print alerts, the wait countdown and step results to stdout (overrides daemon.console)")
}

func validateStart(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger := slog.Default()

	webhookURL := cfg.Notify.ResolveWebhookURL()
	if err := monitor.RequireWebhook(webhookURL, cfg.Notify.WebhookURLEnv); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, version.Get().Version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	bus := events.NewBus(
		events.WithBufferSize(cfg.Daemon.EventBus.BufferSize),
		events.WithLogger(logger.With("component", "events")),
		events.WithPayloadValidation(),
	)
	defer func() { _ = bus.Close() }()
	config.SetEventBus(bus)
	defer config.SetEventBus(nil)

	paths, err := cmdutil.TriggerPaths(cfg.Triggers)
	if err != nil {
		return fmt.Errorf("failed to resolve trigger paths; %w", err)
	}
	store := trigger.NewFileStore(paths, trigger.WithLogger(logger.With("component", "triggers")))
	if cfg.Triggers.Watch {
		if err := store.Watch(); err != nil {
			logger.Warn("trigger watch unavailable; relying on polling", "error", err)
		}
	}
	defer func() { _ = store.Close() }()

	showConsole := cfg.Daemon.Console
	if cmd.Flags().Changed("console") {
		showConsole = startConsole
	}
	if showConsole {
		detach := attachConsole(cmd.OutOrStdout(), bus, paths)
		defer detach()
	}

	mon, err := buildMonitor(cfg, webhookURL, store, bus, logger)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(
		time.Duration(cfg.Daemon.Metrics.CollectionInterval)*time.Second,
		version.Get().Version,
	)
	registerProviders(collector, store, bus, mon, cfg.Status.PollInterval())

	d := daemon.New(daemon.ConfigFrom(cfg), mon,
		daemon.WithLogger(logger.With("component", "daemon")),
		daemon.WithServiceNotifier(daemon.NewSystemdNotifier(logger.With("component", "systemd"))),
		daemon.WithMetricsCollector(collector),
		daemon.WithServerOptions(
			daemon.WithTriggerStore(store),
			daemon.WithMetricsHandler(metrics.Handler()),
		),
	)

	d.OnConfigReload(func() error {
		return applyReload(config.Get(), mon)
	})
	config.OnReload(func(_, _ *config.Config) {
		if err := d.TriggerConfigReload(); err != nil {
			logger.Error("failed to apply reloaded config", "error", err)
		}
	})

	stopSignals := config.WatchSignals(ctx)
	defer stopSignals()

	logger.Info("starting monitor",
		"status_file", config.ExpandHome(cfg.Status.Path),
		"key", cfg.Status.Key,
		"poll_interval", cfg.Status.PollInterval(),
		"http_bind", cfg.Daemon.HTTPBind,
		"http_port", cfg.Daemon.HTTPPort,
		"pid_file", config.ExpandHome(cfg.Daemon.PIDFile),
	)

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("monitor error; %w", err)
	}

	logger.Info("monitor stopped")
	return nil
}

// buildMonitor assembles the poller, sequencer and notifier from cfg. The
// shutdown plan is rebuilt from the live config for every sequence.
func buildMonitor(cfg *config.Config, webhookURL string, store trigger.Store, bus events.Bus, logger *slog.Logger) (*monitor.Monitor, error) {
	planLogger := monitor.WithPlanLogger(logger.With("component", "actuator"))
	plan := func() ([]sequence.Step, error) {
		return monitor.BuildSteps(config.Get().Sequence, planLogger)
	}
	if _, err := monitor.BuildSteps(cfg.Sequence, planLogger); err != nil {
		return nil, fmt.Errorf("invalid shutdown plan; %w", err)
	}

	notifier := notify.NewWebhook(webhookURL,
		notify.WithUsername(cfg.Notify.Username),
		notify.WithSuccessStatus(cfg.Notify.SuccessStatus),
		notify.WithTimeout(time.Duration(cfg.Notify.TimeoutSeconds)*time.Second),
		notify.WithLogger(logger.With("component", "notify")),
	)

	source := status.NewFileReader(config.ExpandHome(cfg.Status.Path), cfg.Status.Key)

	mon := monitor.New(source, store, plan,
		monitor.WithNotifier(notifier),
		monitor.WithBus(bus),
		monitor.WithLogger(logger),
		monitor.WithPollerOptions(
			status.WithInterval(cfg.Status.PollInterval()),
			status.WithClassifier(status.Classifier{
				AlertValue:  cfg.Status.AlertValue,
				NormalValue: cfg.Status.NormalValue,
			}),
			status.WithReadErrorLogInterval(time.Duration(cfg.Status.ReadErrorLogInterval)*time.Second),
		),
	)
	mon.Sequencer().SetTiming(monitor.TimingFrom(cfg.Sequence))

	return mon, nil
}

// applyReload applies the hot-reloadable sections of cfg.
func applyReload(cfg *config.Config, mon *monitor.Monitor) error {
	level := logging.ParseLevelOrDefault(cfg.LogLevel)
	if m := cmdutil.LogManager(); m != nil {
		m.SetLevel(level)
	}

	timing := monitor.TimingFrom(cfg.Sequence)
	mon.Sequencer().SetTiming(timing)

	slog.Info("applied reloaded config",
		"log_level", level,
		"wait", timing.Wait,
		"steps", len(cfg.Sequence.Steps),
	)
	return nil
}

// monitorSnapshotter is the part of the monitor the status provider samples.
type monitorSnapshotter interface {
	Snapshot() monitor.Snapshot
}

// registerProviders exposes marker presence, status freshness and bus load as
// sampled gauges. The status component turns unhealthy when the last poll
// failed or is older than three poll intervals.
func registerProviders(c *metrics.Collector, store *trigger.FileStore, bus *events.EventBus, mon monitorSnapshotter, pollInterval time.Duration) {
	c.Register("triggers", metrics.ProviderFunc(func(context.Context) error {
		for _, kind := range trigger.Kinds {
			present := 0.0
			if store.Present(kind) {
				present = 1
			}
			metrics.TriggerMarkerPresent.WithLabelValues(string(kind)).Set(present)
		}
		return nil
	}))

	c.Register("status", metrics.ProviderFunc(func(context.Context) error {
		snap := mon.Snapshot().Status
		if snap.LastCheck.IsZero() {
			return errors.New("status file not polled yet")
		}
		age := time.Since(snap.LastCheck)
		metrics.StatusAgeSeconds.Set(age.Seconds())
		if snap.LastError != "" {
			return errors.New(snap.LastError)
		}
		if age > 3*pollInterval {
			return fmt.Errorf("last poll %s ago", age.Round(time.Second))
		}
		return nil
	}))

	c.Register("event_bus", metrics.ProviderFunc(func(context.Context) error {
		st := bus.Stats()
		metrics.EventBusSubscribers.Set(float64(st.SubscriberCount))
		if st.IsClosed {
			return events.ErrBusClosed
		}
		return nil
	}))
}

func attachConsole(out io.Writer, bus events.Bus, paths trigger.Paths) func() {
	return console.New(out, console.WithTriggerPaths(paths)).Attach(bus)
}
