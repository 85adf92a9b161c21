// Package daemon runs the leak monitor as a long-lived process: PID file,
// local HTTP server, service manager notifications and health reporting.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/metrics"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
)

// DaemonState represents the lifecycle state of the daemon.
type DaemonState string

const (
	// DaemonStateStarting indicates the daemon is initializing.
	DaemonStateStarting DaemonState = "starting"

	// DaemonStateRunning indicates the monitor is polling.
	DaemonStateRunning DaemonState = "running"

	// DaemonStateStopping indicates shutdown is waiting for in-flight work.
	DaemonStateStopping DaemonState = "stopping"

	// DaemonStateStopped indicates the daemon has terminated.
	DaemonStateStopped DaemonState = "stopped"
)

// IsTerminal returns true if this state is a terminal state (no further transitions).
func (s DaemonState) IsTerminal() bool {
	return s == DaemonStateStopped
}

// CanTransitionTo returns true if transitioning to the target state is valid.
func (s DaemonState) CanTransitionTo(target DaemonState) bool {
	switch s {
	case DaemonStateStarting:
		return target == DaemonStateRunning || target == DaemonStateStopped
	case DaemonStateRunning:
		return target == DaemonStateStopping
	case DaemonStateStopping:
		return target == DaemonStateStopped
	default:
		return false
	}
}

// Config holds the process-level settings of the daemon.
type Config struct {
	// HTTPPort is the port of the local HTTP server. 0 picks a free port.
	HTTPPort int

	// HTTPBind is the address to bind the HTTP server.
	HTTPBind string

	// ShutdownTimeout bounds the HTTP server shutdown.
	ShutdownTimeout time.Duration

	// PIDFile is the path to the PID file.
	PIDFile string

	// StaleAfter is how long the poller may go without a read before the
	// monitor is reported failed.
	StaleAfter time.Duration
}

// Defaults applied to a zero Config.
const (
	DefaultStaleAfter      = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// ConfigFrom builds the daemon configuration from application config.
func ConfigFrom(cfg *config.Config) Config {
	stale := 10 * cfg.Status.PollInterval()
	if stale < DefaultStaleAfter {
		stale = DefaultStaleAfter
	}
	return Config{
		HTTPPort:        cfg.Daemon.HTTPPort,
		HTTPBind:        cfg.Daemon.HTTPBind,
		ShutdownTimeout: time.Duration(cfg.Daemon.ShutdownTimeout) * time.Second,
		PIDFile:         config.ExpandHome(cfg.Daemon.PIDFile),
		StaleAfter:      stale,
	}
}

// Monitor is the workload the daemon supervises.
type Monitor interface {
	ClearMarkers() error
	Run(ctx context.Context) error
	Snapshot() monitor.Snapshot
}

// ConfigReloadFunc is a callback function invoked when config is reloaded.
type ConfigReloadFunc func() error

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the daemon logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		d.logger = logger
	}
}

// WithServiceNotifier sets the service manager notifier.
func WithServiceNotifier(n ServiceNotifier) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithMetricsCollector runs c for the daemon's lifetime.
func WithMetricsCollector(c *metrics.Collector) Option {
	return func(d *Daemon) {
		d.collector = c
	}
}

// WithServerOptions adds options for the HTTP server.
func WithServerOptions(opts ...ServerOption) Option {
	return func(d *Daemon) {
		d.serverOpts = append(d.serverOpts, opts...)
	}
}

// WithNow sets the clock used for staleness checks.
func WithNow(now func() time.Time) Option {
	return func(d *Daemon) {
		if now != nil {
			d.now = now
		}
	}
}

// Daemon supervises the monitor and its auxiliary services.
// It is safe for concurrent use.
type Daemon struct {
	mu              sync.RWMutex
	config          Config
	state           DaemonState
	monitor         Monitor
	server          *Server
	health          *HealthManager
	pidFile         *PIDFile
	notifier        ServiceNotifier
	collector       *metrics.Collector
	serverOpts      []ServerOption
	reloadCallbacks []ConfigReloadFunc
	logger          *slog.Logger
	now             func() time.Time
}

// New creates a Daemon supervising m.
func New(cfg Config, m Monitor, opts ...Option) *Daemon {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	d := &Daemon{
		config:   cfg,
		state:    DaemonStateStopped,
		monitor:  m,
		health:   NewHealthManager(),
		pidFile:  NewPIDFile(cfg.PIDFile),
		notifier: nopNotifier{},
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	serverOpts := append([]ServerOption{
		WithStatusFunc(func() any { return d.monitor.Snapshot() }),
		WithServerLogger(d.logger.With("component", "http")),
	}, d.serverOpts...)
	d.server = NewServer(d.health, ServerConfig{Port: cfg.HTTPPort, Bind: cfg.HTTPBind}, serverOpts...)

	d.health.RegisterProbe("monitor", true, d.monitorHealth)
	d.health.RegisterProbe("daemon", false, d.stateHealth)

	return d
}

// State returns the current daemon state.
func (d *Daemon) State() DaemonState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Daemon) setState(state DaemonState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

// Health returns the current aggregate health status.
func (d *Daemon) Health() HealthStatus {
	return d.health.Status()
}

// Addr returns the HTTP server address.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// OnConfigReload registers a callback to be invoked when config is reloaded.
func (d *Daemon) OnConfigReload(fn ConfigReloadFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloadCallbacks = append(d.reloadCallbacks, fn)
}

// TriggerConfigReload invokes all registered config reload callbacks.
// Errors are logged and aggregated, but all callbacks are attempted.
func (d *Daemon) TriggerConfigReload() error {
	d.logger.Info("config reload triggered")
	d.notifier.Reloading()
	defer d.notifier.Ready()

	d.mu.RLock()
	callbacks := make([]ConfigReloadFunc, len(d.reloadCallbacks))
	copy(callbacks, d.reloadCallbacks)
	d.mu.RUnlock()

	var errs []error
	for i, fn := range callbacks {
		if err := fn(); err != nil {
			d.logger.Error("config reload callback failed", "callback_index", i, "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d reload callbacks failed; %w", len(errs), len(callbacks), errors.Join(errs...))
	}
	return nil
}

// Start claims the PID file and runs the monitor until ctx is canceled or
// the monitor fails to start. HTTP server failures degrade health but do not
// stop monitoring.
func (d *Daemon) Start(ctx context.Context) error {
	d.setState(DaemonStateStarting)

	if err := d.pidFile.CheckAndClaim(); err != nil {
		d.setState(DaemonStateStopped)
		return fmt.Errorf("failed to claim PID file; %w", err)
	}
	defer func() {
		if err := d.pidFile.Remove(); err != nil {
			d.logger.Warn("failed to remove PID file", "error", err)
		}
	}()

	if err := d.monitor.ClearMarkers(); err != nil {
		d.setState(DaemonStateStopped)
		return fmt.Errorf("monitor failed; %w", err)
	}

	listenErr := d.server.Listen()
	if listenErr != nil {
		d.serverFailed(listenErr)
	}

	if d.collector != nil {
		if err := d.collector.Start(ctx); err != nil {
			d.logger.Warn("failed to start metrics collector", "error", err)
		}
	}

	d.setState(DaemonStateRunning)
	d.notifier.Ready()
	d.logger.Info("daemon started", "http_addr", d.server.Addr(), "pid_file", d.pidFile.Path())

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopAux := context.WithCancel(gctx)
	defer stopAux()

	if listenErr == nil {
		g.Go(func() error {
			if err := d.server.Start(runCtx); err != nil {
				d.serverFailed(err)
			}
			return nil
		})
	}

	g.Go(func() error {
		runWatchdog(runCtx, d.notifier, d.monitorAlive, d.logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		d.beginStopping()
		return nil
	})

	g.Go(func() error {
		defer stopAux()
		defer d.stopAux()
		if err := d.monitor.Run(gctx); err != nil {
			return fmt.Errorf("monitor failed; %w", err)
		}
		return nil
	})

	err := g.Wait()

	d.setState(DaemonStateStopped)
	d.logger.Info("daemon stopped")
	return err
}

// beginStopping runs once the monitor has been asked to stop; the monitor may
// still be finishing a sequence.
func (d *Daemon) beginStopping() {
	d.mu.Lock()
	if d.state != DaemonStateRunning {
		d.mu.Unlock()
		return
	}
	d.state = DaemonStateStopping
	d.mu.Unlock()

	d.notifier.Stopping()
	d.logger.Info("stopping daemon; waiting for in-flight sequence")
}

// stopAux shuts down the HTTP server and collector after the monitor returns.
func (d *Daemon) stopAux() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
	defer cancel()

	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("failed to shutdown http server", "error", err)
	}
	if d.collector != nil {
		if err := d.collector.Stop(shutdownCtx); err != nil {
			d.logger.Warn("failed to stop metrics collector", "error", err)
		}
	}
}

func (d *Daemon) serverFailed(err error) {
	d.logger.Error("http server error; continuing without it", "error", err)
	d.health.UpdateComponent("http", ComponentHealth{
		Status: ComponentStatusFailed,
		Error:  err.Error(),
	})
}

func (d *Daemon) monitorHealth() ComponentHealth {
	snap := d.monitor.Snapshot()
	h := ComponentHealth{
		Status:      ComponentStatusRunning,
		LastChecked: d.now(),
		Details: map[string]any{
			"alert_state":      snap.Status.State,
			"sequence_running": snap.SequenceRunning,
			"sequences":        snap.Sequences,
			"ignored_alerts":   snap.IgnoredAlerts,
			"polls":            snap.Status.Polls,
		},
	}

	switch {
	case snap.Status.Polls > 0 && d.now().Sub(snap.Status.LastCheck) > d.config.StaleAfter:
		h.Status = ComponentStatusFailed
		h.Error = fmt.Sprintf("no status poll since %s", snap.Status.LastCheck.Format(time.RFC3339))
	case snap.Status.LastError != "":
		h.Status = ComponentStatusDegraded
		h.Error = snap.Status.LastError
	}
	return h
}

func (d *Daemon) monitorAlive() bool {
	return d.monitorHealth().Status != ComponentStatusFailed
}

func (d *Daemon) stateHealth() ComponentHealth {
	state := d.State()
	h := ComponentHealth{Status: ComponentStatusRunning, Details: map[string]any{"state": state}}
	if state != DaemonStateRunning {
		h.Status = ComponentStatusStopped
	}
	return h
}
