package daemon

import (
	"context"
	"log/slog"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
)

// ServiceNotifier reports lifecycle changes to the service manager.
type ServiceNotifier interface {
	Ready()
	Reloading()
	Stopping()
	Watchdog()

	// WatchdogInterval returns the keep-alive period, or 0 when the service
	// manager does not expect keep-alives.
	WatchdogInterval() time.Duration
}

// SystemdNotifier sends sd_notify messages. Outside systemd every call is a
// no-op.
type SystemdNotifier struct {
	logger *slog.Logger
}

// NewSystemdNotifier creates a notifier for NOTIFY_SOCKET.
func NewSystemdNotifier(logger *slog.Logger) *SystemdNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemdNotifier{logger: logger}
}

func (n *SystemdNotifier) Ready()     { n.send(sd.SdNotifyReady) }
func (n *SystemdNotifier) Reloading() { n.send(sd.SdNotifyReloading) }
func (n *SystemdNotifier) Stopping()  { n.send(sd.SdNotifyStopping) }
func (n *SystemdNotifier) Watchdog()  { n.send(sd.SdNotifyWatchdog) }

// WatchdogInterval returns half of WATCHDOG_USEC, the recommended ping period.
func (n *SystemdNotifier) WatchdogInterval() time.Duration {
	interval, err := sd.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("invalid systemd watchdog settings", "error", err)
		return 0
	}
	return interval / 2
}

func (n *SystemdNotifier) send(state string) {
	sent, err := sd.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("notified systemd", "state", state)
	}
}

type nopNotifier struct{}

func (nopNotifier) Ready()                          {}
func (nopNotifier) Reloading()                      {}
func (nopNotifier) Stopping()                       {}
func (nopNotifier) Watchdog()                       {}
func (nopNotifier) WatchdogInterval() time.Duration { return 0 }

// runWatchdog pings the service manager while healthy reports true. A stalled
// poll loop stops the pings so systemd restarts the unit.
func runWatchdog(ctx context.Context, n ServiceNotifier, healthy func() bool, logger *slog.Logger) {
	interval := n.WatchdogInterval()
	if interval <= 0 {
		return
	}
	logger.Info("systemd watchdog enabled", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy == nil || healthy() {
				n.Watchdog()
			} else {
				logger.Warn("skipping watchdog ping; monitor unhealthy")
			}
		}
	}
}
