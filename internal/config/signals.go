package config

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// reloadMu prevents concurrent reload attempts
var reloadMu sync.Mutex

// WatchSignals reloads the configuration on every SIGHUP until ctx is done or
// the returned stop function is called. A SIGHUP arriving while a reload is in
// progress is ignored. stop waits for the watcher goroutine to exit.
func WatchSignals(ctx context.Context) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				if !reloadMu.TryLock() {
					slog.Debug("SIGHUP received during reload; ignoring")
					continue
				}
				slog.Info("received SIGHUP; reloading config")
				_ = Reload() // logged and published by Reload
				reloadMu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
