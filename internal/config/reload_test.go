package config

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/events"
)

func TestReload_AppliesNewValuesAndRunsHooks(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, configPath, "log_level: info\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	var gotOld, gotNew string
	OnReload(func(old, new *Config) {
		gotOld, gotNew = old.LogLevel, new.LogLevel
	})

	writeConfig(t, configPath, "log_level: debug\n")
	if err := Reload(); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}

	if Get().LogLevel != "debug" {
		t.Errorf("Get().LogLevel = %q after reload, want debug", Get().LogLevel)
	}
	if gotOld != "info" || gotNew != "debug" {
		t.Errorf("reload hook saw %q -> %q, want info -> debug", gotOld, gotNew)
	}
}

func TestReload_InvalidConfigRetainsPrevious(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, configPath, "sequence:\n  wait_seconds: 120\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	writeConfig(t, configPath, "sequence:\n  wait_seconds: -5\n")
	if err := Reload(); err == nil {
		t.Fatal("Reload() returned nil for invalid config, want error")
	}

	if got := Get().Sequence.WaitSeconds; got != 120 {
		t.Errorf("Sequence.WaitSeconds = %d, want previous value 120", got)
	}
	if got := GetInt("sequence.wait_seconds"); got != 120 {
		t.Errorf("GetInt(sequence.wait_seconds) = %d, want previous value 120", got)
	}
}

func TestReload_PublishesEvents(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, configPath, "daemon:\n  http_port: 8080\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	bus := events.NewBus()
	SetEventBus(bus)
	t.Cleanup(func() { SetEventBus(nil) })

	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) }, events.ConfigReloaded, events.ConfigReloadFailed)

	writeConfig(t, configPath, "daemon:\n  http_port: 9999\n")
	if err := Reload(); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}

	writeConfig(t, configPath, "daemon: [broken\n")
	if err := Reload(); err == nil {
		t.Fatal("Reload() returned nil for broken YAML, want error")
	}

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Type != events.ConfigReloaded {
		t.Errorf("event[0].Type = %q, want %q", got[0].Type, events.ConfigReloaded)
	}
	payload, ok := got[0].Payload.(*events.ConfigReloadEvent)
	if !ok || len(payload.Changed) != 1 || payload.Changed[0] != "daemon" {
		t.Errorf("event[0].Payload = %#v, want changed section daemon", got[0].Payload)
	}
	if ok && (len(payload.RestartRequired) != 1 || payload.RestartRequired[0] != "daemon") {
		t.Errorf("RestartRequired = %v, want [daemon]", payload.RestartRequired)
	}
	if got[1].Type != events.ConfigReloadFailed {
		t.Errorf("event[1].Type = %q, want %q", got[1].Type, events.ConfigReloadFailed)
	}
}

func TestWatchSignals_SIGHUPTriggersReload(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, configPath, "daemon:\n  http_port: 8080\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	reloaded := make(chan int, 1)
	OnReload(func(_, new *Config) { reloaded <- new.Daemon.HTTPPort })

	stop := WatchSignals(context.Background())
	defer stop()

	writeConfig(t, configPath, "daemon:\n  http_port: 9999\n")
	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("failed to send SIGHUP: %v", err)
	}

	select {
	case port := <-reloaded:
		if port != 9999 {
			t.Errorf("reloaded http_port = %d, want 9999", port)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("config was not reloaded after SIGHUP")
	}
}

func TestDiffSections(t *testing.T) {
	old := NewDefaultConfig()
	updated := NewDefaultConfig()
	updated.LogLevel = "debug"
	updated.Sequence.WaitSeconds = 60

	changed := diffSections(&old, &updated)
	if len(changed) != 2 || changed[0] != "log_level" || changed[1] != "sequence" {
		t.Errorf("diffSections() = %v, want [log_level sequence]", changed)
	}
	if restart := changed.restartRequired(); len(restart) != 0 {
		t.Errorf("restartRequired() = %v, want none for log_level and sequence", restart)
	}
	if restart := (sectionDiff{"daemon", "sequence"}).restartRequired(); len(restart) != 1 || restart[0] != "daemon" {
		t.Errorf("restartRequired() = %v, want [daemon]", restart)
	}
}
