package daemonclient

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/daemon"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
	"github.com/leefowlercu/lh2-monitor/internal/status"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

func newTestServer(t *testing.T, health *daemon.HealthManager, store trigger.Store) *Client {
	t.Helper()
	srv := daemon.NewServer(health, daemon.ServerConfig{},
		daemon.WithTriggerStore(store),
		daemon.WithStatusFunc(func() any {
			return monitor.Snapshot{
				Status:          status.Snapshot{State: status.Alert, Raw: "1", Polls: 7},
				SequenceRunning: true,
				Wait:            &monitor.WaitStatus{RunID: "run-1"},
			}
		}),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(config.DaemonConfig{}, WithBaseURL(ts.URL))
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		bind string
		want string
	}{
		{"", "http://127.0.0.1:7610"},
		{"0.0.0.0", "http://127.0.0.1:7610"},
		{"::", "http://[::1]:7610"},
		{"192.168.20.5", "http://192.168.20.5:7610"},
	}
	for _, tt := range tests {
		if got := ResolveBaseURL(config.DaemonConfig{HTTPBind: tt.bind, HTTPPort: 7610}); got != tt.want {
			t.Errorf("ResolveBaseURL(%q) = %q, want %q", tt.bind, got, tt.want)
		}
	}
}

func TestClient_Status(t *testing.T) {
	c := newTestServer(t, daemon.NewHealthManager(), trigger.NewMemoryStore())

	snap, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if snap.Status.State != status.Alert {
		t.Errorf("state = %q, want alert", snap.Status.State)
	}
	if !snap.SequenceRunning {
		t.Error("SequenceRunning = false, want true")
	}
	if snap.Wait == nil || snap.Wait.RunID != "run-1" {
		t.Errorf("Wait = %+v, want run-1", snap.Wait)
	}
}

func TestClient_ReadyAcceptsUnready(t *testing.T) {
	health := daemon.NewHealthManager()
	health.SetCritical("monitor")
	health.UpdateComponent("monitor", daemon.ComponentHealth{Status: daemon.ComponentStatusFailed, Error: "stalled"})
	c := newTestServer(t, health, trigger.NewMemoryStore())

	ready, err := c.Ready(context.Background())
	if err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if ready.Ready {
		t.Error("Ready = true, want false")
	}
	if ready.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy", ready.Status)
	}
}

func TestClient_Triggers(t *testing.T) {
	store := trigger.NewMemoryStore()
	c := newTestServer(t, daemon.NewHealthManager(), store)

	if err := c.Trigger(context.Background(), trigger.Extend); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if !store.Present(trigger.Extend) {
		t.Error("extend marker not written")
	}

	if err := c.ClearTriggers(context.Background()); err != nil {
		t.Fatalf("ClearTriggers() error = %v", err)
	}
	if store.Present(trigger.Extend) {
		t.Error("extend marker not cleared")
	}

	err := c.Trigger(context.Background(), trigger.Kind("abort"))
	if err == nil || !strings.Contains(err.Error(), "unknown trigger") {
		t.Errorf("Trigger(abort) error = %v, want unknown trigger", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	_, err := New(config.DaemonConfig{}, WithBaseURL(url)).Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to connect to daemon") {
		t.Errorf("Status() error = %v, want connect failure", err)
	}
}
