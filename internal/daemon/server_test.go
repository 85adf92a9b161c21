package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(NewHealthManager(), ServerConfig{Bind: "127.0.0.1"})

	rec := doRequest(t, s.Handler(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rec.Code)
	}

	var resp LivezResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "alive" {
		t.Errorf("/healthz status = %q, want alive", resp.Status)
	}
}

func TestServer_ReadyzReflectsCriticalFailure(t *testing.T) {
	health := NewHealthManager()
	s := NewServer(health, ServerConfig{})

	if rec := doRequest(t, s.Handler(), http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("/readyz status = %d, want 200", rec.Code)
	}

	health.SetCritical("monitor")
	health.UpdateComponent("monitor", ComponentHealth{Status: ComponentStatusFailed, Error: "stalled"})

	rec := doRequest(t, s.Handler(), http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz status = %d, want 503", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Components["monitor"].Error != "stalled" {
		t.Errorf("monitor error = %q, want stalled", status.Components["monitor"].Error)
	}
}

func TestServer_Status(t *testing.T) {
	s := NewServer(NewHealthManager(), ServerConfig{})
	if rec := doRequest(t, s.Handler(), http.MethodGet, "/status"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/status without provider = %d, want 503", rec.Code)
	}

	s = NewServer(NewHealthManager(), ServerConfig{}, WithStatusFunc(func() any {
		return map[string]any{"sequence_running": true}
	}))
	rec := doRequest(t, s.Handler(), http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("/status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sequence_running":true`) {
		t.Errorf("/status body = %s", rec.Body.String())
	}
}

func TestServer_Triggers(t *testing.T) {
	store := trigger.NewMemoryStore()
	s := NewServer(NewHealthManager(), ServerConfig{}, WithTriggerStore(store))

	rec := doRequest(t, s.Handler(), http.MethodPost, "/triggers/cancel")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /triggers/cancel = %d, want 202", rec.Code)
	}
	if !store.Present(trigger.Cancel) {
		t.Error("cancel marker not asserted")
	}

	if rec := doRequest(t, s.Handler(), http.MethodPost, "/triggers/abort"); rec.Code != http.StatusNotFound {
		t.Errorf("POST /triggers/abort = %d, want 404", rec.Code)
	}

	if rec := doRequest(t, s.Handler(), http.MethodDelete, "/triggers"); rec.Code != http.StatusOK {
		t.Fatalf("DELETE /triggers = %d, want 200", rec.Code)
	}
	if store.Present(trigger.Cancel) {
		t.Error("cancel marker survived clear")
	}
}

type failingStore struct{ *trigger.MemoryStore }

func (failingStore) Assert(trigger.Kind) error { return errors.New("read-only file system") }

func TestServer_TriggerStoreError(t *testing.T) {
	s := NewServer(NewHealthManager(), ServerConfig{}, WithTriggerStore(failingStore{trigger.NewMemoryStore()}))

	rec := doRequest(t, s.Handler(), http.MethodPost, "/triggers/skip")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("POST /triggers/skip = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "read-only file system") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServer_MetricsMountedWhenSet(t *testing.T) {
	s := NewServer(NewHealthManager(), ServerConfig{})
	if rec := doRequest(t, s.Handler(), http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", rec.Code)
	}

	s = NewServer(NewHealthManager(), ServerConfig{}, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("lh2monitor_polls_total 1\n"))
	})))
	rec := doRequest(t, s.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lh2monitor_polls_total") {
		t.Errorf("/metrics = %d %q", rec.Code, rec.Body.String())
	}
}
