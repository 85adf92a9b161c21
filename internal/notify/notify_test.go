package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type webhookServer struct {
	mu       sync.Mutex
	payloads []Payload
	types    []string
	status   int
}

func newWebhookServer(t *testing.T, status int) (*webhookServer, *httptest.Server) {
	t.Helper()
	ws := &webhookServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("failed to decode payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ws.mu.Lock()
		ws.payloads = append(ws.payloads, p)
		ws.types = append(ws.types, r.Header.Get("Content-Type"))
		ws.mu.Unlock()

		w.WriteHeader(ws.status)
		if ws.status != http.StatusNoContent {
			_, _ = w.Write([]byte(`{"message": "Unknown Webhook"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return ws, srv
}

func (ws *webhookServer) received() []Payload {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]Payload(nil), ws.payloads...)
}

var fixedNow = func() time.Time { return time.Date(2024, 6, 1, 9, 5, 3, 0, time.Local) }

func TestWebhook_Notify(t *testing.T) {
	ws, srv := newWebhookServer(t, http.StatusNoContent)

	hook := NewWebhook(srv.URL, WithNow(fixedNow))
	if err := hook.Notify(context.Background(), "H2 leak alert detected!"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	got := ws.received()
	if len(got) != 1 {
		t.Fatalf("received %d payloads, want 1", len(got))
	}
	if want := "[Sat Jun  1 09:05:03 2024] H2 leak alert detected!"; got[0].Content != want {
		t.Errorf("content = %q, want %q", got[0].Content, want)
	}
	if got[0].Username != DefaultUsername {
		t.Errorf("username = %q, want %q", got[0].Username, DefaultUsername)
	}
	if ws.types[0] != "application/json" {
		t.Errorf("content type = %q, want application/json", ws.types[0])
	}
}

func TestWebhook_NonSuccessStatusIsDeliveryError(t *testing.T) {
	_, srv := newWebhookServer(t, http.StatusOK)

	err := NewWebhook(srv.URL).Notify(context.Background(), "hello")
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DeliveryError", err)
	}
	if de.Status != http.StatusOK {
		t.Errorf("status = %d, want %d", de.Status, http.StatusOK)
	}
	if !strings.Contains(de.Error(), "Unknown Webhook") {
		t.Errorf("error %q should include the response body", de.Error())
	}
}

func TestWebhook_CustomSuccessStatusAndUsername(t *testing.T) {
	ws, srv := newWebhookServer(t, http.StatusOK)

	hook := NewWebhook(srv.URL, WithSuccessStatus(http.StatusOK), WithUsername("Cryo Bot"))
	if err := hook.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got := ws.received()[0].Username; got != "Cryo Bot" {
		t.Errorf("username = %q, want Cryo Bot", got)
	}
}

func TestWebhook_Unreachable(t *testing.T) {
	_, srv := newWebhookServer(t, http.StatusNoContent)
	url := srv.URL
	srv.Close()

	err := NewWebhook(url, WithTimeout(time.Second)).Notify(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if !strings.Contains(err.Error(), "failed to post webhook") {
		t.Errorf("error = %q, want failed to post webhook", err)
	}
}

func TestWebhook_TimeoutOption(t *testing.T) {
	tests := []struct {
		name string
		opts func(shared *http.Client) []WebhookOption
		want time.Duration
	}{
		{
			name: "default",
			opts: func(*http.Client) []WebhookOption { return nil },
			want: DefaultTimeout,
		},
		{
			name: "timeout before client",
			opts: func(shared *http.Client) []WebhookOption {
				return []WebhookOption{WithTimeout(3 * time.Second), WithHTTPClient(shared)}
			},
			want: 3 * time.Second,
		},
		{
			name: "timeout after client",
			opts: func(shared *http.Client) []WebhookOption {
				return []WebhookOption{WithHTTPClient(shared), WithTimeout(3 * time.Second)}
			},
			want: 3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := &http.Client{Timeout: time.Minute}
			hook := NewWebhook("http://localhost", tt.opts(shared)...)

			if hook.client.Timeout != tt.want {
				t.Errorf("client timeout = %v, want %v", hook.client.Timeout, tt.want)
			}
			if shared.Timeout != time.Minute {
				t.Errorf("shared client timeout changed to %v", shared.Timeout)
			}
		})
	}
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	if err := n.Notify(context.Background(), "ignored"); err != nil {
		t.Errorf("Nop.Notify returned %v", err)
	}
	if n.Name() != "nop" {
		t.Errorf("Name() = %q, want nop", n.Name())
	}
}
