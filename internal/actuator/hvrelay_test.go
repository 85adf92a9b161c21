package actuator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

type relayServer struct {
	mu       sync.Mutex
	received []hvCommand
	failPort map[int]int // port -> remaining failures
}

func (s *relayServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/serial/command" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var cmd hvCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("failed to decode command: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.received = append(s.received, cmd)
		if s.failPort[cmd.PortID] > 0 {
			s.failPort[cmd.PortID]--
			http.Error(w, "serial busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *relayServer) ports() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, c := range s.received {
		out = append(out, c.PortID)
	}
	return out
}

func TestHVRelay_TurnsOffEveryPort(t *testing.T) {
	rs := &relayServer{}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	relay := NewHVRelay("192.168.20.12", []int{0, 1, 2, 3}, WithBaseURL(srv.URL))
	if err := relay.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := rs.ports(); !slices.Equal(got, []int{0, 1, 2, 3}) {
		t.Errorf("ports = %v, want [0 1 2 3]", got)
	}
	for _, c := range rs.received {
		if c.CommandType != "TURN_OFF" {
			t.Errorf("command type = %q, want TURN_OFF", c.CommandType)
		}
	}
}

func TestHVRelay_RetrySkipsAcknowledgedPorts(t *testing.T) {
	rs := &relayServer{failPort: map[int]int{2: 1}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	relay := NewHVRelay("192.168.20.13", []int{0, 1, 2, 3}, WithBaseURL(srv.URL))

	err := relay.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "port 2 returned status 503") {
		t.Fatalf("Run() error = %v, want port 2 failure", err)
	}
	// A failing port does not stop the others.
	if got := rs.ports(); !slices.Equal(got, []int{0, 1, 2, 3}) {
		t.Errorf("ports after first run = %v", got)
	}

	if err := relay.Run(context.Background()); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if got := rs.ports(); !slices.Equal(got, []int{0, 1, 2, 3, 2}) {
		t.Errorf("ports after retry = %v, want only port 2 re-sent", got)
	}

	relay.Reset()
	if err := relay.Run(context.Background()); err != nil {
		t.Fatalf("Run() after Reset error = %v", err)
	}
	if got := len(rs.ports()); got != 9 {
		t.Errorf("commands sent = %d, want 9", got)
	}
}

func TestHVRelay_UnreachableController(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	relay := NewHVRelay("192.168.20.12", []int{0}, WithBaseURL(url))
	err := relay.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to reach hv controller") {
		t.Errorf("Run() error = %v, want unreachable controller", err)
	}
}

func TestHVRelay_DefaultURL(t *testing.T) {
	tests := []struct {
		relay *HVRelay
		want  string
	}{
		{NewHVRelay("192.168.20.12", []int{0}), "http://192.168.20.12:8000/serial/command"},
		{NewHVRelay("10.0.0.5", []int{0}, WithRelayPort(9000)), "http://10.0.0.5:9000/serial/command"},
	}

	for _, tt := range tests {
		if got := tt.relay.URL(); got != tt.want {
			t.Errorf("URL() = %q, want %q", got, tt.want)
		}
	}
}
