package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/version"
)

// HV relay defaults.
const (
	DefaultHVRelayPort    = 8000
	DefaultHVRelayTimeout = 10 * time.Second
	HVCommandTurnOff      = "TURN_OFF"
	hvCommandPath         = "/serial/command"
)

// hvCommand is the relay controller request body.
type hvCommand struct {
	PortID      int    `json:"port_id"`
	CommandType string `json:"command_type"`
}

// HVRelayOption configures an HVRelay.
type HVRelayOption func(*HVRelay)

// WithHTTPClient sets the HTTP client used for relay requests.
func WithHTTPClient(c *http.Client) HVRelayOption {
	return func(r *HVRelay) {
		r.client = c
	}
}

// WithRelayPort sets the controller's HTTP port.
func WithRelayPort(port int) HVRelayOption {
	return func(r *HVRelay) {
		if port > 0 {
			r.port = port
		}
	}
}

// WithBaseURL overrides the controller URL, e.g. for a proxy.
func WithBaseURL(u string) HVRelayOption {
	return func(r *HVRelay) {
		r.baseURL = u
	}
}

// WithRelayLogger sets the logger.
func WithRelayLogger(logger *slog.Logger) HVRelayOption {
	return func(r *HVRelay) {
		r.logger = logger
	}
}

// HVRelay switches off the high-voltage channels of one serial relay
// controller. A port that acknowledged TURN_OFF is not sent again when Run is
// repeated after a partial failure.
type HVRelay struct {
	host    string
	port    int
	ports   []int
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	acked map[int]bool
}

// NewHVRelay creates an actuator for the controller at host driving ports.
func NewHVRelay(host string, ports []int, opts ...HVRelayOption) *HVRelay {
	r := &HVRelay{
		host:   host,
		port:   DefaultHVRelayPort,
		ports:  append([]int(nil), ports...),
		client: &http.Client{Timeout: DefaultHVRelayTimeout},
		logger: slog.Default(),
		acked:  make(map[int]bool),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.baseURL == "" {
		r.baseURL = "http://" + net.JoinHostPort(r.host, strconv.Itoa(r.port))
	}

	return r
}

// URL returns the command endpoint.
func (r *HVRelay) URL() string {
	return r.baseURL + hvCommandPath
}

// Run sends TURN_OFF to every port not yet acknowledged. All ports are
// attempted; the returned error joins the failures.
func (r *HVRelay) Run(ctx context.Context) error {
	var errs []error
	for _, port := range r.ports {
		if r.isAcked(port) {
			continue
		}
		if err := r.Send(ctx, port, HVCommandTurnOff); err != nil {
			errs = append(errs, err)
			continue
		}
		r.markAcked(port)
		r.logger.Info("hv channel off", "controller", r.host, "port", port)
	}
	return errors.Join(errs...)
}

// Reset forgets acknowledgements so the next Run addresses every port.
func (r *HVRelay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.acked)
}

// Send posts one command for one port. Any non-2xx response is an error.
func (r *HVRelay) Send(ctx context.Context, port int, command string) error {
	body, err := json.Marshal(hvCommand{PortID: port, CommandType: command})
	if err != nil {
		return fmt.Errorf("failed to encode hv command; %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build hv request; %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach hv controller %s port %d; %w", r.host, port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hv controller %s port %d returned status %d: %s",
			r.host, port, resp.StatusCode, bytes.TrimSpace(detail))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (r *HVRelay) isAcked(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked[port]
}

func (r *HVRelay) markAcked(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acked[port] = true
}
