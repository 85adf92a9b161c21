// Package daemonclient talks to a running monitor's local HTTP server.
package daemonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/daemon"
	"github.com/leefowlercu/lh2-monitor/internal/monitor"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
	"github.com/leefowlercu/lh2-monitor/internal/version"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 5 * time.Second

// Client provides a shared HTTP client for daemon endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBaseURL overrides the URL derived from configuration.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// New creates a Client using daemon configuration.
func New(cfg config.DaemonConfig, opts ...Option) *Client {
	client := &Client{
		baseURL:    ResolveBaseURL(cfg),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ResolveBaseURL builds the daemon base URL from config.
func ResolveBaseURL(cfg config.DaemonConfig) string {
	return "http://" + net.JoinHostPort(NormalizeBind(cfg.HTTPBind), strconv.Itoa(cfg.HTTPPort))
}

// NormalizeBind maps wildcard binds to loopback for local clients.
func NormalizeBind(bind string) string {
	switch bind {
	case "", "0.0.0.0":
		return "127.0.0.1"
	case "::":
		return "::1"
	}
	return bind
}

// Ready fetches /readyz health status. An unready daemon still returns its
// status body.
func (c *Client) Ready(ctx context.Context) (*daemon.HealthStatus, error) {
	var status daemon.HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &status, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &status, nil
}

// Status fetches the monitor snapshot.
func (c *Client) Status(ctx context.Context) (*monitor.Snapshot, error) {
	var snap monitor.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Trigger asserts kind through the daemon.
func (c *Client) Trigger(ctx context.Context, kind trigger.Kind) error {
	return c.doJSON(ctx, http.MethodPost, "/triggers/"+kind.String(), nil, nil)
}

// ClearTriggers removes every marker through the daemon.
func (c *Client) ClearTriggers(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/triggers", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, extraOK ...int) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("failed to encode request; %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request; %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon; %w", err)
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode, extraOK) {
		var errResp struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return fmt.Errorf("daemon request failed; %s", errResp.Error)
		}
		return fmt.Errorf("daemon request failed; status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response; %w", err)
	}
	return nil
}

func success(code int, extra []int) bool {
	if code >= 200 && code < 300 {
		return true
	}
	for _, c := range extra {
		if code == c {
			return true
		}
	}
	return false
}
