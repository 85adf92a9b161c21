// Package notify delivers operator notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/metrics"
	"github.com/leefowlercu/lh2-monitor/internal/version"
)

// Webhook delivery defaults.
const (
	DefaultUsername      = "LH2 Monitor Bot"
	DefaultSuccessStatus = http.StatusNoContent
	DefaultTimeout       = 10 * time.Second
)

// Notifier sends a message to the operators.
type Notifier interface {
	// Notify delivers message once. It does not retry.
	Notify(ctx context.Context, message string) error

	// Name returns the notifier name for logging.
	Name() string
}

// DeliveryError reports a webhook response other than the success status.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.Status)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.Status, e.Body)
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithUsername sets the display name attached to each message.
func WithUsername(name string) WebhookOption {
	return func(w *Webhook) {
		if name != "" {
			w.username = name
		}
	}
}

// WithSuccessStatus sets the only HTTP status treated as delivered.
func WithSuccessStatus(status int) WebhookOption {
	return func(w *Webhook) {
		if status > 0 {
			w.successStatus = status
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a client set with
// WithHTTPClient without modifying that client.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithNow sets the function stamping messages.
func WithNow(now func() time.Time) WebhookOption {
	return func(w *Webhook) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets the logger for the webhook.
func WithLogger(logger *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		w.logger = logger
	}
}

// Webhook posts messages to a chat webhook URL.
type Webhook struct {
	url           string
	username      string
	successStatus int
	client        *http.Client
	timeout       time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewWebhook creates a webhook notifier for url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:           url,
		username:      DefaultUsername,
		successStatus: DefaultSuccessStatus,
		client:        &http.Client{},
		timeout:       DefaultTimeout,
		now:           time.Now,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	client := *w.client
	client.Timeout = w.timeout
	w.client = &client

	return w
}

// Name returns the notifier identifier.
func (w *Webhook) Name() string { return "webhook" }

// Notify posts message prefixed with the current local time in ctime form.
func (w *Webhook) Notify(ctx context.Context, message string) error {
	err := w.post(ctx, Payload{
		Content:  fmt.Sprintf("[%s] %s", w.now().Format(time.ANSIC), message),
		Username: w.username,
	})
	metrics.RecordNotification(err)
	if err != nil {
		return err
	}
	w.logger.Info("notification sent", "message", message)
	return nil
}

func (w *Webhook) post(ctx context.Context, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload; %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create webhook request; %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook; %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != w.successStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// Nop discards every message.
type Nop struct{}

// Name returns the notifier identifier.
func (Nop) Name() string { return "nop" }

// Notify does nothing.
func (Nop) Notify(context.Context, string) error { return nil }
