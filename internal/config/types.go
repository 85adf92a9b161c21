package config

import (
	"os"
	"time"
)

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel  string          `yaml:"log_level" mapstructure:"log_level"`
	LogFile   string          `yaml:"log_file" mapstructure:"log_file"`
	Status    StatusConfig    `yaml:"status" mapstructure:"status"`
	Triggers  TriggersConfig  `yaml:"triggers" mapstructure:"triggers"`
	Sequence  SequenceConfig  `yaml:"sequence" mapstructure:"sequence"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Daemon    DaemonConfig    `yaml:"daemon" mapstructure:"daemon"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// StatusConfig holds the status file source and poll settings.
type StatusConfig struct {
	Path                 string `yaml:"path" mapstructure:"path"`
	Key                  string `yaml:"key" mapstructure:"key"`
	AlertValue           string `yaml:"alert_value" mapstructure:"alert_value"`
	NormalValue          string `yaml:"normal_value" mapstructure:"normal_value"`
	PollIntervalMs       int    `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	ReadErrorLogInterval int    `yaml:"read_error_log_interval" mapstructure:"read_error_log_interval"` // seconds
}

// PollInterval returns the poll interval as a duration.
func (c StatusConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// TriggersConfig holds the operator marker paths.
type TriggersConfig struct {
	SkipPath   string `yaml:"skip_path" mapstructure:"skip_path"`
	CancelPath string `yaml:"cancel_path" mapstructure:"cancel_path"`
	ExtendPath string `yaml:"extend_path" mapstructure:"extend_path"`
	Watch      bool   `yaml:"watch" mapstructure:"watch"`
}

// SequenceConfig holds the shutdown plan and its timing.
type SequenceConfig struct {
	WaitSeconds      int          `yaml:"wait_seconds" mapstructure:"wait_seconds"`
	WaitTickMs       int          `yaml:"wait_tick_ms" mapstructure:"wait_tick_ms"`
	SkipGraceSeconds int          `yaml:"skip_grace_seconds" mapstructure:"skip_grace_seconds"`
	RetryDelayMs     int          `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	SSH              SSHConfig    `yaml:"ssh" mapstructure:"ssh"`
	Steps            []StepConfig `yaml:"steps" mapstructure:"steps"`
}

// SSHConfig holds the identity used by ssh steps.
type SSHConfig struct {
	User           string `yaml:"user" mapstructure:"user"`
	KeyFile        string `yaml:"key_file" mapstructure:"key_file"`
	KnownHostsFile string `yaml:"known_hosts_file" mapstructure:"known_hosts_file"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// StepConfig describes one step of the shutdown plan. Which fields apply
// depends on Kind.
type StepConfig struct {
	ID     string `yaml:"id" mapstructure:"id"`
	Label  string `yaml:"label" mapstructure:"label"`
	Kind   string `yaml:"kind" mapstructure:"kind"`
	Gated  bool   `yaml:"gated" mapstructure:"gated"`
	Policy string `yaml:"policy,omitempty" mapstructure:"policy"`

	// hv_relay, ssh
	Hosts []string `yaml:"hosts,omitempty,flow" mapstructure:"hosts"`
	Port  int      `yaml:"port,omitempty" mapstructure:"port"`

	// hv_relay relay ports, ssh hub ports
	Ports []int `yaml:"ports,omitempty,flow" mapstructure:"ports"`

	// ssh
	HubLocation string   `yaml:"hub_location,omitempty" mapstructure:"hub_location"`
	Uhubctl     string   `yaml:"uhubctl,omitempty" mapstructure:"uhubctl"`
	Commands    []string `yaml:"commands,omitempty" mapstructure:"commands"`

	// scpi
	Address string  `yaml:"address,omitempty" mapstructure:"address"`
	Action  string  `yaml:"action,omitempty" mapstructure:"action"`
	Voltage float64 `yaml:"voltage,omitempty" mapstructure:"voltage"`

	// command
	Path string   `yaml:"path,omitempty" mapstructure:"path"`
	Args []string `yaml:"args,omitempty,flow" mapstructure:"args"`

	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

// NotifyConfig holds webhook notification configuration.
type NotifyConfig struct {
	WebhookURL     *string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
	WebhookURLEnv  string  `yaml:"webhook_url_env" mapstructure:"webhook_url_env"`
	Username       string  `yaml:"username" mapstructure:"username"`
	SuccessStatus  int     `yaml:"success_status" mapstructure:"success_status"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ResolveWebhookURL returns the webhook URL from config or falls back to the
// environment variable.
func (c *NotifyConfig) ResolveWebhookURL() string {
	if c.WebhookURL != nil && *c.WebhookURL != "" {
		return *c.WebhookURL
	}
	if c.WebhookURLEnv == "" {
		return ""
	}
	return os.Getenv(c.WebhookURLEnv)
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	HTTPPort        int            `yaml:"http_port" mapstructure:"http_port"`
	HTTPBind        string         `yaml:"http_bind" mapstructure:"http_bind"`
	ShutdownTimeout int            `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	PIDFile         string         `yaml:"pid_file" mapstructure:"pid_file"`
	Console         bool           `yaml:"console" mapstructure:"console"`
	Metrics         MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	EventBus        EventBusConfig `yaml:"event_bus" mapstructure:"event_bus"`
}

// MetricsConfig holds metrics collection configuration.
type MetricsConfig struct {
	CollectionInterval int `yaml:"collection_interval" mapstructure:"collection_interval"`
}

// EventBusConfig holds event bus configuration.
type EventBusConfig struct {
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// TelemetryConfig holds tracing export configuration.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector address; empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
}
