package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/lh2monitor/lh2monitor.log"

	// Status source defaults.
	DefaultStatusPath                 = "/home/sks/share/monitor-tmp/H2tgtPresentStatus.txt"
	DefaultStatusKey                  = "Alert_H2leak"
	DefaultStatusAlertValue           = "1"
	DefaultStatusNormalValue          = "0"
	DefaultStatusPollIntervalMs       = 1000
	DefaultStatusReadErrorLogInterval = 60 // seconds

	// Trigger marker defaults.
	DefaultTriggerSkipPath   = "/tmp/skip.now"
	DefaultTriggerCancelPath = "/tmp/cancel.now"
	DefaultTriggerExtendPath = "/tmp/extend.now"
	DefaultTriggerWatch      = true

	// Sequence defaults.
	DefaultSequenceWaitSeconds      = 900
	DefaultSequenceWaitTickMs       = 1000
	DefaultSequenceSkipGraceSeconds = 5
	DefaultSequenceRetryDelayMs     = 2000
	DefaultSSHUser                  = "sks"
	DefaultSSHTimeoutSeconds        = 10

	// Notification defaults.
	DefaultNotifyWebhookURLEnv  = "DISCORD_WEBHOOK_URL"
	DefaultNotifyUsername       = "LH2 Monitor Bot"
	DefaultNotifySuccessStatus  = 204
	DefaultNotifyTimeoutSeconds = 10

	// Daemon defaults.
	DefaultDaemonHTTPPort           = 7610
	DefaultDaemonHTTPBind           = "127.0.0.1"
	DefaultDaemonShutdownTimeout    = 30 // seconds
	DefaultDaemonPIDFile            = "~/.config/lh2monitor/daemon.pid"
	DefaultDaemonConsole            = true
	DefaultDaemonMetricsInterval    = 15 // seconds
	DefaultDaemonEventBusBufferSize = 256
)

// Step kinds understood by the plan builder.
const (
	StepKindHVRelay = "hv_relay"
	StepKindSSH     = "ssh"
	StepKindSCPI    = "scpi"
	StepKindCommand = "command"
)

// DefaultSteps returns the shutdown plan used when none is configured:
// HV off on both relay controllers, then (after the wait window) USB hubs off
// on the readout hosts and the Kikusui main output off.
func DefaultSteps() []StepConfig {
	hosts := []string{"192.168.20.12", "192.168.20.13"}
	return []StepConfig{
		{
			ID:     "hv_off",
			Label:  "HV Off",
			Kind:   StepKindHVRelay,
			Policy: "retry_forever",
			Hosts:  hosts,
			Port:   8000,
			Ports:  []int{0, 1, 2, 3},
		},
		{
			ID:          "uhubctl",
			Label:       "uhubctl",
			Kind:        StepKindSSH,
			Gated:       true,
			Hosts:       hosts,
			Ports:       []int{1, 2, 3, 4},
			HubLocation: "1-1",
			Uhubctl:     "/usr/sbin/uhubctl",
		},
		{
			ID:      "kikusui_off",
			Label:   "Kikusui Off",
			Kind:    StepKindSCPI,
			Gated:   true,
			Address: "192.168.20.42:5025",
			Action:  "off",
		},
	}
}

// NewDefaultConfig returns a Config populated with every default value.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Status: StatusConfig{
			Path:                 DefaultStatusPath,
			Key:                  DefaultStatusKey,
			AlertValue:           DefaultStatusAlertValue,
			NormalValue:          DefaultStatusNormalValue,
			PollIntervalMs:       DefaultStatusPollIntervalMs,
			ReadErrorLogInterval: DefaultStatusReadErrorLogInterval,
		},
		Triggers: TriggersConfig{
			SkipPath:   DefaultTriggerSkipPath,
			CancelPath: DefaultTriggerCancelPath,
			ExtendPath: DefaultTriggerExtendPath,
			Watch:      DefaultTriggerWatch,
		},
		Sequence: SequenceConfig{
			WaitSeconds:      DefaultSequenceWaitSeconds,
			WaitTickMs:       DefaultSequenceWaitTickMs,
			SkipGraceSeconds: DefaultSequenceSkipGraceSeconds,
			RetryDelayMs:     DefaultSequenceRetryDelayMs,
			SSH: SSHConfig{
				User:           DefaultSSHUser,
				TimeoutSeconds: DefaultSSHTimeoutSeconds,
			},
			Steps: DefaultSteps(),
		},
		Notify: NotifyConfig{
			WebhookURLEnv:  DefaultNotifyWebhookURLEnv,
			Username:       DefaultNotifyUsername,
			SuccessStatus:  DefaultNotifySuccessStatus,
			TimeoutSeconds: DefaultNotifyTimeoutSeconds,
		},
		Daemon: DaemonConfig{
			HTTPPort:        DefaultDaemonHTTPPort,
			HTTPBind:        DefaultDaemonHTTPBind,
			ShutdownTimeout: DefaultDaemonShutdownTimeout,
			PIDFile:         DefaultDaemonPIDFile,
			Console:         DefaultDaemonConsole,
			Metrics:         MetricsConfig{CollectionInterval: DefaultDaemonMetricsInterval},
			EventBus:        EventBusConfig{BufferSize: DefaultDaemonEventBusBufferSize},
		},
	}
}

// setDefaults registers all default configuration values with a viper instance.
// Steps are not registered; an empty plan is replaced by DefaultSteps after
// unmarshalling.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetDefault("status.path", DefaultStatusPath)
	v.SetDefault("status.key", DefaultStatusKey)
	v.SetDefault("status.alert_value", DefaultStatusAlertValue)
	v.SetDefault("status.normal_value", DefaultStatusNormalValue)
	v.SetDefault("status.poll_interval_ms", DefaultStatusPollIntervalMs)
	v.SetDefault("status.read_error_log_interval", DefaultStatusReadErrorLogInterval)

	v.SetDefault("triggers.skip_path", DefaultTriggerSkipPath)
	v.SetDefault("triggers.cancel_path", DefaultTriggerCancelPath)
	v.SetDefault("triggers.extend_path", DefaultTriggerExtendPath)
	v.SetDefault("triggers.watch", DefaultTriggerWatch)

	v.SetDefault("sequence.wait_seconds", DefaultSequenceWaitSeconds)
	v.SetDefault("sequence.wait_tick_ms", DefaultSequenceWaitTickMs)
	v.SetDefault("sequence.skip_grace_seconds", DefaultSequenceSkipGraceSeconds)
	v.SetDefault("sequence.retry_delay_ms", DefaultSequenceRetryDelayMs)
	v.SetDefault("sequence.ssh.user", DefaultSSHUser)
	v.SetDefault("sequence.ssh.key_file", "")
	v.SetDefault("sequence.ssh.known_hosts_file", "")
	v.SetDefault("sequence.ssh.timeout_seconds", DefaultSSHTimeoutSeconds)

	v.SetDefault("notify.webhook_url_env", DefaultNotifyWebhookURLEnv)
	v.SetDefault("notify.username", DefaultNotifyUsername)
	v.SetDefault("notify.success_status", DefaultNotifySuccessStatus)
	v.SetDefault("notify.timeout_seconds", DefaultNotifyTimeoutSeconds)

	v.SetDefault("daemon.http_port", DefaultDaemonHTTPPort)
	v.SetDefault("daemon.http_bind", DefaultDaemonHTTPBind)
	v.SetDefault("daemon.shutdown_timeout", DefaultDaemonShutdownTimeout)
	v.SetDefault("daemon.pid_file", DefaultDaemonPIDFile)
	v.SetDefault("daemon.console", DefaultDaemonConsole)
	v.SetDefault("daemon.metrics.collection_interval", DefaultDaemonMetricsInterval)
	v.SetDefault("daemon.event_bus.buffer_size", DefaultDaemonEventBusBufferSize)

	v.SetDefault("telemetry.otlp_endpoint", "")
}
