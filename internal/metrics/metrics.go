// Package metrics provides Prometheus metrics for the leak monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "lh2monitor"
)

// Status metrics track the polled leak indicator.
var (
	// AlertActive is 1 while the confirmed state is Alert.
	AlertActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "alert_active",
		Help:      "Whether the leak alert is currently raised (1=alert, 0=normal)",
	})

	// StatusPollsTotal is the total number of status polls.
	StatusPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_polls_total",
		Help:      "Total number of status file polls",
	})

	// StatusReadErrorsTotal is the total number of failed status reads.
	StatusReadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_read_errors_total",
		Help:      "Total number of status reads that failed",
	})

	// AlertEdgesTotal counts confirmed transitions by direction.
	AlertEdgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_edges_total",
		Help:      "Total number of alert state transitions",
	}, []string{"direction"})

	// AlertsIgnoredTotal counts raised edges that arrived while a sequence was in flight.
	AlertsIgnoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_ignored_total",
		Help:      "Total number of alert edges ignored because a sequence was running",
	})
)

// Sequence metrics track shutdown sequence execution.
var (
	// SequenceRunning is 1 while a shutdown sequence is in flight.
	SequenceRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sequence_running",
		Help:      "Whether a shutdown sequence is in flight",
	})

	// SequencesTotal counts finished sequences by classification.
	SequencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sequences_total",
		Help:      "Total number of shutdown sequences by result",
	}, []string{"classification"})

	// SequenceDuration is a histogram of sequence duration in seconds.
	SequenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sequence_duration_seconds",
		Help:      "Duration of shutdown sequences in seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68m
	})

	// StepsTotal counts step results by step and status.
	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "steps_total",
		Help:      "Total number of sequence steps by result",
	}, []string{"step", "status"})

	// StepDuration is a histogram of step duration in seconds.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Duration of sequence steps in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~102s
	}, []string{"step"})

	// ActuatorRetriesTotal counts failed attempts that were retried.
	ActuatorRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actuator_retries_total",
		Help:      "Total number of retried actuator attempts",
	}, []string{"step"})
)

// Wait window metrics.
var (
	// WaitRemainingSeconds is the time left in the open wait window.
	WaitRemainingSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wait_remaining_seconds",
		Help:      "Seconds remaining in the open wait window (0 when closed)",
	})

	// WaitOutcomesTotal counts wait window outcomes.
	WaitOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wait_outcomes_total",
		Help:      "Total number of wait windows by outcome",
	}, []string{"outcome"})
)

// Notification metrics.
var (
	// NotificationsTotal counts notification attempts by result.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notification attempts",
	}, []string{"result"})
)

// Trigger metrics.
var (
	// TriggerMarkerPresent is 1 while the marker file for a trigger kind exists.
	TriggerMarkerPresent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "trigger_marker_present",
		Help:      "Whether the trigger marker file exists (1=present)",
	}, []string{"kind"})

	// StatusAgeSeconds is the time since the status file was last polled.
	StatusAgeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "status_age_seconds",
		Help:      "Seconds since the last status file poll",
	})
)

// Event bus metrics.
var (
	// EventBusSubscribers is the number of live event bus subscribers.
	EventBusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_bus_subscribers",
		Help:      "Number of live event bus subscribers",
	})

	// EventBusDroppedEvents counts events dropped because a subscriber was full.
	EventBusDroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_bus_dropped_events_total",
		Help:      "Total number of events dropped due to full subscriber buffers",
	}, []string{"event_type"})
)

// Daemon metrics track daemon health and uptime.
var (
	// DaemonInfo provides daemon version and build information.
	DaemonInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_info",
		Help:      "Daemon version and build information",
	}, []string{"version", "go_version"})

	// DaemonStartTime is the unix timestamp when the daemon started.
	DaemonStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_start_time_seconds",
		Help:      "Unix timestamp when the daemon started",
	})

	// ComponentStatus tracks the health status of daemon components.
	ComponentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "component_status",
		Help:      "Health status of daemon components (1=healthy, 0=unhealthy)",
	}, []string{"component"})
)
