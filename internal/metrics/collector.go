package metrics

import (
	"context"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider refreshes gauges that are cheaper to sample than to push. A
// non-nil error marks the component unhealthy on component_status.
type Provider interface {
	CollectMetrics(ctx context.Context) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) error

// CollectMetrics implements Provider.
func (f ProviderFunc) CollectMetrics(ctx context.Context) error {
	return f(ctx)
}

// Collector samples registered providers on a fixed interval.
type Collector struct {
	interval time.Duration
	version  string

	mu        sync.Mutex
	providers map[string]Provider
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewCollector creates a collector. A non-positive interval means 15s.
func NewCollector(interval time.Duration, version string) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		interval:  interval,
		version:   version,
		providers: make(map[string]Provider),
	}
}

// Register adds or replaces the provider for component name.
func (c *Collector) Register(name string, p Provider) {
	c.mu.Lock()
	c.providers[name] = p
	c.mu.Unlock()
}

// Unregister removes the provider for component name.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	delete(c.providers, name)
	c.mu.Unlock()
	ComponentStatus.DeleteLabelValues(name)
}

// Running reports whether the sampling loop is active.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Start publishes build info, samples once, then samples every interval
// until Stop or ctx is done. Starting a running collector is a no-op.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	DaemonStartTime.SetToCurrentTime()
	DaemonInfo.WithLabelValues(c.version, runtime.Version()).Set(1)

	c.sample(loopCtx)
	go c.loop(loopCtx, done)
	return nil
}

// Stop ends the sampling loop and waits for it, bounded by ctx.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.sample(ctx)
		}
	}
}

func (c *Collector) sample(ctx context.Context) {
	c.mu.Lock()
	names := slices.Sorted(maps.Keys(c.providers))
	providers := maps.Clone(c.providers)
	c.mu.Unlock()

	for _, name := range names {
		healthy := 1.0
		if err := providers[name].CollectMetrics(ctx); err != nil {
			healthy = 0
		}
		ComponentStatus.WithLabelValues(name).Set(healthy)
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPoll records one status poll. A failed read leaves alert_active as it was.
func RecordPoll(alert bool, err error) {
	StatusPollsTotal.Inc()
	if err != nil {
		StatusReadErrorsTotal.Inc()
		return
	}
	if alert {
		AlertActive.Set(1)
	} else {
		AlertActive.Set(0)
	}
}

// RecordEdge records a confirmed alert transition.
func RecordEdge(direction string) {
	AlertEdgesTotal.WithLabelValues(direction).Inc()
}

// RecordIgnoredAlert records a raised edge dropped by the gate.
func RecordIgnoredAlert() {
	AlertsIgnoredTotal.Inc()
}

// SetSequenceRunning flips the sequence_running gauge.
func SetSequenceRunning(running bool) {
	if running {
		SequenceRunning.Set(1)
		return
	}
	SequenceRunning.Set(0)
}

// RecordSequence records a finished shutdown sequence.
func RecordSequence(classification string, duration time.Duration) {
	SequencesTotal.WithLabelValues(classification).Inc()
	SequenceDuration.Observe(duration.Seconds())
}

// RecordStep records a step result. Steps that never ran carry no duration.
func RecordStep(step, status string, duration time.Duration) {
	StepsTotal.WithLabelValues(step, status).Inc()
	if duration > 0 {
		StepDuration.WithLabelValues(step).Observe(duration.Seconds())
	}
}

// RecordRetry records a failed actuator attempt that will be retried.
func RecordRetry(step string) {
	ActuatorRetriesTotal.WithLabelValues(step).Inc()
}

// UpdateWaitRemaining sets the time left in the open wait window.
func UpdateWaitRemaining(remaining time.Duration) {
	WaitRemainingSeconds.Set(remaining.Seconds())
}

// RecordWaitOutcome records how a wait window closed and zeroes the remaining gauge.
func RecordWaitOutcome(outcome string) {
	WaitOutcomesTotal.WithLabelValues(outcome).Inc()
	WaitRemainingSeconds.Set(0)
}

// RecordNotification records a webhook delivery attempt.
func RecordNotification(err error) {
	if err != nil {
		NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	NotificationsTotal.WithLabelValues("delivered").Inc()
}
