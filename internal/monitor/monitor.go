// Package monitor ties the status poller to the shutdown sequencer: an alert
// edge starts at most one sequence at a time, and every edge and sequence
// summary is sent to the notifier.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/events"
	"github.com/leefowlercu/lh2-monitor/internal/gate"
	"github.com/leefowlercu/lh2-monitor/internal/metrics"
	"github.com/leefowlercu/lh2-monitor/internal/notify"
	"github.com/leefowlercu/lh2-monitor/internal/sequence"
	"github.com/leefowlercu/lh2-monitor/internal/status"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
	"github.com/leefowlercu/lh2-monitor/internal/waitwindow"
)

// Notification texts for alert edges.
const (
	MessageAlertRaised  = "LH2 leak flag detected. Starting shutdown sequence."
	MessageAlertCleared = "LH2 leak flag cleared. Status back to normal."
)

// StartupError reports a condition that prevents the monitor from starting
// safely. It is the only fatal error class.
type StartupError struct {
	Op  string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("failed to %s; %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// ErrNoWebhook is returned by RequireWebhook when no notification endpoint
// is configured.
var ErrNoWebhook = errors.New("notification webhook URL is not configured")

// RequireWebhook returns a StartupError when url is empty.
func RequireWebhook(url, envName string) error {
	if url != "" {
		return nil
	}
	return &StartupError{
		Op:  "resolve notification endpoint",
		Err: fmt.Errorf("%w; set notify.webhook_url or %s (a .env file next to the config works)", ErrNoWebhook, envName),
	}
}

// PlanFunc returns the steps for a new sequence run.
type PlanFunc func() ([]sequence.Step, error)

// Option configures a Monitor.
type Option func(*Monitor)

// WithNotifier sets the notifier for edges and summaries.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Monitor) {
		m.notifier = n
	}
}

// WithBus publishes alert, sequence and notification events.
func WithBus(bus events.Bus) Option {
	return func(m *Monitor) {
		m.bus = bus
	}
}

// WithLogger sets the logger for the monitor and the components it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithPollerOptions passes options to the status poller.
func WithPollerOptions(opts ...status.PollerOption) Option {
	return func(m *Monitor) {
		m.pollerOpts = append(m.pollerOpts, opts...)
	}
}

// WithSequencerOptions passes options to the sequencer.
func WithSequencerOptions(opts ...sequence.Option) Option {
	return func(m *Monitor) {
		m.seqOpts = append(m.seqOpts, opts...)
	}
}

// WithWaitObserver registers a function receiving every wait window tick.
func WithWaitObserver(fn func(runID string, t waitwindow.Tick)) Option {
	return func(m *Monitor) {
		m.onTick = fn
	}
}

// WithOnReport registers a function called with every finished report,
// after the summary notification was attempted.
func WithOnReport(fn func(*sequence.Report)) Option {
	return func(m *Monitor) {
		m.onReport = fn
	}
}

// WaitStatus is the countdown of an open wait window.
type WaitStatus struct {
	RunID     string        `json:"run_id"`
	Remaining time.Duration `json:"remaining"`
	Deadline  time.Time     `json:"deadline"`
	Extended  bool          `json:"extended"`
}

// ReportSummary is the externally visible form of a finished sequence.
type ReportSummary struct {
	RunID          string                `json:"run_id"`
	Classification string                `json:"classification"`
	Summary        string                `json:"summary"`
	WaitOutcome    string                `json:"wait_outcome,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
	Steps          []sequence.StepResult `json:"steps"`
}

// Snapshot is the monitor state served on the status endpoint.
type Snapshot struct {
	Status          status.Snapshot `json:"status"`
	SequenceRunning bool            `json:"sequence_running"`
	Wait            *WaitStatus     `json:"wait,omitempty"`
	LastReport      *ReportSummary  `json:"last_report,omitempty"`
	IgnoredAlerts   int64           `json:"ignored_alerts"`
	Sequences       int64           `json:"sequences"`
}

// Monitor implements status.EdgeHandler and owns the sequence slot.
type Monitor struct {
	source     status.Source
	store      trigger.Store
	plan       PlanFunc
	notifier   notify.Notifier
	bus        events.Bus
	logger     *slog.Logger
	pollerOpts []status.PollerOption
	seqOpts    []sequence.Option
	onTick     func(string, waitwindow.Tick)
	onReport   func(*sequence.Report)

	poller    *status.Poller
	sequencer *sequence.Sequencer
	slot      gate.Slot[*sequence.Report]
	notifying sync.WaitGroup
	cleared   atomic.Bool

	mu         sync.RWMutex
	wait       *WaitStatus
	lastReport *ReportSummary
	ignored    int64
	sequences  int64
}

// New creates a monitor reading alert state from source, with trigger markers
// in store and shutdown steps from plan.
func New(source status.Source, store trigger.Store, plan PlanFunc, opts ...Option) *Monitor {
	m := &Monitor{
		source:   source,
		store:    store,
		plan:     plan,
		notifier: notify.Nop{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.plan == nil {
		m.plan = func() ([]sequence.Step, error) { return nil, nil }
	}

	pollerOpts := append([]status.PollerOption{
		status.WithLogger(m.logger.With("component", "poller")),
	}, m.pollerOpts...)
	pollerOpts = append(pollerOpts, status.WithObserver(m.observePoll))
	m.poller = status.NewPoller(source, m, pollerOpts...)

	seqOpts := append([]sequence.Option{
		sequence.WithLogger(m.logger.With("component", "sequencer")),
	}, m.seqOpts...)
	seqOpts = append(seqOpts,
		sequence.WithBus(m.bus),
		sequence.WithWindowObserver(m.observeTick),
	)
	m.sequencer = sequence.New(store, seqOpts...)

	m.slot.OnPanic = func(r any) *sequence.Report {
		m.logger.Error("shutdown sequence panicked", "panic", r)
		return nil
	}

	return m
}

// Poller returns the status poller driven by Run.
func (m *Monitor) Poller() *status.Poller {
	return m.poller
}

// Sequencer returns the sequencer executing shutdown plans.
func (m *Monitor) Sequencer() *sequence.Sequencer {
	return m.sequencer
}

// ClearMarkers removes stale trigger markers. Failure is a StartupError.
func (m *Monitor) ClearMarkers() error {
	if err := m.store.Clear(); err != nil {
		return &StartupError{Op: "clear trigger markers", Err: err}
	}
	m.cleared.Store(true)
	return nil
}

// Run clears stale markers unless ClearMarkers already succeeded, then polls
// until ctx is done. It returns after the in-flight sequence and pending
// notifications have finished.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.cleared.Load() {
		if err := m.ClearMarkers(); err != nil {
			return err
		}
	}

	m.poller.Run(ctx)

	m.logger.Info("waiting for in-flight work", "sequence_running", m.slot.Busy())
	_ = m.slot.Wait(context.Background())
	m.notifying.Wait()

	return nil
}

// Wait blocks until the in-flight sequence and pending notifications finish
// or ctx is done.
func (m *Monitor) Wait(ctx context.Context) error {
	if err := m.slot.Wait(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		m.notifying.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for notifications; %w", ctx.Err())
	}
}

// SequenceRunning reports whether a shutdown sequence is in flight.
func (m *Monitor) SequenceRunning() bool {
	return m.slot.Busy()
}

// Snapshot returns the current monitor state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Status:          m.poller.Current(),
		SequenceRunning: m.slot.Busy(),
		IgnoredAlerts:   m.ignored,
		Sequences:       m.sequences,
	}
	if m.wait != nil {
		w := *m.wait
		snap.Wait = &w
	}
	if m.lastReport != nil {
		r := *m.lastReport
		snap.LastReport = &r
	}
	return snap
}

// AlertRaised starts a shutdown sequence unless one is already running.
func (m *Monitor) AlertRaised(ctx context.Context, r status.Reading) {
	m.logger.Warn("LH2 leak flag detected", "raw", r.Raw, "previous", r.Previous)
	metrics.RecordEdge("raised")

	_, started := m.slot.TryStart(ctx, m.runSequence)
	if !started {
		m.mu.Lock()
		m.ignored++
		m.mu.Unlock()

		metrics.RecordIgnoredAlert()
		m.logger.Error("alert raised while a shutdown sequence is running; not starting another")
		m.publish(ctx, events.NewAlertIgnored(string(r.State), string(r.Previous), r.Raw, r.At))
		return
	}

	m.publish(ctx, events.NewAlertRaised(string(r.State), string(r.Previous), r.Raw, r.At))
	m.notifyAsync(ctx, MessageAlertRaised)
}

// AlertCleared reports the return to normal.
func (m *Monitor) AlertCleared(ctx context.Context, r status.Reading) {
	m.logger.Info("LH2 leak flag cleared", "raw", r.Raw)
	metrics.RecordEdge("cleared")

	m.publish(ctx, events.NewAlertCleared(string(r.State), string(r.Previous), r.Raw, r.At))
	m.notifyAsync(ctx, MessageAlertCleared)
}

func (m *Monitor) runSequence(ctx context.Context) *sequence.Report {
	m.mu.Lock()
	m.sequences++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.wait = nil
		m.mu.Unlock()
	}()

	steps, err := m.plan()
	if err != nil {
		// Nothing can be switched off without a plan; report it as a failed run.
		m.logger.Error("failed to build shutdown plan", "error", err)
		steps = []sequence.Step{{
			ID:    "plan",
			Label: "Build shutdown plan",
			Run:   func(context.Context) error { return err },
		}}
	}

	report := m.sequencer.Execute(ctx, steps)

	m.mu.Lock()
	m.lastReport = &ReportSummary{
		RunID:          report.RunID,
		Classification: string(report.Classification()),
		Summary:        report.Summary(),
		WaitOutcome:    string(report.WaitOutcome),
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		Steps:          report.Steps,
	}
	m.mu.Unlock()

	m.notify(context.WithoutCancel(ctx), report.Summary())

	if m.onReport != nil {
		m.onReport(report)
	}
	return report
}

func (m *Monitor) observeTick(runID string, t waitwindow.Tick) {
	m.mu.Lock()
	if t.Outcome.Terminal() {
		m.wait = nil
	} else {
		m.wait = &WaitStatus{
			RunID:     runID,
			Remaining: t.Remaining,
			Deadline:  t.Deadline,
			Extended:  t.Extended,
		}
	}
	m.mu.Unlock()

	if m.onTick != nil {
		m.onTick(runID, t)
	}
}

func (m *Monitor) observePoll(s status.Snapshot, err error) {
	metrics.RecordPoll(s.State.IsAlert(), err)
	if err != nil {
		m.publish(context.Background(), events.NewStatusReadFailed(m.sourcePath(), err))
	}
}

func (m *Monitor) sourcePath() string {
	if p, ok := m.source.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// notifyAsync delivers message without blocking the poll loop.
func (m *Monitor) notifyAsync(ctx context.Context, message string) {
	ctx = context.WithoutCancel(ctx)
	m.notifying.Add(1)
	go func() {
		defer m.notifying.Done()
		m.notify(ctx, message)
	}()
}

func (m *Monitor) notify(ctx context.Context, message string) {
	if err := m.notifier.Notify(ctx, message); err != nil {
		m.logger.Error("failed to send notification", "notifier", m.notifier.Name(), "error", err)
		m.publish(ctx, events.NewNotificationFailed(message, err))
	}
}

func (m *Monitor) publish(ctx context.Context, event events.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		m.logger.Debug("failed to publish event", "event_type", event.Type, "error", err)
	}
}
