package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leefowlercu/lh2-monitor/internal/events"
	"github.com/leefowlercu/lh2-monitor/internal/metrics"
	"github.com/leefowlercu/lh2-monitor/internal/retry"
	"github.com/leefowlercu/lh2-monitor/internal/telemetry"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
	"github.com/leefowlercu/lh2-monitor/internal/waitwindow"
)

// DefaultSkipGrace is the pause between a skipped wait and the first gated step.
const DefaultSkipGrace = 5 * time.Second

// ErrShutdown marks steps that were not started because the monitor is
// shutting down.
var ErrShutdown = errors.New("monitor shut down before the step started")

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithWait sets the wait window duration.
func WithWait(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.timing.Wait = d
		}
	}
}

// WithWaitTick sets the wait window evaluation period.
func WithWaitTick(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.timing.WaitTick = d
		}
	}
}

// WithSkipGrace sets the pause after a skipped wait.
func WithSkipGrace(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.timing.SkipGrace = d
		}
	}
}

// WithRetryDelay sets the constant delay used by RetryForever steps.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.timing.RetryDelay = d
		}
	}
}

// WithClock sets the clock used by the wait window and the skip grace.
func WithClock(c waitwindow.Clock) Option {
	return func(s *Sequencer) {
		s.clock = c
	}
}

// WithBus publishes sequence progress to the event bus.
func WithBus(bus events.Bus) Option {
	return func(s *Sequencer) {
		s.bus = bus
	}
}

// WithWindowObserver registers a function receiving every wait window tick.
func WithWindowObserver(fn func(runID string, t waitwindow.Tick)) Option {
	return func(s *Sequencer) {
		s.onTick = fn
	}
}

// WithLogger sets the logger for the sequencer.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// Timing holds the durations a sequence run uses.
type Timing struct {
	Wait       time.Duration
	WaitTick   time.Duration
	SkipGrace  time.Duration
	RetryDelay time.Duration
}

// Sequencer executes shutdown plans.
type Sequencer struct {
	store  trigger.Store
	clock  waitwindow.Clock
	bus    events.Bus
	onTick func(string, waitwindow.Tick)
	logger *slog.Logger
	tracer trace.Tracer

	mu     sync.RWMutex
	timing Timing
}

// New creates a sequencer whose wait window reads triggers from store.
func New(store trigger.Store, opts ...Option) *Sequencer {
	s := &Sequencer{
		store:  store,
		clock:  waitwindow.RealClock(),
		logger: slog.Default(),
		tracer: telemetry.Tracer("github.com/leefowlercu/lh2-monitor/internal/sequence"),
		timing: Timing{
			Wait:       waitwindow.DefaultDuration,
			WaitTick:   waitwindow.DefaultTick,
			SkipGrace:  DefaultSkipGrace,
			RetryDelay: retry.DefaultDelay,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Timing returns the durations the next run will use.
func (s *Sequencer) Timing() Timing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timing
}

// SetTiming replaces the durations used by subsequent runs. A run already in
// progress keeps the values it started with. Negative durations and zero tick
// or retry delay values are ignored.
func (s *Sequencer) SetTiming(t Timing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Wait >= 0 {
		s.timing.Wait = t.Wait
	}
	if t.WaitTick > 0 {
		s.timing.WaitTick = t.WaitTick
	}
	if t.SkipGrace >= 0 {
		s.timing.SkipGrace = t.SkipGrace
	}
	if t.RetryDelay > 0 {
		s.timing.RetryDelay = t.RetryDelay
	}
}

// Execute runs steps in order and returns the report. It never returns early
// on a step failure. The wait window opens immediately before the first gated
// step; if it ends cancelled every gated step is recorded as NotExecuted.
func (s *Sequencer) Execute(ctx context.Context, steps []Step) *Report {
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	timing := s.Timing()

	ctx, span := s.tracer.Start(ctx, "sequence.execute", trace.WithAttributes(
		attribute.String("lh2monitor.run_id", runID),
		attribute.Int("lh2monitor.steps", len(steps)),
	))
	defer span.End()

	report := &Report{
		RunID:     runID,
		StartedAt: s.clock.Now(),
		Steps:     make([]StepResult, 0, len(steps)),
	}

	metrics.SetSequenceRunning(true)
	defer metrics.SetSequenceRunning(false)

	logger.Info("shutdown sequence started", "steps", len(steps))
	s.publish(ctx, events.NewSequenceStarted(runID, len(steps), report.StartedAt))

	firstGated := -1
	for i, step := range steps {
		if step.Gated {
			firstGated = i
			break
		}
	}

	proceed := true
	for i, step := range steps {
		if i == firstGated {
			report.WaitOutcome = s.runWindow(ctx, runID, timing, logger)
			proceed = report.WaitOutcome.Proceed()
			if report.WaitOutcome == waitwindow.Skipped && timing.SkipGrace > 0 {
				logger.Info("wait skipped; pausing before gated steps", "grace", timing.SkipGrace)
				select {
				case <-s.clock.After(timing.SkipGrace):
				case <-ctx.Done():
				}
			}
		}

		switch {
		case step.Gated && !proceed:
			logger.Info("step not executed; wait cancelled", "step", step.ID)
			report.Steps = append(report.Steps, s.skipped(ctx, runID, i, step))
		case ctx.Err() != nil:
			logger.Warn("step not executed; shutting down", "step", step.ID)
			report.Errors = append(report.Errors, &StepError{StepID: step.ID, Label: step.Label, Err: ErrShutdown})
			report.Steps = append(report.Steps, s.skipped(ctx, runID, i, step))
		default:
			result, stepErr := s.runStep(ctx, runID, i, step, timing.RetryDelay, logger)
			if stepErr != nil {
				report.Errors = append(report.Errors, stepErr)
			}
			report.Steps = append(report.Steps, result)
		}
	}

	report.FinishedAt = s.clock.Now()
	class := report.Classification()

	span.SetAttributes(attribute.String("lh2monitor.classification", string(class)))
	if class == ClassFailed {
		span.SetStatus(codes.Error, "one or more steps failed")
	}

	metrics.RecordSequence(string(class), report.Duration())
	logger.Info("shutdown sequence finished",
		"classification", class,
		"errors", len(report.Errors),
		"duration", report.Duration(),
	)
	s.publish(ctx, events.NewSequenceCompleted(events.SequenceEvent{
		RunID:          runID,
		Steps:          len(steps),
		Classification: string(class),
		Summary:        report.Summary(),
		Errors:         report.ErrorMessages(),
		WaitOutcome:    string(report.WaitOutcome),
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
	}))

	return report
}

func (s *Sequencer) runWindow(ctx context.Context, runID string, timing Timing, logger *slog.Logger) waitwindow.Outcome {
	ctx, span := s.tracer.Start(ctx, "sequence.wait")
	defer span.End()

	window := waitwindow.New(timing.Wait, s.store,
		waitwindow.WithTick(timing.WaitTick),
		waitwindow.WithClock(s.clock),
		waitwindow.WithLogger(logger),
		waitwindow.WithOnTick(func(t waitwindow.Tick) {
			if t.Outcome == waitwindow.Pending {
				metrics.UpdateWaitRemaining(t.Remaining)
				s.publish(ctx, events.NewWaitTick(runID, t.Remaining, t.Deadline, t.Extended))
			}
			if s.onTick != nil {
				s.onTick(runID, t)
			}
		}),
	)

	outcome, err := window.Run(ctx)
	if err != nil {
		logger.Warn("wait window interrupted", "error", err)
	}

	span.SetAttributes(attribute.String("lh2monitor.wait_outcome", string(outcome)))
	metrics.RecordWaitOutcome(string(outcome))
	s.publish(ctx, events.NewWaitFinished(runID, string(outcome)))
	return outcome
}

func (s *Sequencer) runStep(ctx context.Context, runID string, index int, step Step, retryDelay time.Duration, logger *slog.Logger) (StepResult, *StepError) {
	ctx, span := s.tracer.Start(ctx, "sequence.step", trace.WithAttributes(
		attribute.String("lh2monitor.step_id", step.ID),
		attribute.String("lh2monitor.step_label", step.Label),
		attribute.Bool("lh2monitor.gated", step.Gated),
		attribute.String("lh2monitor.policy", string(step.Policy)),
	))
	defer span.End()

	s.publish(ctx, events.NewStepStarted(runID, step.ID, step.Label, index))
	logger.Info("running step", "step", step.ID, "label", step.Label, "policy", step.Policy)

	start := s.clock.Now()
	err := s.invoke(ctx, step, retryDelay, logger)
	duration := s.clock.Now().Sub(start)

	result := StepResult{
		ID:       step.ID,
		Label:    step.Label,
		Gated:    step.Gated,
		Status:   Succeeded,
		Duration: duration,
	}

	var stepErr *StepError
	if err != nil {
		stepErr = &StepError{StepID: step.ID, Label: step.Label, Err: err}
		result.Status = Failed
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("step failed", "step", step.ID, "error", err)
	} else {
		logger.Info("step finished", "step", step.ID, "duration", duration)
	}

	metrics.RecordStep(step.ID, string(result.Status), duration)
	s.publish(ctx, events.NewStepFinished(events.StepEvent{
		RunID:    runID,
		StepID:   step.ID,
		Label:    step.Label,
		Index:    index,
		Status:   string(result.Status),
		Error:    result.Error,
		Duration: duration,
	}))

	return result, stepErr
}

func (s *Sequencer) skipped(ctx context.Context, runID string, index int, step Step) StepResult {
	metrics.RecordStep(step.ID, string(NotExecuted), 0)
	s.publish(ctx, events.NewStepFinished(events.StepEvent{
		RunID:  runID,
		StepID: step.ID,
		Label:  step.Label,
		Index:  index,
		Status: string(NotExecuted),
	}))
	return StepResult{
		ID:     step.ID,
		Label:  step.Label,
		Gated:  step.Gated,
		Status: NotExecuted,
	}
}

func (s *Sequencer) invoke(ctx context.Context, step Step, retryDelay time.Duration, logger *slog.Logger) error {
	if step.Run == nil {
		return fmt.Errorf("step %s has no action", step.ID)
	}

	if step.Policy != RetryForever {
		return safeRun(ctx, step.Run)
	}

	return retry.Forever(ctx, step.Label,
		func(ctx context.Context) error { return safeRun(ctx, step.Run) },
		retry.WithDelay(retryDelay),
		retry.WithLogger(logger.With("step", step.ID)),
		retry.WithOnRetry(func(int, error) { metrics.RecordRetry(step.ID) }),
	)
}

// safeRun converts a panicking action into an error.
func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (s *Sequencer) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	// Progress events must still go out while shutting down.
	if err := s.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Debug("failed to publish sequence event", "event_type", event.Type, "error", err)
	}
}
