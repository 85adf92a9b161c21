// Package waitwindow implements the operator wait window that precedes the
// gated part of a shutdown sequence.
package waitwindow

import (
	"context"
	"log/slog"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

// Default window timings.
const (
	DefaultDuration = 900 * time.Second
	DefaultTick     = time.Second
)

// Outcome is the result of a wait window.
type Outcome string

const (
	Pending   Outcome = "pending"
	TimedOut  Outcome = "timed_out"
	Skipped   Outcome = "skipped"
	Cancelled Outcome = "cancelled"

	// Interrupted means the monitor shut down before the window closed.
	Interrupted Outcome = "interrupted"
)

// Terminal reports whether the outcome ends the window.
func (o Outcome) Terminal() bool {
	return o != Pending && o != ""
}

// Proceed reports whether gated work may run after this outcome.
func (o Outcome) Proceed() bool {
	return o == TimedOut || o == Skipped
}

// Tick describes the window after one evaluation.
type Tick struct {
	Remaining time.Duration `json:"remaining"`
	Deadline  time.Time     `json:"deadline"`
	Outcome   Outcome       `json:"outcome"`
	Extended  bool          `json:"extended,omitempty"`
}

// Option configures a Window.
type Option func(*Window)

// WithTick sets the evaluation period.
func WithTick(d time.Duration) Option {
	return func(w *Window) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithClock sets the clock.
func WithClock(c Clock) Option {
	return func(w *Window) {
		w.clock = c
	}
}

// WithOnTick registers an observer called after every evaluation, including
// the final one.
func WithOnTick(fn func(Tick)) Option {
	return func(w *Window) {
		w.onTick = fn
	}
}

// WithLogger sets the logger for the window.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Window) {
		w.logger = logger
	}
}

// Window waits for a fixed duration while honoring operator triggers.
type Window struct {
	duration time.Duration
	tick     time.Duration
	store    trigger.Store
	clock    Clock
	onTick   func(Tick)
	logger   *slog.Logger
}

// New creates a window of the given duration reading triggers from store.
func New(duration time.Duration, store trigger.Store, opts ...Option) *Window {
	if duration < 0 {
		duration = 0
	}

	w := &Window{
		duration: duration,
		tick:     DefaultTick,
		store:    store,
		clock:    RealClock(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Duration returns the configured window length.
func (w *Window) Duration() time.Duration {
	return w.duration
}

// Run evaluates triggers once per tick until the window reaches a terminal
// outcome. Within one evaluation cancel wins over skip, and skip wins over
// extend. An extend restarts the window from now with the original duration.
// Every marker is cleared on return. If ctx ends first the outcome is
// Interrupted and ctx.Err() is returned.
func (w *Window) Run(ctx context.Context) (Outcome, error) {
	start := w.clock.Now()
	deadline := start.Add(w.duration)

	defer w.sweep()

	w.logger.Info("wait window opened",
		"duration", w.duration,
		"deadline", deadline,
	)

	for {
		if w.consume(trigger.Cancel) {
			return w.finish(Cancelled, deadline), nil
		}
		if w.consume(trigger.Skip) {
			return w.finish(Skipped, deadline), nil
		}

		now := w.clock.Now()
		extended := false
		if w.consume(trigger.Extend) {
			start = now
			deadline = start.Add(w.duration)
			extended = true
			w.logger.Info("wait window extended", "deadline", deadline)
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return w.finish(TimedOut, deadline), nil
		}

		w.emit(Tick{
			Remaining: remaining,
			Deadline:  deadline,
			Outcome:   Pending,
			Extended:  extended,
		})

		sleep := w.tick
		if remaining < sleep {
			sleep = remaining
		}

		select {
		case <-ctx.Done():
			w.logger.Warn("wait window interrupted", "error", ctx.Err())
			w.finish(Interrupted, deadline)
			return Interrupted, ctx.Err()
		case <-w.clock.After(sleep):
		case <-w.store.Changes():
		}
	}
}

func (w *Window) consume(kind trigger.Kind) bool {
	present, err := w.store.Consume(kind)
	if err != nil {
		w.logger.Warn("failed to read trigger; treating as absent", "trigger", kind, "error", err)
		return false
	}
	if present {
		w.logger.Info("trigger received", "trigger", kind)
	}
	return present
}

func (w *Window) finish(outcome Outcome, deadline time.Time) Outcome {
	w.logger.Info("wait window closed", "outcome", outcome)
	w.emit(Tick{
		Deadline: deadline,
		Outcome:  outcome,
	})
	return outcome
}

func (w *Window) emit(t Tick) {
	if w.onTick != nil {
		w.onTick(t)
	}
}

func (w *Window) sweep() {
	if err := w.store.Clear(); err != nil {
		w.logger.Error("failed to clear trigger markers", "error", err)
	}
}
