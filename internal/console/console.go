// Package console renders monitor events for an operator watching the
// daemon's terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/events"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
	"github.com/leefowlercu/lh2-monitor/internal/tui/styles"
)

// DefaultCountdownInterval is how often a countdown line is printed while
// more than ten seconds remain.
const DefaultCountdownInterval = 30 * time.Second

// Option configures a Renderer.
type Option func(*Renderer)

// WithCountdownInterval sets the countdown print interval.
func WithCountdownInterval(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTriggerPaths sets the marker paths shown when a wait window opens.
func WithTriggerPaths(p trigger.Paths) Option {
	return func(r *Renderer) {
		r.paths = p
	}
}

// Renderer writes styled lines for alert, wait and sequence events.
type Renderer struct {
	out      io.Writer
	interval time.Duration
	paths    trigger.Paths

	mu       sync.Mutex
	waitRuns map[string]bool
}

// New creates a renderer writing to out.
func New(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out:      out,
		interval: DefaultCountdownInterval,
		paths:    trigger.DefaultPaths(),
		waitRuns: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes the renderer to bus and returns the unsubscribe func.
func (r *Renderer) Attach(bus events.Bus) func() {
	return bus.Subscribe(r.Handle,
		events.AlertRaised,
		events.AlertCleared,
		events.AlertIgnored,
		events.StatusReadFailed,
		events.SequenceStarted,
		events.SequenceCompleted,
		events.StepStarted,
		events.StepFinished,
		events.WaitTick,
		events.WaitFinished,
		events.NotificationFailed,
		events.ConfigReloaded,
		events.ConfigReloadFailed,
	)
}

// Handle renders one event.
func (r *Renderer) Handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p := e.Payload.(type) {
	case *events.AlertEvent:
		r.alert(e.Type, p)
	case *events.StatusReadEvent:
		r.line(styles.ErrorText.Render("status read failed: ") + p.Error)
	case *events.SequenceEvent:
		r.sequence(e.Type, p)
	case *events.StepEvent:
		r.step(e.Type, p)
	case *events.WaitEvent:
		r.wait(e.Type, p)
	case *events.NotificationEvent:
		r.line(styles.ErrorText.Render("notification failed: ") + p.Error)
	case *events.ConfigReloadEvent:
		if p.Error != "" {
			r.line(styles.ErrorText.Render("config reload failed: ") + p.Error)
			return
		}
		r.line(styles.MutedText.Render("config reloaded: " + strings.Join(p.Changed, ", ")))
		if len(p.RestartRequired) > 0 {
			r.line(styles.WarningText.Render("restart required for: " + strings.Join(p.RestartRequired, ", ")))
		}
	}
}

func (r *Renderer) alert(t events.EventType, p *events.AlertEvent) {
	switch t {
	case events.AlertRaised:
		r.line(styles.Banner.Render("H2 LEAK ALERT " + p.At.Format(time.ANSIC)))
	case events.AlertCleared:
		r.line(styles.SuccessText.Render("alert cleared at " + p.At.Format(time.ANSIC)))
	case events.AlertIgnored:
		r.line(styles.WarningText.Render("alert raised again; shutdown sequence already running"))
	}
}

func (r *Renderer) sequence(t events.EventType, p *events.SequenceEvent) {
	switch t {
	case events.SequenceStarted:
		r.line(styles.Title.Render(fmt.Sprintf("--- shutdown sequence %s (%d steps) ---", p.RunID, p.Steps)))
	case events.SequenceCompleted:
		delete(r.waitRuns, p.RunID)
		style := styles.SuccessText
		switch p.Classification {
		case "failed":
			style = styles.ErrorText
		case "cancelled", "interrupted":
			style = styles.WarningText
		}
		r.line(style.Render(p.Summary))
	}
}

func (r *Renderer) step(t events.EventType, p *events.StepEvent) {
	switch t {
	case events.StepStarted:
		r.line(fmt.Sprintf("  %s %s", styles.StepRunning, styles.Label.Render(p.Label)))
	case events.StepFinished:
		switch p.Status {
		case "succeeded":
			r.line(fmt.Sprintf("  %s %s %s", styles.SuccessText.Render(styles.StepOK), p.Label,
				styles.MutedText.Render(p.Duration.Round(time.Millisecond).String())))
		case "failed":
			r.line(fmt.Sprintf("  %s %s: %s", styles.ErrorText.Render(styles.StepFailed), p.Label, p.Error))
		default:
			r.line(fmt.Sprintf("  %s %s", styles.MutedText.Render(styles.StepSkipped),
				styles.MutedText.Render(p.Label+" not executed")))
		}
	}
}

func (r *Renderer) wait(t events.EventType, p *events.WaitEvent) {
	if t == events.WaitFinished {
		r.line(styles.WarningText.Render("wait finished: " + p.Outcome))
		return
	}

	if !r.waitRuns[p.RunID] {
		r.waitRuns[p.RunID] = true
		r.line(styles.Title.Render("--- waiting for shutdown ---"))
		r.line("Shutdown scheduled for: " + styles.Label.Render(p.Deadline.Format(time.ANSIC)))
		r.line(styles.HelpText.Render("Trigger files (touch in another terminal):"))
		r.line("  Skip:   " + r.paths.Skip)
		r.line("  Cancel: " + r.paths.Cancel)
		r.line("  Extend: " + r.paths.Extend)
		r.countdown(p.Remaining)
		return
	}

	if p.Extended {
		r.line(styles.WarningText.Render("wait extended; new shutdown time: " + p.Deadline.Format(time.ANSIC)))
		r.countdown(p.Remaining)
		return
	}

	secs := int(p.Remaining.Round(time.Second) / time.Second)
	every := int(r.interval / time.Second)
	if secs <= 10 || (every > 0 && secs%every == 0) {
		r.countdown(p.Remaining)
	}
}

func (r *Renderer) countdown(remaining time.Duration) {
	r.line(styles.Countdown.Render("Waiting... " + FormatCountdown(remaining) + " remaining"))
}

func (r *Renderer) line(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// FormatCountdown renders d as MM:SS, truncated to whole seconds.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
