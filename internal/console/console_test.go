package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/events"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{900 * time.Second, "15:00"},
		{61500 * time.Millisecond, "01:01"},
		{9 * time.Second, "00:09"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.in); got != tt.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderer_WaitWindow(t *testing.T) {
	var buf bytes.Buffer
	paths := trigger.Paths{Skip: "/run/lh2/skip", Cancel: "/run/lh2/cancel", Extend: "/run/lh2/extend"}
	r := New(&buf, WithTriggerPaths(paths), WithCountdownInterval(60*time.Second))
	deadline := time.Date(2024, 6, 1, 12, 15, 0, 0, time.UTC)

	r.Handle(events.NewWaitTick("run-1", 900*time.Second, deadline, false))
	r.Handle(events.NewWaitTick("run-1", 899*time.Second, deadline, false))
	r.Handle(events.NewWaitTick("run-1", 840*time.Second, deadline, false))
	r.Handle(events.NewWaitTick("run-1", 5*time.Second, deadline, false))
	r.Handle(events.NewWaitTick("run-1", 900*time.Second, deadline.Add(time.Minute), true))
	r.Handle(events.NewWaitFinished("run-1", "skipped"))

	out := buf.String()
	if n := strings.Count(out, "waiting for shutdown"); n != 1 {
		t.Errorf("banner printed %d times, want 1", n)
	}
	if strings.Contains(out, "14:59") {
		t.Error("countdown should be throttled to the interval")
	}
	for _, want := range []string{
		"Sat Jun  1 12:15:00 2024",
		"/run/lh2/skip",
		"/run/lh2/cancel",
		"/run/lh2/extend",
		"Waiting... 15:00 remaining",
		"Waiting... 14:00 remaining",
		"Waiting... 00:05 remaining",
		"wait extended",
		"wait finished: skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderer_SequenceAndAlerts(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	r.Handle(events.NewAlertRaised("alert", "normal", "1", at))
	r.Handle(events.NewSequenceStarted("run-1", 3, at))
	r.Handle(events.NewStepStarted("run-1", "hv_off", "HV Off", 0))
	r.Handle(events.NewStepFinished(events.StepEvent{RunID: "run-1", Label: "HV Off", Status: "succeeded", Duration: 1200 * time.Millisecond}))
	r.Handle(events.NewStepFinished(events.StepEvent{RunID: "run-1", Label: "uhubctl", Status: "failed", Error: "exit status 1"}))
	r.Handle(events.NewStepFinished(events.StepEvent{RunID: "run-1", Label: "Kikusui Off", Status: "not_executed"}))
	r.Handle(events.NewSequenceCompleted(events.SequenceEvent{RunID: "run-1", Classification: "failed", Summary: "Process FAILED. Errors occurred: uhubctl failed: exit status 1"}))
	r.Handle(events.NewAlertIgnored("alert", "normal", "1", at))
	r.Handle(events.NewAlertCleared("normal", "alert", "0", at))
	r.Handle(events.NewNotificationFailed("x", errors.New("webhook returned status 500")))

	out := buf.String()
	for _, want := range []string{
		"H2 LEAK ALERT",
		"shutdown sequence run-1 (3 steps)",
		"HV Off 1.2s",
		"uhubctl: exit status 1",
		"Kikusui Off not executed",
		"Process FAILED",
		"already running",
		"alert cleared",
		"notification failed: webhook returned status 500",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderer_Attach(t *testing.T) {
	var buf bytes.Buffer
	bus := events.NewBus()
	unsubscribe := New(&buf).Attach(bus)

	if err := bus.Publish(t.Context(), events.NewConfigReloaded([]string{"sequence"}, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	unsubscribe()

	if !strings.Contains(buf.String(), "config reloaded: sequence") {
		t.Errorf("output = %q, want config reloaded line", buf.String())
	}
}
