// Package events provides an in-process pub/sub event bus that decouples the
// monitor core from its observers (console, metrics, HTTP status).
package events

import (
	"time"
)

// EventType identifies the type of event being published.
type EventType string

const (
	// AlertRaised is published on a confirmed Normal to Alert transition.
	AlertRaised EventType = "alert.raised"

	// AlertCleared is published on a confirmed Alert to Normal transition.
	AlertCleared EventType = "alert.cleared"

	// AlertIgnored is published when an alert edge arrives while a sequence
	// is already in flight.
	AlertIgnored EventType = "alert.ignored"

	// StatusReadFailed is published when the status source cannot be read.
	StatusReadFailed EventType = "status.read_failed"

	// SequenceStarted is published when a shutdown sequence begins.
	SequenceStarted EventType = "sequence.started"

	// SequenceCompleted is published with the final report of a sequence.
	SequenceCompleted EventType = "sequence.completed"

	// StepStarted is published before a step runs.
	StepStarted EventType = "step.started"

	// StepFinished is published after a step succeeds, fails or is skipped.
	StepFinished EventType = "step.finished"

	// WaitTick is published on every wait window evaluation.
	WaitTick EventType = "wait.tick"

	// WaitFinished is published when the wait window reaches an outcome.
	WaitFinished EventType = "wait.finished"

	// NotificationFailed is published when a notification cannot be delivered.
	NotificationFailed EventType = "notification.failed"

	// ConfigReloaded is published when configuration is successfully reloaded.
	ConfigReloaded EventType = "config.reloaded"

	// ConfigReloadFailed is published when configuration reload fails.
	ConfigReloadFailed EventType = "config.reload_failed"
)

// Event represents a published event in the system.
type Event struct {
	// Type identifies the event type.
	Type EventType

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Payload contains event-specific data.
	Payload any
}

// NewEvent creates a new event with the given type and payload.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// EventHandler is a function that processes events.
type EventHandler func(event Event)

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
