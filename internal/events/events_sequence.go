package events

import "time"

// SequenceEvent contains data for sequence lifecycle events.
type SequenceEvent struct {
	RunID          string
	Steps          int
	Classification string
	Summary        string
	Errors         []string
	WaitOutcome    string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// StepEvent contains data for step lifecycle events.
type StepEvent struct {
	RunID    string
	StepID   string
	Label    string
	Index    int
	Status   string
	Error    string
	Duration time.Duration
}

// WaitEvent contains data for wait window events.
type WaitEvent struct {
	RunID     string
	Remaining time.Duration
	Deadline  time.Time
	Outcome   string
	Extended  bool
}

// NotificationEvent contains data for notification failures.
type NotificationEvent struct {
	Message string
	Error   string
}

// NewSequenceStarted creates a SequenceStarted event.
func NewSequenceStarted(runID string, steps int, startedAt time.Time) Event {
	return NewEvent(SequenceStarted, &SequenceEvent{
		RunID:     runID,
		Steps:     steps,
		StartedAt: startedAt,
	})
}

// NewSequenceCompleted creates a SequenceCompleted event.
func NewSequenceCompleted(e SequenceEvent) Event {
	return NewEvent(SequenceCompleted, &e)
}

// NewStepStarted creates a StepStarted event.
func NewStepStarted(runID, stepID, label string, index int) Event {
	return NewEvent(StepStarted, &StepEvent{
		RunID:  runID,
		StepID: stepID,
		Label:  label,
		Index:  index,
	})
}

// NewStepFinished creates a StepFinished event.
func NewStepFinished(e StepEvent) Event {
	return NewEvent(StepFinished, &e)
}

// NewWaitTick creates a WaitTick event.
func NewWaitTick(runID string, remaining time.Duration, deadline time.Time, extended bool) Event {
	return NewEvent(WaitTick, &WaitEvent{
		RunID:     runID,
		Remaining: remaining,
		Deadline:  deadline,
		Outcome:   "pending",
		Extended:  extended,
	})
}

// NewWaitFinished creates a WaitFinished event.
func NewWaitFinished(runID, outcome string) Event {
	return NewEvent(WaitFinished, &WaitEvent{
		RunID:   runID,
		Outcome: outcome,
	})
}

// NewNotificationFailed creates a NotificationFailed event.
func NewNotificationFailed(message string, err error) Event {
	return NewEvent(NotificationFailed, &NotificationEvent{
		Message: message,
		Error:   errorString(err),
	})
}
