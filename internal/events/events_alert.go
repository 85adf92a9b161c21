package events

import "time"

// AlertEvent contains data for alert edge events.
type AlertEvent struct {
	State    string
	Previous string
	Raw      string
	At       time.Time
}

// StatusReadEvent contains data for status read failures.
type StatusReadEvent struct {
	Path  string
	Error string
}

// NewAlertRaised creates an AlertRaised event.
func NewAlertRaised(state, previous, raw string, at time.Time) Event {
	return NewEvent(AlertRaised, &AlertEvent{State: state, Previous: previous, Raw: raw, At: at})
}

// NewAlertCleared creates an AlertCleared event.
func NewAlertCleared(state, previous, raw string, at time.Time) Event {
	return NewEvent(AlertCleared, &AlertEvent{State: state, Previous: previous, Raw: raw, At: at})
}

// NewAlertIgnored creates an AlertIgnored event.
func NewAlertIgnored(state, previous, raw string, at time.Time) Event {
	return NewEvent(AlertIgnored, &AlertEvent{State: state, Previous: previous, Raw: raw, At: at})
}

// NewStatusReadFailed creates a StatusReadFailed event.
func NewStatusReadFailed(path string, err error) Event {
	return NewEvent(StatusReadFailed, &StatusReadEvent{Path: path, Error: errorString(err)})
}
