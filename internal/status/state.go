// Package status reads the leak-alert flag from the status file and turns
// successive reads into edge-triggered alert events.
package status

import "time"

// AlertState is the confirmed state of the monitored alert flag.
type AlertState string

const (
	// Normal indicates the alert flag is clear.
	Normal AlertState = "normal"

	// Alert indicates the alert flag is raised.
	Alert AlertState = "alert"
)

// IsAlert returns true if the state is Alert.
func (s AlertState) IsAlert() bool {
	return s == Alert
}

// Reading is the result of a single successful poll.
type Reading struct {
	// Raw is the trimmed value found after the key.
	Raw string

	// State is the alert state derived from Raw.
	State AlertState

	// Previous is the confirmed state before this reading was applied.
	Previous AlertState

	// At is when the reading was taken.
	At time.Time
}

// Changed returns true if this reading is an alert edge.
func (r Reading) Changed() bool {
	return r.State != r.Previous
}
