package sequence

import (
	"fmt"
	"strings"
	"time"

	"github.com/leefowlercu/lh2-monitor/internal/waitwindow"
)

// Classification is the overall result of a sequence.
type Classification string

const (
	// ClassSucceeded means every step ran without error.
	ClassSucceeded Classification = "succeeded"

	// ClassFailed means at least one step failed.
	ClassFailed Classification = "failed"

	// ClassCancelled means the operator cancelled during the wait window.
	ClassCancelled Classification = "cancelled"

	// ClassInterrupted means the monitor shut down during the wait window.
	ClassInterrupted Classification = "interrupted"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Gated    bool          `json:"gated"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report describes a finished sequence run.
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`

	// Errors holds every step failure in execution order.
	Errors []*StepError `json:"-"`

	// WaitOutcome is empty when the plan has no gated steps.
	WaitOutcome waitwindow.Outcome `json:"wait_outcome,omitempty"`
}

// Classification derives the overall result. A cancelled or interrupted
// wait takes precedence over step failures.
func (r *Report) Classification() Classification {
	switch {
	case r.WaitOutcome == waitwindow.Cancelled:
		return ClassCancelled
	case r.WaitOutcome == waitwindow.Interrupted:
		return ClassInterrupted
	case len(r.Errors) > 0:
		return ClassFailed
	default:
		return ClassSucceeded
	}
}

// ErrorMessages returns the step failures as operator-facing strings.
func (r *Report) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary returns the notification text for the run.
func (r *Report) Summary() string {
	switch r.Classification() {
	case ClassCancelled:
		return r.stopped("Process CANCELED by user.")
	case ClassInterrupted:
		return r.stopped("Process INTERRUPTED by monitor shutdown.")
	case ClassFailed:
		return "Process FAILED. Errors occurred: " + strings.Join(r.ErrorMessages(), "; ")
	default:
		return fmt.Sprintf("Process complete. All actions (%s) executed successfully.",
			strings.Join(r.labels(Succeeded), ", "))
	}
}

// stopped describes a run whose gated steps never ran.
func (r *Report) stopped(headline string) string {
	var b strings.Builder
	b.WriteString(headline)
	ran := r.labels(Succeeded, Failed)
	skipped := r.labels(NotExecuted)
	if len(ran) > 0 {
		fmt.Fprintf(&b, " Ran %s", strings.Join(ran, ", "))
		if len(skipped) > 0 {
			fmt.Fprintf(&b, " but %s were NOT executed.", strings.Join(skipped, ", "))
		} else {
			b.WriteString(".")
		}
	} else if len(skipped) > 0 {
		fmt.Fprintf(&b, " %s were NOT executed.", strings.Join(skipped, ", "))
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, " Errors occurred: %s", strings.Join(r.ErrorMessages(), "; "))
	}
	return b.String()
}

func (r *Report) labels(statuses ...Status) []string {
	var out []string
	for _, s := range r.Steps {
		for _, want := range statuses {
			if s.Status == want {
				out = append(out, s.Label)
				break
			}
		}
	}
	return out
}
