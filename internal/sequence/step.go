// Package sequence runs the ordered shutdown steps triggered by a leak alert.
// Steps run strictly in order and a failing step never stops the steps after
// it. Steps marked as gated only run once the operator wait window allows it.
package sequence

import (
	"context"
	"fmt"
)

// Policy decides how a failing step is handled.
type Policy string

const (
	// FailFast attempts the step once and records any failure.
	FailFast Policy = "fail_fast"

	// RetryForever repeats the step at a constant delay until it succeeds or
	// the monitor shuts down.
	RetryForever Policy = "retry_forever"
)

// ParsePolicy converts a configuration value into a Policy. An empty value
// is FailFast.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", FailFast:
		return FailFast, nil
	case RetryForever:
		return RetryForever, nil
	default:
		return "", fmt.Errorf("unknown retry policy %q", s)
	}
}

// Step is one action of a shutdown sequence.
type Step struct {
	// ID is a stable identifier used in metrics, events and spans.
	ID string

	// Label is the operator-facing name used in notifications.
	Label string

	// Gated steps wait for the wait window and are skipped on cancel.
	Gated bool

	// Policy controls retry behavior.
	Policy Policy

	// Run performs the action.
	Run func(ctx context.Context) error
}

// Status is the result of one step.
type Status string

const (
	Succeeded   Status = "succeeded"
	Failed      Status = "failed"
	NotExecuted Status = "not_executed"
)

// StepError records a failed step.
type StepError struct {
	StepID string
	Label  string
	Err    error
}

// Error returns the failure as reported to operators.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Label, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
