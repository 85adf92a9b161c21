// Package trigger implements the operator trigger markers that steer an open
// wait window: skip, cancel and extend.
package trigger

import "fmt"

// Kind identifies an operator trigger.
type Kind string

const (
	// Skip ends the wait window early and lets gated steps run.
	Skip Kind = "skip"

	// Cancel ends the wait window and prevents gated steps from running.
	Cancel Kind = "cancel"

	// Extend restarts the wait window with its original duration.
	Extend Kind = "extend"
)

// Kinds lists every trigger kind in evaluation priority order.
var Kinds = []Kind{Cancel, Skip, Extend}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Skip, Cancel, Extend:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown trigger %q; expected one of skip, cancel, extend", s)
	}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}
