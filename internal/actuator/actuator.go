// Package actuator drives the hardware controllers switched off during a
// shutdown sequence.
package actuator

import (
	"context"
	"errors"
)

// Actuator performs one hardware action.
type Actuator interface {
	Run(ctx context.Context) error
}

// Func adapts a function to the Actuator interface.
type Func func(ctx context.Context) error

// Run calls f.
func (f Func) Run(ctx context.Context) error {
	return f(ctx)
}

// Chain runs actuators in order and stops at the first failure.
type Chain []Actuator

// Run runs each actuator in turn.
func (c Chain) Run(ctx context.Context) error {
	for _, a := range c {
		if err := a.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// All runs every actuator regardless of failures and joins their errors.
type All []Actuator

// Run runs each actuator in turn.
func (a All) Run(ctx context.Context) error {
	var errs []error
	for _, act := range a {
		if err := act.Run(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// tail returns at most the last n bytes of s, for including command output in
// errors.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
