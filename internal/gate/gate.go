// Package gate provides the non-blocking mutual exclusion used to guarantee a
// single in-flight shutdown sequence.
package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Gate is a non-blocking, test-and-set exclusion flag.
// The zero value is an open gate. It is safe for concurrent use.
type Gate struct {
	held atomic.Bool
}

// TryAcquire closes the gate and returns true, or returns false if the gate is
// already held. It never blocks.
func (g *Gate) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release opens the gate.
func (g *Gate) Release() {
	g.held.Store(false)
}

// Held reports whether the gate is currently held.
func (g *Gate) Held() bool {
	return g.held.Load()
}

// Slot runs at most one task at a time. A task started on the slot holds the
// gate for its whole lifetime and releases it on every exit path, including
// panics. Completion is reported on the channel returned by TryStart.
type Slot[T any] struct {
	gate Gate
	wg   sync.WaitGroup

	// OnPanic converts a recovered panic into a result. If nil, the zero
	// value of T is delivered.
	OnPanic func(recovered any) T
}

// TryStart runs fn in a new goroutine if the slot is free. It returns false
// without running fn if another task is in flight.
func (s *Slot[T]) TryStart(ctx context.Context, fn func(context.Context) T) (<-chan T, bool) {
	if !s.gate.TryAcquire() {
		return nil, false
	}

	result := make(chan T, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var out T
		defer func() {
			if r := recover(); r != nil {
				if s.OnPanic != nil {
					out = s.OnPanic(r)
				}
			}
			// Release before publishing so a receiver can start the next task.
			s.gate.Release()
			result <- out
			close(result)
		}()

		out = fn(ctx)
	}()

	return result, true
}

// Busy reports whether a task is in flight.
func (s *Slot[T]) Busy() bool {
	return s.gate.Held()
}

// Wait blocks until the in-flight task, if any, has finished or ctx is done.
func (s *Slot[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for in-flight task; %w", ctx.Err())
	}
}
