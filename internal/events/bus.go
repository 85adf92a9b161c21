package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/leefowlercu/lh2-monitor/internal/metrics"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus is closed")

// Bus is the interface for the event bus.
type Bus interface {
	// Publish hands event to every interested subscriber. It never waits for
	// a slow subscriber; a full buffer drops the event for that subscriber.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers handler for types, or for every type when none are
	// given. The returned function unsubscribes and waits for queued events.
	Subscribe(handler EventHandler, types ...EventType) (unsubscribe func())

	// Close unsubscribes everyone after draining their queues.
	Close() error
}

// subscriber owns one delivery goroutine and its queue.
type subscriber struct {
	id      uint64
	filter  []EventType
	handler EventHandler
	queue   chan Event
	done    chan struct{}
	dropped atomic.Uint64

	mu      sync.RWMutex // guards stopped and the close of queue
	stopped bool
}

func (s *subscriber) accepts(t EventType) bool {
	return len(s.filter) == 0 || slices.Contains(s.filter, t)
}

func (s *subscriber) deliver(logger *slog.Logger) {
	defer close(s.done)
	for ev := range s.queue {
		s.call(ev, logger)
	}
}

func (s *subscriber) call(ev Event, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				"subscriber_id", s.id,
				"event_type", ev.Type,
				"panic", r,
			)
		}
	}()
	s.handler(ev)
}

// offer enqueues without blocking. A stopped subscriber accepts and
// discards the event.
func (s *subscriber) offer(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return true
	}
	select {
	case s.queue <- ev:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

// EventBus is the default Bus. The subscriber list is copy-on-write so the
// poll loop publishes without taking a lock.
type EventBus struct {
	subs   atomic.Pointer[[]*subscriber]
	mu     sync.Mutex // serialises writers of subs
	ids    atomic.Uint64
	closed atomic.Bool

	queueLen int
	strict   bool
	logger   *slog.Logger
}

// BusOption configures the event bus.
type BusOption func(*EventBus)

// WithBufferSize sets each subscriber's queue length.
func WithBufferSize(size int) BusOption {
	return func(b *EventBus) {
		if size > 0 {
			b.queueLen = size
		}
	}
}

// WithLogger sets the logger for the event bus.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *EventBus) {
		b.logger = logger
	}
}

// WithPayloadValidation makes Publish reject events whose payload does not
// match the registered type for the event.
func WithPayloadValidation() BusOption {
	return func(b *EventBus) {
		b.strict = true
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *EventBus {
	b := &EventBus{
		queueLen: 256,
		logger:   slog.Default(),
	}
	b.subs.Store(&[]*subscriber{})

	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements Bus.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if b.strict {
		if err := ValidatePayload(event); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, s := range *b.subs.Load() {
		if !s.accepts(event.Type) {
			continue
		}
		if !s.offer(event) {
			s.dropped.Add(1)
			b.logger.Warn("event dropped; subscriber queue full",
				"event_type", event.Type,
				"subscriber_id", s.id,
			)
			metrics.EventBusDroppedEvents.WithLabelValues(string(event.Type)).Inc()
		}
	}
	return nil
}

// Subscribe implements Bus.
func (b *EventBus) Subscribe(handler EventHandler, types ...EventType) func() {
	if b.closed.Load() {
		return func() {}
	}

	s := &subscriber{
		id:      b.ids.Add(1),
		filter:  slices.Clone(types),
		handler: handler,
		queue:   make(chan Event, b.queueLen),
		done:    make(chan struct{}),
	}
	go s.deliver(b.logger)

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		s.close()
		return func() {}
	}
	next := append(slices.Clone(*b.subs.Load()), s)
	b.subs.Store(&next)
	b.mu.Unlock()

	return func() {
		if b.remove(s.id) {
			s.close()
		}
	}
}

func (b *EventBus) remove(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := *b.subs.Load()
	i := slices.IndexFunc(cur, func(s *subscriber) bool { return s.id == id })
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	b.subs.Store(&next)
	return true
}

// Close implements Bus.
func (b *EventBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	cur := *b.subs.Load()
	b.subs.Store(&[]*subscriber{})
	b.mu.Unlock()

	for _, s := range cur {
		s.close()
	}
	return nil
}

// BusStats is a point-in-time view of the bus.
type BusStats struct {
	SubscriberCount int
	IsClosed        bool

	// Dropped is the total number of events dropped across live subscribers.
	Dropped uint64
}

// Stats returns current bus statistics.
func (b *EventBus) Stats() BusStats {
	cur := *b.subs.Load()
	st := BusStats{
		SubscriberCount: len(cur),
		IsClosed:        b.closed.Load(),
	}
	for _, s := range cur {
		st.Dropped += s.dropped.Load()
	}
	return st
}
