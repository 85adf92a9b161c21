package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPollInterval is how often the status file is read when not configured.
const DefaultPollInterval = time.Second

// EdgeHandler receives confirmed alert transitions. Each transition is
// delivered exactly once.
type EdgeHandler interface {
	// AlertRaised is called on a Normal to Alert transition.
	AlertRaised(ctx context.Context, r Reading)

	// AlertCleared is called on an Alert to Normal transition.
	AlertCleared(ctx context.Context, r Reading)
}

// Snapshot is the poller's view of the status source after the latest poll.
type Snapshot struct {
	State     AlertState `json:"state"`
	Raw       string     `json:"raw"`
	LastCheck time.Time  `json:"last_check"`
	LastError string     `json:"last_error,omitempty"`
	Polls     int64      `json:"polls"`
}

// PollerOption configures the Poller.
type PollerOption func(*Poller)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClassifier sets the raw value to state mapping.
func WithClassifier(c Classifier) PollerOption {
	return func(p *Poller) {
		p.classifier = c
	}
}

// WithLogger sets the logger for the poller.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithObserver registers a function called after every poll, successful or not.
func WithObserver(fn func(Snapshot, error)) PollerOption {
	return func(p *Poller) {
		p.observer = fn
	}
}

// WithReadErrorLogInterval limits how often read errors are logged.
func WithReadErrorLogInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.errLog = rate.Sometimes{First: 1, Interval: d}
	}
}

// Poller periodically reads the status source and detects alert edges.
type Poller struct {
	source     Source
	classifier Classifier
	handler    EdgeHandler
	interval   time.Duration
	logger     *slog.Logger
	observer   func(Snapshot, error)
	errLog     rate.Sometimes
	now        func() time.Time

	mu        sync.RWMutex
	confirmed AlertState
	polled    bool
	current   Snapshot
}

// NewPoller creates a poller reading from source and reporting edges to handler.
func NewPoller(source Source, handler EdgeHandler, opts ...PollerOption) *Poller {
	p := &Poller{
		source:     source,
		classifier: DefaultClassifier(),
		handler:    handler,
		interval:   DefaultPollInterval,
		logger:     slog.Default(),
		errLog:     rate.Sometimes{First: 1, Interval: time.Minute},
		now:        time.Now,
		confirmed:  Normal,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.current.State = p.confirmed
	return p
}

// Interval returns the poll interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Confirmed returns the last confirmed alert state.
func (p *Poller) Confirmed() AlertState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.confirmed
}

// Current returns a copy of the latest snapshot.
func (p *Poller) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Run polls immediately and then on every interval until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("status poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_, _ = p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("status poller stopping")
			return
		case <-ticker.C:
			_, _ = p.Poll(ctx)
		}
	}
}

// Poll performs one read. On a read error the confirmed state is retained and
// no edge fires. The very first poll only establishes the baseline.
func (p *Poller) Poll(ctx context.Context) (Reading, error) {
	now := p.now()

	state, raw, err := p.read()

	p.mu.Lock()
	first := !p.polled
	p.polled = true
	p.current.LastCheck = now
	p.current.Polls++

	if err != nil {
		p.current.LastError = err.Error()
		snapshot := p.current
		p.mu.Unlock()

		p.errLog.Do(func() {
			p.logger.Warn("status read failed; keeping previous state",
				"state", snapshot.State,
				"error", err,
			)
		})
		p.observe(snapshot, err)
		return Reading{}, err
	}

	reading := Reading{
		Raw:      raw,
		State:    state,
		Previous: p.confirmed,
		At:       now,
	}
	if first {
		reading.Previous = state
	}
	p.confirmed = state
	p.current.State = state
	p.current.Raw = raw
	p.current.LastError = ""
	snapshot := p.current
	p.mu.Unlock()

	if first {
		p.logger.Info("initial status", "state", state, "raw", raw)
	}

	if reading.Changed() && p.handler != nil {
		switch reading.State {
		case Alert:
			p.handler.AlertRaised(ctx, reading)
		case Normal:
			p.handler.AlertCleared(ctx, reading)
		}
	}

	p.observe(snapshot, nil)
	return reading, nil
}

func (p *Poller) read() (AlertState, string, error) {
	raw, err := p.source.Read()
	if err != nil {
		return "", "", err
	}
	state, err := p.classifier.Classify(raw)
	if err != nil {
		return "", raw, err
	}
	return state, raw, nil
}

func (p *Poller) observe(s Snapshot, err error) {
	if p.observer != nil {
		p.observer(s, err)
	}
}
