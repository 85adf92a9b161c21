package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// SCPI defaults for the bench power supply.
const (
	DefaultSCPIPort        = 5025
	DefaultSCPIDialTimeout = 3 * time.Second
	DefaultSCPISettle      = 100 * time.Millisecond
	DefaultSCPIVoltage     = 5.0
)

// SCPIOption configures an SCPI supply.
type SCPIOption func(*SCPI)

// WithDialTimeout sets the TCP connect timeout.
func WithDialTimeout(d time.Duration) SCPIOption {
	return func(s *SCPI) {
		if d > 0 {
			s.dialTimeout = d
		}
	}
}

// WithSettle sets the pause after each command.
func WithSettle(d time.Duration) SCPIOption {
	return func(s *SCPI) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithSCPILogger sets the logger.
func WithSCPILogger(logger *slog.Logger) SCPIOption {
	return func(s *SCPI) {
		s.logger = logger
	}
}

// SCPI controls a programmable power supply over raw SCPI/TCP.
type SCPI struct {
	addr        string
	dialTimeout time.Duration
	settle      time.Duration
	logger      *slog.Logger
}

// NewSCPI creates a client for the supply at addr ("host:port").
func NewSCPI(addr string, opts ...SCPIOption) *SCPI {
	s := &SCPI{
		addr:        addr,
		dialTimeout: DefaultSCPIDialTimeout,
		settle:      DefaultSCPISettle,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the supply address.
func (s *SCPI) Addr() string {
	return s.addr
}

// Off switches the main output off.
func (s *SCPI) Off(ctx context.Context) error {
	if err := s.Send(ctx, "OUTP OFF"); err != nil {
		return err
	}
	s.logger.Info("power supply output off", "addr", s.addr)
	return nil
}

// On sets the output voltage and switches the output on.
func (s *SCPI) On(ctx context.Context, volts float64) error {
	if err := s.Send(ctx, fmt.Sprintf("VOLT %.1f", volts), "OUTP ON"); err != nil {
		return err
	}
	s.logger.Info("power supply output on", "addr", s.addr, "volts", volts)
	return nil
}

// Send opens one connection and writes each command terminated by a newline,
// pausing for the settle time after each.
func (s *SCPI) Send(ctx context.Context, commands ...string) error {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to power supply %s; %w", s.addr, err)
	}
	defer conn.Close()

	for _, cmd := range commands {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetWriteDeadline(deadline)
		}
		if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
			return fmt.Errorf("failed to send %q to power supply %s; %w", cmd, s.addr, err)
		}
		if s.settle > 0 {
			select {
			case <-time.After(s.settle):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
