package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds a local command when not configured.
const DefaultCommandTimeout = 2 * time.Minute

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithCommandTimeout bounds each run.
func WithCommandTimeout(d time.Duration) CommandOption {
	return func(c *Command) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDir sets the working directory.
func WithDir(dir string) CommandOption {
	return func(c *Command) {
		c.dir = dir
	}
}

// WithEnv adds KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) CommandOption {
	return func(c *Command) {
		c.env = append(c.env, env...)
	}
}

// WithCommandLogger sets the logger.
func WithCommandLogger(logger *slog.Logger) CommandOption {
	return func(c *Command) {
		c.logger = logger
	}
}

// Command runs a local program such as a vendor crate control script.
// A non-zero exit status is an error.
type Command struct {
	path    string
	args    []string
	dir     string
	env     []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommand creates an actuator running path with args.
func NewCommand(path string, args []string, opts ...CommandOption) *Command {
	c := &Command{
		path:    path,
		args:    append([]string(nil), args...),
		timeout: DefaultCommandTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// String returns the command line.
func (c *Command) String() string {
	return strings.TrimSpace(c.path + " " + strings.Join(c.args, " "))
}

// Run executes the command and waits for it to exit.
func (c *Command) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Dir = c.dir
	cmd.WaitDelay = time.Second
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}

	c.logger.Info("running command", "command", c.String())
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %s", c.String(), c.timeout)
		}
		output := strings.TrimSpace(string(out))
		if output != "" {
			return fmt.Errorf("%s failed; %w: %s", c.String(), err, tail(output, 256))
		}
		return fmt.Errorf("%s failed; %w", c.String(), err)
	}
	return nil
}
