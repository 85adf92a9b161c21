package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Remote hub defaults.
const (
	DefaultSSHPort     = 22
	DefaultSSHTimeout  = 10 * time.Second
	DefaultUhubctl     = "/usr/sbin/uhubctl"
	DefaultHubLocation = "1-1"
)

// UhubctlOffCommands returns the commands that power off each listed port of
// the USB hub at location.
func UhubctlOffCommands(binary, location string, ports []int) []string {
	if binary == "" {
		binary = DefaultUhubctl
	}
	if location == "" {
		location = DefaultHubLocation
	}
	cmds := make([]string, 0, len(ports))
	for _, p := range ports {
		cmds = append(cmds, fmt.Sprintf("sudo %s -l %s -p %d -a 0", binary, location, p))
	}
	return cmds
}

// LoadSigner reads a private key file. An empty path tries the usual keys in
// ~/.ssh.
func LoadSigner(keyFile string) (ssh.Signer, error) {
	candidates := []string{keyFile}
	if keyFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory; %w", err)
		}
		candidates = []string{
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_ecdsa"),
			filepath.Join(home, ".ssh", "id_rsa"),
		}
	}

	var errs []error
	for _, path := range candidates {
		pem, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s; %w", path, err)
		}
		return signer, nil
	}
	return nil, fmt.Errorf("failed to load ssh private key; %w", errors.Join(errs...))
}

// HostKeyCallback returns a known_hosts verifier, or accepts any host key when
// knownHostsFile is empty.
func HostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts %s; %w", knownHostsFile, err)
	}
	return cb, nil
}

// RemoteHubOption configures a RemoteHub.
type RemoteHubOption func(*RemoteHub)

// WithSSHPort sets the remote SSH port.
func WithSSHPort(port int) RemoteHubOption {
	return func(h *RemoteHub) {
		if port > 0 {
			h.port = port
		}
	}
}

// WithSSHLogger sets the logger.
func WithSSHLogger(logger *slog.Logger) RemoteHubOption {
	return func(h *RemoteHub) {
		h.logger = logger
	}
}

// RemoteHub runs commands on a remote host over SSH, one session per command.
// Every command must exit with status 0.
type RemoteHub struct {
	host     string
	port     int
	config   *ssh.ClientConfig
	commands []string
	logger   *slog.Logger
}

// NewRemoteHub creates an actuator running commands on host.
func NewRemoteHub(host string, config *ssh.ClientConfig, commands []string, opts ...RemoteHubOption) *RemoteHub {
	h := &RemoteHub{
		host:     host,
		port:     DefaultSSHPort,
		config:   config,
		commands: append([]string(nil), commands...),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// NewSSHConfig builds a client config authenticating user with signer.
func NewSSHConfig(user string, signer ssh.Signer, hostKeys ssh.HostKeyCallback, timeout time.Duration) *ssh.ClientConfig {
	if timeout <= 0 {
		timeout = DefaultSSHTimeout
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}
}

// Addr returns the remote address.
func (h *RemoteHub) Addr() string {
	return net.JoinHostPort(h.host, strconv.Itoa(h.port))
}

// Run connects and executes every command in order, stopping at the first
// failure.
func (h *RemoteHub) Run(ctx context.Context) error {
	client, err := h.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	// Closing the client aborts a hung session when ctx ends.
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	for _, cmd := range h.commands {
		h.logger.Info("running remote command", "host", h.host, "command", cmd)
		if err := h.exec(client, cmd); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("remote command on %s interrupted; %w", h.host, ctx.Err())
			}
			return err
		}
	}
	return nil
}

func (h *RemoteHub) dial(ctx context.Context) (*ssh.Client, error) {
	addr := h.Addr()
	dialer := net.Dialer{Timeout: h.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s; %w", addr, err)
	}

	if h.config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(h.config.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, h.config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed ssh handshake with %s@%s; %w", h.config.User, addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func (h *RemoteHub) exec(client *ssh.Client, cmd string) error {
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open ssh session on %s; %w", h.host, err)
	}
	defer session.Close()

	out, err := session.CombinedOutput(cmd)
	if err != nil {
		output := strings.TrimSpace(string(out))
		if output != "" {
			return fmt.Errorf("%q on %s failed; %w: %s", cmd, h.host, err, tail(output, 256))
		}
		return fmt.Errorf("%q on %s failed; %w", cmd, h.host, err)
	}
	return nil
}
