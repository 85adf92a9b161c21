package monitor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/sequence"
)

func TestBuildSteps_DefaultPlan(t *testing.T) {
	cfg := config.NewDefaultConfig().Sequence
	cfg.Steps = config.DefaultSteps()

	steps, err := BuildSteps(cfg)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "hv_off", steps[0].ID)
	assert.Equal(t, "HV Off", steps[0].Label)
	assert.False(t, steps[0].Gated)
	assert.Equal(t, sequence.RetryForever, steps[0].Policy)

	assert.Equal(t, "uhubctl", steps[1].ID)
	assert.True(t, steps[1].Gated)
	assert.Equal(t, sequence.FailFast, steps[1].Policy)

	assert.Equal(t, "Kikusui Off", steps[2].Label)
	assert.True(t, steps[2].Gated)
	for _, s := range steps {
		assert.NotNil(t, s.Run)
	}
}

func TestBuildSteps_LabelDefaultsToID(t *testing.T) {
	steps, err := BuildSteps(config.SequenceConfig{Steps: []config.StepConfig{
		{ID: "log_it", Kind: config.StepKindCommand, Path: "/bin/true"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "log_it", steps[0].Label)
}

func TestBuildSteps_Errors(t *testing.T) {
	tests := []struct {
		name string
		step config.StepConfig
		want string
	}{
		{"unknown kind", config.StepConfig{ID: "x", Kind: "telnet"}, `unknown step kind "telnet"`},
		{"unknown policy", config.StepConfig{ID: "x", Kind: config.StepKindCommand, Path: "/bin/true", Policy: "sometimes"}, `unknown retry policy "sometimes"`},
		{"unknown scpi action", config.StepConfig{ID: "x", Kind: config.StepKindSCPI, Address: "127.0.0.1:5025", Action: "toggle"}, `unknown scpi action "toggle"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSteps(config.SequenceConfig{Steps: []config.StepConfig{tt.step}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to build step x")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildSteps_HVRelayAddressesEveryHost(t *testing.T) {
	var mu sync.Mutex
	var ports []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PortID      int    `json:"port_id"`
			CommandType string `json:"command_type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "/serial/command", r.URL.Path)
		assert.Equal(t, "TURN_OFF", body.CommandType)

		mu.Lock()
		ports = append(ports, body.PortID)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	steps, err := BuildSteps(config.SequenceConfig{Steps: []config.StepConfig{{
		ID:     "hv_off",
		Kind:   config.StepKindHVRelay,
		Hosts:  []string{host, host},
		Port:   port,
		Ports:  []int{0, 1},
		Policy: "retry_forever",
	}}}, WithRelayClient(srv.Client()))
	require.NoError(t, err)

	require.NoError(t, steps[0].Run(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{0, 1, 0, 1}, ports)
}

func TestBuildSteps_MissingSSHKeyFailsAtRun(t *testing.T) {
	cfg := config.SequenceConfig{
		SSH: config.SSHConfig{User: "sks", KeyFile: filepath.Join(t.TempDir(), "missing_key"), TimeoutSeconds: 1},
		Steps: []config.StepConfig{{
			ID:    "uhubctl",
			Kind:  config.StepKindSSH,
			Hosts: []string{"127.0.0.1"},
			Ports: []int{1},
		}},
	}

	steps, err := BuildSteps(cfg)
	require.NoError(t, err)
	assert.Error(t, steps[0].Run(context.Background()))
}

func TestBuildActuator_Command(t *testing.T) {
	act, err := BuildActuator(config.StepConfig{
		ID:   "true",
		Kind: config.StepKindCommand,
		Path: "/bin/sh",
		Args: []string{"-c", "exit 0"},
	}, config.SSHConfig{})
	require.NoError(t, err)
	assert.NoError(t, act.Run(context.Background()))
}

func TestTimingFrom(t *testing.T) {
	got := TimingFrom(config.SequenceConfig{
		WaitSeconds:      120,
		WaitTickMs:       500,
		SkipGraceSeconds: 5,
		RetryDelayMs:     1000,
	})
	assert.Equal(t, sequence.Timing{
		Wait:       2 * time.Minute,
		WaitTick:   500 * time.Millisecond,
		SkipGrace:  5 * time.Second,
		RetryDelay: time.Second,
	}, got)
}
