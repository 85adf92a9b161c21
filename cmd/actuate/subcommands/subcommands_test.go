package subcommands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leefowlercu/lh2-monitor/internal/config"
)

func shellStep(id, script string) config.StepConfig {
	return config.StepConfig{
		ID:   id,
		Kind: config.StepKindCommand,
		Path: "/bin/sh",
		Args: []string{"-c", script},
	}
}

func TestRunStep_Success(t *testing.T) {
	seq := config.SequenceConfig{Steps: []config.StepConfig{shellStep("notify_shift", "exit 0")}}

	var out bytes.Buffer
	if err := runStep(context.Background(), &out, seq, "notify_shift"); err != nil {
		t.Fatalf("runStep() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "notify_shift completed in ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunStep_FailureUsesLabel(t *testing.T) {
	step := shellStep("pump", "exit 3")
	step.Label = "Pump Off"
	seq := config.SequenceConfig{Steps: []config.StepConfig{step}}

	err := runStep(context.Background(), &bytes.Buffer{}, seq, "pump")
	if err == nil || !strings.HasPrefix(err.Error(), "Pump Off failed") {
		t.Errorf("runStep() error = %v, want Pump Off failed", err)
	}
}

func TestRunStep_UnknownStep(t *testing.T) {
	seq := config.SequenceConfig{Steps: config.DefaultSteps()}

	err := runStep(context.Background(), &bytes.Buffer{}, seq, "warp_core")
	if err == nil {
		t.Fatal("runStep() error = nil, want unknown step")
	}
	for _, want := range []string{"warp_core", "hv_off", "kikusui_off"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestSupplyAddress(t *testing.T) {
	addr, err := supplyAddress("", config.DefaultSteps())
	if err != nil {
		t.Fatalf("supplyAddress() error = %v", err)
	}
	if addr != "192.168.20.42:5025" {
		t.Errorf("supplyAddress() = %q", addr)
	}

	addr, err = supplyAddress("10.0.0.5:5025", config.DefaultSteps())
	if err != nil || addr != "10.0.0.5:5025" {
		t.Errorf("supplyAddress(override) = %q, %v", addr, err)
	}

	_, err = supplyAddress("", []config.StepConfig{shellStep("x", "true")})
	if !errors.Is(err, ErrNoSupply) {
		t.Errorf("supplyAddress() error = %v, want ErrNoSupply", err)
	}
}

func TestListSteps_DefaultPlan(t *testing.T) {
	var out bytes.Buffer
	listSteps(&out, config.DefaultSteps())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("listSteps() printed %d lines:\n%s", len(lines), out.String())
	}

	checks := []struct {
		line int
		want []string
	}{
		{0, []string{"1. hv_off", "hv_relay", "immediate", "retry_forever", "192.168.20.12, 192.168.20.13"}},
		{1, []string{"2. uhubctl", "ssh", "after wait", "fail_fast"}},
		{2, []string{"3. kikusui_off", "scpi", "192.168.20.42:5025 off"}},
	}
	for _, c := range checks {
		for _, want := range c.want {
			if !strings.Contains(lines[c.line], want) {
				t.Errorf("line %d = %q, missing %q", c.line+1, lines[c.line], want)
			}
		}
	}
}
