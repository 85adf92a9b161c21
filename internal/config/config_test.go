package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points every config search location at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv(ConfigDirEnv, tmpDir)
	t.Setenv("HOME", tmpDir)

	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origDir)
		Reset()
	})

	Reset()
	return tmpDir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

func TestInit_NoConfigFile_UsesDefaults(t *testing.T) {
	isolate(t)

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error when no config file exists: %v", err)
	}

	if path := ConfigFilePath(); path != "" {
		t.Errorf("ConfigFilePath() = %q, want empty string when no config file", path)
	}

	cfg := Get()
	if cfg.Status.Key != DefaultStatusKey {
		t.Errorf("Status.Key = %q, want %q", cfg.Status.Key, DefaultStatusKey)
	}
	if cfg.Sequence.WaitSeconds != DefaultSequenceWaitSeconds {
		t.Errorf("Sequence.WaitSeconds = %d, want %d", cfg.Sequence.WaitSeconds, DefaultSequenceWaitSeconds)
	}
	if len(cfg.Sequence.Steps) != len(DefaultSteps()) {
		t.Errorf("len(Sequence.Steps) = %d, want default plan", len(cfg.Sequence.Steps))
	}
}

func TestInit_ConfigInEnvDir_LoadsValues(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, configPath, `
status:
  path: /data/status.txt
sequence:
  wait_seconds: 300
  steps:
    - id: psu
      label: PSU Off
      kind: scpi
      gated: true
      address: 10.0.0.5:5025
      action: "off"
`)

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	if ConfigFilePath() != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", ConfigFilePath(), configPath)
	}

	cfg := Get()
	if cfg.Status.Path != "/data/status.txt" {
		t.Errorf("Status.Path = %q, want /data/status.txt", cfg.Status.Path)
	}
	if cfg.Status.Key != DefaultStatusKey {
		t.Errorf("Status.Key = %q, want default %q", cfg.Status.Key, DefaultStatusKey)
	}
	if cfg.Sequence.WaitSeconds != 300 {
		t.Errorf("Sequence.WaitSeconds = %d, want 300", cfg.Sequence.WaitSeconds)
	}
	if len(cfg.Sequence.Steps) != 1 || cfg.Sequence.Steps[0].Address != "10.0.0.5:5025" {
		t.Errorf("Sequence.Steps = %+v, want single scpi step", cfg.Sequence.Steps)
	}
}

func TestInit_InvalidYAML_ReturnsError(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "config.yaml"), "status: [unclosed\n")

	if err := Init(); err == nil {
		t.Fatal("Init() returned nil for invalid YAML, want error")
	}
}

func TestInit_InvalidValues_ReturnsValidationError(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "config.yaml"), "status:\n  poll_interval_ms: 1\n")

	err := Init()
	if err == nil {
		t.Fatal("Init() returned nil for invalid values, want error")
	}
	if !IsValidationError(err) {
		t.Errorf("Init() error = %v, want validation error", err)
	}
}

func TestInit_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("LH2MON_SEQUENCE_WAIT_SECONDS", "42")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	if got := Get().Sequence.WaitSeconds; got != 42 {
		t.Errorf("Sequence.WaitSeconds = %d, want 42 from environment", got)
	}
}

func TestInit_DotEnvSetsWebhookURL(t *testing.T) {
	dir := isolate(t)
	t.Setenv(DefaultNotifyWebhookURLEnv, "")
	os.Unsetenv(DefaultNotifyWebhookURLEnv)

	writeConfig(t, filepath.Join(dir, ".env"), "DISCORD_WEBHOOK_URL=https://discord.test/api/webhooks/1/abc\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	notify := Get().Notify
	if got := notify.ResolveWebhookURL(); got != "https://discord.test/api/webhooks/1/abc" {
		t.Errorf("ResolveWebhookURL() = %q, want value from .env", got)
	}
}

func TestInit_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	t.Setenv(DefaultNotifyWebhookURLEnv, "https://from-env")
	writeConfig(t, filepath.Join(dir, ".env"), "DISCORD_WEBHOOK_URL=https://from-file\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	if got := os.Getenv(DefaultNotifyWebhookURLEnv); got != "https://from-env" {
		t.Errorf("DISCORD_WEBHOOK_URL = %q, want environment value to win", got)
	}
}

func TestResolveWebhookURL_ConfigWins(t *testing.T) {
	t.Setenv("HOOK", "https://from-env")
	url := "https://from-config"

	cfg := NotifyConfig{WebhookURL: &url, WebhookURLEnv: "HOOK"}
	if got := cfg.ResolveWebhookURL(); got != url {
		t.Errorf("ResolveWebhookURL() = %q, want %q", got, url)
	}

	cfg.WebhookURL = nil
	if got := cfg.ResolveWebhookURL(); got != "https://from-env" {
		t.Errorf("ResolveWebhookURL() = %q, want env fallback", got)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/sks")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", "/home/sks"},
		{"~/.config/lh2monitor", "/home/sks/.config/lh2monitor"},
		{"~other/x", "~other/x"},
		{"/tmp/skip.now", "/tmp/skip.now"},
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGet_BeforeInitReturnsDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if got := Get().Daemon.HTTPPort; got != DefaultDaemonHTTPPort {
		t.Errorf("Get().Daemon.HTTPPort = %d, want %d", got, DefaultDaemonHTTPPort)
	}
}
