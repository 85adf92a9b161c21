package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validPolicies lists recognized step error policies.
var validPolicies = map[string]bool{
	"":              true,
	"fail_fast":     true,
	"retry_forever": true,
}

// validLogLevels lists recognized log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error; got %q", cfg.LogLevel),
		})
	}

	// Validate status config
	if cfg.Status.Path == "" {
		errs = append(errs, ValidationError{Field: "status.path", Message: "must not be empty"})
	}

	if cfg.Status.Key == "" {
		errs = append(errs, ValidationError{Field: "status.key", Message: "must not be empty"})
	}

	if cfg.Status.AlertValue == "" || cfg.Status.AlertValue == cfg.Status.NormalValue {
		errs = append(errs, ValidationError{
			Field:   "status.alert_value",
			Message: fmt.Sprintf("must be non-empty and differ from status.normal_value, got %q", cfg.Status.AlertValue),
		})
	}

	if cfg.Status.PollIntervalMs < 10 {
		errs = append(errs, ValidationError{
			Field:   "status.poll_interval_ms",
			Message: fmt.Sprintf("must be at least 10, got %d", cfg.Status.PollIntervalMs),
		})
	}

	// Validate trigger config
	triggerPaths := map[string]string{
		"triggers.skip_path":   cfg.Triggers.SkipPath,
		"triggers.cancel_path": cfg.Triggers.CancelPath,
		"triggers.extend_path": cfg.Triggers.ExtendPath,
	}
	seen := make(map[string]string)
	for _, field := range []string{"triggers.skip_path", "triggers.cancel_path", "triggers.extend_path"} {
		path := triggerPaths[field]
		if path == "" {
			errs = append(errs, ValidationError{Field: field, Message: "must not be empty"})
			continue
		}
		if other, dup := seen[path]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must differ from %s, both are %q", other, path),
			})
		}
		seen[path] = field
	}

	// Validate sequence config
	if cfg.Sequence.WaitSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "sequence.wait_seconds",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Sequence.WaitSeconds),
		})
	}

	if cfg.Sequence.WaitTickMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "sequence.wait_tick_ms",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Sequence.WaitTickMs),
		})
	}

	if cfg.Sequence.SkipGraceSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "sequence.skip_grace_seconds",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Sequence.SkipGraceSeconds),
		})
	}

	if cfg.Sequence.RetryDelayMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "sequence.retry_delay_ms",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Sequence.RetryDelayMs),
		})
	}

	ids := make(map[string]bool)
	for i, step := range cfg.Sequence.Steps {
		errs = append(errs, validateStep(fmt.Sprintf("sequence.steps[%d]", i), step, ids)...)
	}

	// Validate notify config
	if cfg.Notify.SuccessStatus < 100 || cfg.Notify.SuccessStatus > 599 {
		errs = append(errs, ValidationError{
			Field:   "notify.success_status",
			Message: fmt.Sprintf("must be an HTTP status code, got %d", cfg.Notify.SuccessStatus),
		})
	}

	if cfg.Notify.TimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "notify.timeout_seconds",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Notify.TimeoutSeconds),
		})
	}

	// Validate daemon config
	if cfg.Daemon.HTTPPort < 0 || cfg.Daemon.HTTPPort > 65535 {
		errs = append(errs, ValidationError{
			Field:   "daemon.http_port",
			Message: fmt.Sprintf("must be between 0 and 65535, got %d", cfg.Daemon.HTTPPort),
		})
	}

	if cfg.Daemon.HTTPBind == "" {
		errs = append(errs, ValidationError{Field: "daemon.http_bind", Message: "must not be empty"})
	}

	if cfg.Daemon.ShutdownTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.shutdown_timeout",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Daemon.ShutdownTimeout),
		})
	}

	if cfg.Daemon.PIDFile == "" {
		errs = append(errs, ValidationError{Field: "daemon.pid_file", Message: "must not be empty"})
	}

	if cfg.Daemon.Metrics.CollectionInterval < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.metrics.collection_interval",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Daemon.Metrics.CollectionInterval),
		})
	}

	if cfg.Daemon.EventBus.BufferSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "daemon.event_bus.buffer_size",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Daemon.EventBus.BufferSize),
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// validateStep checks a single plan step and records its ID in ids.
func validateStep(prefix string, step StepConfig, ids map[string]bool) ValidationErrors {
	var errs ValidationErrors
	field := func(name string) string { return prefix + "." + name }

	if step.ID == "" {
		errs = append(errs, ValidationError{Field: field("id"), Message: "must not be empty"})
	} else if ids[step.ID] {
		errs = append(errs, ValidationError{Field: field("id"), Message: fmt.Sprintf("duplicate step id %q", step.ID)})
	}
	ids[step.ID] = true

	if !validPolicies[step.Policy] {
		errs = append(errs, ValidationError{
			Field:   field("policy"),
			Message: fmt.Sprintf("must be one of: fail_fast, retry_forever; got %q", step.Policy),
		})
	}

	switch step.Kind {
	case StepKindHVRelay:
		if len(step.Hosts) == 0 {
			errs = append(errs, ValidationError{Field: field("hosts"), Message: "must list at least one relay controller"})
		}
		if len(step.Ports) == 0 {
			errs = append(errs, ValidationError{Field: field("ports"), Message: "must list at least one relay port"})
		}
	case StepKindSSH:
		if len(step.Hosts) == 0 {
			errs = append(errs, ValidationError{Field: field("hosts"), Message: "must list at least one host"})
		}
		if len(step.Ports) == 0 && len(step.Commands) == 0 {
			errs = append(errs, ValidationError{Field: field("commands"), Message: "must set hub ports or explicit commands"})
		}
	case StepKindSCPI:
		if step.Address == "" {
			errs = append(errs, ValidationError{Field: field("address"), Message: "must not be empty"})
		}
		if step.Action != "off" && step.Action != "on" {
			errs = append(errs, ValidationError{
				Field:   field("action"),
				Message: fmt.Sprintf("must be one of: off, on; got %q", step.Action),
			})
		}
	case StepKindCommand:
		if step.Path == "" {
			errs = append(errs, ValidationError{Field: field("path"), Message: "must not be empty"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   field("kind"),
			Message: fmt.Sprintf("must be one of: hv_relay, ssh, scpi, command; got %q", step.Kind),
		})
	}

	if step.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   field("timeout_seconds"),
			Message: fmt.Sprintf("must be non-negative, got %d", step.TimeoutSeconds),
		})
	}

	return errs
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
