package daemon

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// ComponentStatus is the health state of one component.
type ComponentStatus string

const (
	ComponentStatusRunning  ComponentStatus = "running"
	ComponentStatusDegraded ComponentStatus = "degraded"
	ComponentStatusFailed   ComponentStatus = "failed"
	ComponentStatusStopped  ComponentStatus = "stopped"
)

// IsHealthy returns true if the status represents normal operation.
func (s ComponentStatus) IsHealthy() bool {
	return s == ComponentStatusRunning
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	// Status is the current health state.
	Status ComponentStatus `json:"status"`

	// Error contains the error message when Status is not running.
	Error string `json:"error,omitempty"`

	// LastChecked is when the health was last evaluated.
	LastChecked time.Time `json:"last_checked"`

	// Details carries optional diagnostic data.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the component health indicates healthy operation.
func (h ComponentHealth) IsHealthy() bool {
	return h.Status.IsHealthy()
}

// HealthStatus is the response body of /readyz.
type HealthStatus struct {
	// Status is "healthy", "degraded" or "unhealthy".
	Status string `json:"status"`

	// Ready is false only when a critical component has failed.
	Ready bool `json:"ready"`

	// Uptime is how long the daemon has been running.
	Uptime time.Duration `json:"uptime"`

	// Components contains per-component health status.
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// HealthProbe evaluates a component on demand.
type HealthProbe func() ComponentHealth

// HealthManager aggregates component health. Components either push their
// state with UpdateComponent or register a probe evaluated on every Status.
// It is safe for concurrent use.
type HealthManager struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	probes     map[string]HealthProbe
	critical   map[string]bool
	startTime  time.Time
}

// NewHealthManager creates a new HealthManager instance.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		components: make(map[string]ComponentHealth),
		probes:     make(map[string]HealthProbe),
		critical:   make(map[string]bool),
		startTime:  time.Now(),
	}
}

// UpdateComponent records the health status for a named component.
func (m *HealthManager) UpdateComponent(name string, health ComponentHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if health.LastChecked.IsZero() {
		health.LastChecked = time.Now()
	}
	m.components[name] = health
}

// RegisterProbe adds a probe for name. A failed critical component makes the
// daemon unready.
func (m *HealthManager) RegisterProbe(name string, critical bool, probe HealthProbe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = probe
	m.critical[name] = critical
}

// SetCritical marks a pushed component as critical.
func (m *HealthManager) SetCritical(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.critical[name] = true
}

// RemoveComponent removes a component from health tracking.
func (m *HealthManager) RemoveComponent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.components, name)
	delete(m.probes, name)
	delete(m.critical, name)
}

// Status returns the aggregate health status of all components.
func (m *HealthManager) Status() HealthStatus {
	m.mu.RLock()
	components := maps.Clone(m.components)
	probes := maps.Clone(m.probes)
	critical := maps.Clone(m.critical)
	startTime := m.startTime
	m.mu.RUnlock()

	for name, probe := range probes {
		h := probe()
		if h.LastChecked.IsZero() {
			h.LastChecked = time.Now()
		}
		components[name] = h
	}

	status := HealthStatus{
		Status:     "healthy",
		Ready:      true,
		Uptime:     time.Since(startTime),
		Components: components,
	}

	for _, name := range slices.Sorted(maps.Keys(components)) {
		h := components[name]
		if h.IsHealthy() {
			continue
		}
		if critical[name] && h.Status == ComponentStatusFailed {
			status.Status = "unhealthy"
			status.Ready = false
			break
		}
		status.Status = "degraded"
	}

	return status
}
