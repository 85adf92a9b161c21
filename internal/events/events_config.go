package events

// ConfigReloadEvent describes the outcome of a SIGHUP reload.
type ConfigReloadEvent struct {
	// Changed lists the top-level sections that differ from the previous load.
	Changed []string

	// RestartRequired is the subset of Changed that only applies after a
	// restart of the monitor.
	RestartRequired []string

	Error string
}

// NewConfigReloaded creates a ConfigReloaded event.
func NewConfigReloaded(changed, restartRequired []string) Event {
	return NewEvent(ConfigReloaded, &ConfigReloadEvent{
		Changed:         changed,
		RestartRequired: restartRequired,
	})
}

// NewConfigReloadFailed creates a ConfigReloadFailed event.
func NewConfigReloadFailed(err error) Event {
	return NewEvent(ConfigReloadFailed, &ConfigReloadEvent{Error: errorString(err)})
}
