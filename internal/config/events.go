package config

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/leefowlercu/lh2-monitor/internal/events"
)

type busHolder struct{ bus events.Bus }

var reloadBus atomic.Pointer[busHolder]

// SetEventBus sets where reload outcomes are published. nil detaches.
func SetEventBus(bus events.Bus) {
	if bus == nil {
		reloadBus.Store(nil)
		return
	}
	reloadBus.Store(&busHolder{bus: bus})
}

// ReloadableSections lists the config sections applied without a restart.
// The sequence section takes effect from the next shutdown sequence.
var ReloadableSections = []string{"log_level", "sequence"}

// sectionDiff is the list of top-level sections that changed between two loads.
type sectionDiff []string

func diffSections(old, new *Config) sectionDiff {
	pairs := []struct {
		name     string
		old, new any
	}{
		{"log_level", old.LogLevel, new.LogLevel},
		{"log_file", old.LogFile, new.LogFile},
		{"status", old.Status, new.Status},
		{"triggers", old.Triggers, new.Triggers},
		{"sequence", old.Sequence, new.Sequence},
		{"notify", old.Notify, new.Notify},
		{"daemon", old.Daemon, new.Daemon},
		{"telemetry", old.Telemetry, new.Telemetry},
	}

	var d sectionDiff
	for _, p := range pairs {
		if !reflect.DeepEqual(p.old, p.new) {
			d = append(d, p.name)
		}
	}
	return d
}

// restartRequired returns the changed sections a running monitor ignores.
func (d sectionDiff) restartRequired() []string {
	var out []string
	for _, s := range d {
		if !slices.Contains(ReloadableSections, s) {
			out = append(out, s)
		}
	}
	return out
}

func publishReload(ev events.Event) {
	h := reloadBus.Load()
	if h == nil {
		return
	}
	if err := h.bus.Publish(context.Background(), ev); err != nil {
		slog.Error("failed to publish config reload event", "event_type", ev.Type, "error", err)
	}
}

func publishConfigReloaded(old, new *Config) {
	d := diffSections(old, new)
	restart := d.restartRequired()
	if len(restart) > 0 {
		slog.Warn("reloaded config changes sections that apply only after a restart",
			"sections", restart)
	}
	publishReload(events.NewConfigReloaded(d, restart))
}

func publishConfigReloadFailed(err error) {
	publishReload(events.NewConfigReloadFailed(err))
}
