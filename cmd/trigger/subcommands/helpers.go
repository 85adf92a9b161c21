// Package subcommands provides the trigger subcommands.
package subcommands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/lh2-monitor/internal/cmdutil"
	"github.com/leefowlercu/lh2-monitor/internal/config"
	"github.com/leefowlercu/lh2-monitor/internal/daemonclient"
	"github.com/leefowlercu/lh2-monitor/internal/trigger"
)

// markers asserts and clears trigger markers.
type markers interface {
	Assert(ctx context.Context, kind trigger.Kind) error
	Clear(ctx context.Context) error
}

// fileMarkers writes marker files directly.
type fileMarkers struct {
	store *trigger.FileStore
}

func (m fileMarkers) Assert(_ context.Context, kind trigger.Kind) error {
	return m.store.Assert(kind)
}

func (m fileMarkers) Clear(context.Context) error {
	return m.store.Clear()
}

// daemonMarkers goes through the running monitor's HTTP API.
type daemonMarkers struct {
	client *daemonclient.Client
}

func (m daemonMarkers) Assert(ctx context.Context, kind trigger.Kind) error {
	return m.client.Trigger(ctx, kind)
}

func (m daemonMarkers) Clear(ctx context.Context) error {
	return m.client.ClearTriggers(ctx)
}

func addViaDaemonFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("via-daemon", false,
		"Send the trigger through the monitor's HTTP API instead of writing the marker file")
}

func validateTrigger(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

// resolveMarkers returns the marker backend selected by the command flags.
func resolveMarkers(cmd *cobra.Command) (markers, error) {
	cfg := config.Get()

	if via, _ := cmd.Flags().GetBool("via-daemon"); via {
		return daemonMarkers{client: daemonclient.New(cfg.Daemon)}, nil
	}

	store, err := fileStore(cfg.Triggers)
	if err != nil {
		return nil, err
	}
	return fileMarkers{store: store}, nil
}

func fileStore(cfg config.TriggersConfig) (*trigger.FileStore, error) {
	paths, err := cmdutil.TriggerPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve trigger paths; %w", err)
	}
	return trigger.NewFileStore(paths), nil
}
