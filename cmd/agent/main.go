// Command agent is the headless CLI entrypoint for the replay uploader:
// scan-and-upload on demand, a long-running watch loop, replay-folder
// management, and debug-log export.
//
// Grounded on _examples/condortango-w3g-parser/go.mod's direct
// github.com/spf13/cobra requirement for the subcommand surface; the
// runtime wiring itself (config -> logger -> tracker -> client -> manager)
// follows _examples/original_source/src-tauri/src/lib.rs's Tauri command
// handlers, translated from "one handler per IPC command" to "one cobra
// subcommand per CLI verb".
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ladderlegends/sc2-uploader-agent/internal/apiclient"
	"github.com/ladderlegends/sc2-uploader-agent/internal/auth"
	"github.com/ladderlegends/sc2-uploader-agent/internal/config"
	"github.com/ladderlegends/sc2-uploader-agent/internal/eventbus"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
	"github.com/ladderlegends/sc2-uploader-agent/internal/manager"
	"github.com/ladderlegends/sc2-uploader-agent/internal/tracker"
)

// runtime bundles every dependency a subcommand needs, built once per
// invocation from persisted config/auth state.
type runtime struct {
	cfg       *config.Config
	prefs     config.Preferences
	logger    *logging.Logger
	tracker   *tracker.Tracker
	client    *apiclient.Client
	auth      auth.StoredAuth
	manager   *manager.Manager
	configDir string
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dir, err := config.EnsureDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	prefStore := config.NewStore(filepath.Join(dir, "config.json"))
	prefs, err := prefStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	trk := tracker.Load(filepath.Join(dir, "replays.json"), logger)

	authStore := auth.NewStore(filepath.Join(dir, "auth.json"))
	stored, err := authStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load auth: %w", err)
	}

	client := apiclient.New(cfg.APIBaseURL, stored.AccessToken)

	mgr := manager.New(prefs.ReplayFolders, *cfg, client, trk, nil, logger)

	return &runtime{
		cfg:       cfg,
		prefs:     prefs,
		logger:    logger,
		tracker:   trk,
		client:    client,
		auth:      stored,
		manager:   mgr,
		configDir: dir,
	}, nil
}

// rebuildManagerWithBus replaces rt's manager with one wired to bus, for the
// watch command only: buildRuntime constructs a manager with no event bus
// since scan/folders/debug-log never need one, and Manager holds its bus
// unexported so the only way to attach one after the fact is to rebuild.
func rebuildManagerWithBus(rt *runtime, bus *eventbus.Bus) *manager.Manager {
	return manager.New(rt.prefs.ReplayFolders, *rt.cfg, rt.client, rt.tracker, bus, rt.logger)
}

func main() {
	root := &cobra.Command{
		Use:   "agent",
		Short: "Headless uploader for Ladder Legends Academy replay tracking",
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newFoldersCmd())
	root.AddCommand(newDebugLogCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
