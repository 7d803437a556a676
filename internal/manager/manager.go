// Package manager implements C9 (Upload Manager): the thin coordinator that
// wires the tracker (C3), API client (C4), watcher (C5), scanner (C7), and
// executor (C8) together behind a single state struct a CLI or UI layer can
// poll or subscribe to.
//
// Grounded on _examples/original_source/src-tauri/src/upload_manager.rs for
// the UploadStatus/UploadManagerState shape and the scan-then-upload
// orchestration, composed with the later split into
// services/replay_scanner.rs (C7) and services/upload_executor.rs (C8) that
// this repo's internal/scanner and internal/executor packages implement
// directly.
package manager

import (
	"context"
	"sync"

	"github.com/ladderlegends/sc2-uploader-agent/internal/apiclient"
	"github.com/ladderlegends/sc2-uploader-agent/internal/config"
	"github.com/ladderlegends/sc2-uploader-agent/internal/eventbus"
	"github.com/ladderlegends/sc2-uploader-agent/internal/executor"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
	"github.com/ladderlegends/sc2-uploader-agent/internal/scanner"
	"github.com/ladderlegends/sc2-uploader-agent/internal/tracker"
	"github.com/ladderlegends/sc2-uploader-agent/internal/watcher"
)

// UploadStatus is the tagged union of per-replay progress states (spec.md's
// manager supplement, matching upload_manager.rs's UploadStatus enum).
type UploadStatus struct {
	Status   string `json:"status"` // "pending" | "uploading" | "completed" | "failed"
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
}

// State is the snapshot a CLI or UI layer reads to render progress.
type State struct {
	TotalUploaded int           `json:"total_uploaded"`
	CurrentUpload *UploadStatus `json:"current_upload,omitempty"`
	PendingCount  int           `json:"pending_count"`
	IsWatching    bool          `json:"is_watching"`
}

// Manager coordinates a single scan-and-upload cycle or a long-running
// watch loop, exposing a mutex-guarded State snapshot.
type Manager struct {
	folders []string
	cfg     config.Config
	client  *apiclient.Client
	tracker *tracker.Tracker
	scanner *scanner.Scanner
	exec    *executor.Executor
	watch   *watcher.Watcher
	bus     *eventbus.Bus
	logger  *logging.Logger

	mu    sync.Mutex
	state State
}

// New wires a Manager from its already-constructed dependencies. folders is
// the set of replay directories the scanner and watcher both operate over;
// cfg supplies the watcher's tunables (poll interval, heartbeat, settle
// delay) when StartWatching is called.
func New(folders []string, cfg config.Config, client *apiclient.Client, trk *tracker.Tracker, bus *eventbus.Bus, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	m := &Manager{
		folders: folders,
		cfg:     cfg,
		client:  client,
		tracker: trk,
		bus:     bus,
		logger:  logger,
	}
	m.scanner = scanner.New(folders, bus, logger)
	m.exec = executor.New(client, trk, bus, logger)
	return m
}

// playerNameHints fetches the confirmed/possible player-name hints from
// /api/settings and unions them into a single name list (confirmed ∪ keys
// of possible), matching spec.md §4.9's C9 contract. Any fetch error yields
// an empty hint list rather than aborting the scan - the scanner falls back
// to co-occurrence inference in that case.
func (m *Manager) playerNameHints(ctx context.Context) []string {
	settings, err := m.client.GetUserSettings(ctx)
	if err != nil {
		m.logger.Warn("could not fetch player settings, scanning without identity hints",
			logging.Error(err))
		return nil
	}

	seen := make(map[string]struct{}, len(settings.ConfirmedPlayerNames)+len(settings.PossiblePlayerNames))
	var names []string
	for _, name := range settings.ConfirmedPlayerNames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for name := range settings.PossiblePlayerNames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// State returns a copy of the manager's current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ScanAndUpload runs a single scan-and-prepare-and-upload cycle: fetch the
// player-name hint, two-layer dedup via the scanner, then a serial upload
// pass via the executor. It returns the number of replays uploaded.
func (m *Manager) ScanAndUpload(ctx context.Context, limit int) (int, error) {
	if m.bus != nil {
		m.bus.Publish("upload-start", map[string]any{"limit": limit})
	}

	confirmedNames := m.playerNameHints(ctx)

	result, err := m.scanner.ScanAndPrepare(ctx, m.tracker, m.client, confirmedNames, limit)
	if err != nil {
		return 0, err
	}

	m.setPendingCount(len(result.PreparedReplays))

	if len(result.PreparedReplays) == 0 {
		m.clearCurrentUpload()
		return 0, nil
	}

	execResult, err := m.exec.Execute(ctx, result.PreparedReplays)
	m.setTotalUploaded(m.tracker.TotalUploaded())
	m.clearCurrentUpload()

	if m.bus != nil {
		m.bus.Publish("upload-complete", map[string]any{"count": execResult.UploadedCount})
	}
	return execResult.UploadedCount, err
}

// StartWatching begins watching m.folders for new replay files, invoking
// onNewFile for each one detected (typically a debounced re-scan trigger).
// stop_watching in the original source is explicitly a no-op - the watcher
// lives for the process lifetime - so this package has no corresponding
// Stop method; cancel ctx to stop.
func (m *Manager) StartWatching(ctx context.Context, onNewFile func(path string)) error {
	m.watch = watcher.New(m.folders, m.cfg, m.logger, onNewFile)
	if err := m.watch.Start(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.IsWatching = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) setPendingCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.PendingCount = n
}

func (m *Manager) setTotalUploaded(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.TotalUploaded = n
}

func (m *Manager) clearCurrentUpload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.CurrentUpload = nil
}
