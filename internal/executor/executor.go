// Package executor implements C8 (Upload Executor): it takes a batch of
// prepared replays from C7, groups them by (game type, player name), and
// uploads each group serially, publishing progress events and aborting on
// the first failure.
//
// Grounded on
// _examples/original_source/src-tauri/src/services/upload_executor.rs,
// whose group-then-upload-serially shape, region extraction, and
// abort-on-first-failure semantics this file follows directly.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ladderlegends/sc2-uploader-agent/internal/agenterr"
	"github.com/ladderlegends/sc2-uploader-agent/internal/apiclient"
	"github.com/ladderlegends/sc2-uploader-agent/internal/eventbus"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
	"github.com/ladderlegends/sc2-uploader-agent/internal/scanner"
	"github.com/ladderlegends/sc2-uploader-agent/internal/tracker"
)

// Result summarizes a single Execute call.
type Result struct {
	UploadedCount int
}

// Uploader is the subset of *apiclient.Client the executor depends on.
type Uploader interface {
	UploadReplay(ctx context.Context, path, playerName, gameType, region string) (*apiclient.StoredReplay, error)
}

// Tracker is the subset of *tracker.Tracker the executor depends on.
type Tracker interface {
	Add(tracked tracker.TrackedReplay)
	Save() error
	TotalUploaded() int
}

// group is one (game type, player name) batch awaiting upload.
type group struct {
	gameType   string
	playerName string
	replays    []scanner.PreparedReplay
}

// Executor uploads prepared replay batches one group at a time.
type Executor struct {
	uploader Uploader
	tracker  Tracker
	bus      *eventbus.Bus
	logger   *logging.Logger
}

// New returns an Executor. bus may be nil, in which case progress events are
// simply not published (useful for tests and headless CLI invocations).
func New(uploader Uploader, trk Tracker, bus *eventbus.Bus, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	return &Executor{uploader: uploader, tracker: trk, bus: bus, logger: logger}
}

// Execute uploads every prepared replay, grouped by (game type, player
// name), returning immediately on the first upload failure - the group's
// remaining replays and any later groups are left untouched for the next
// scan to pick back up (they are still new, unuploaded hashes).
func (e *Executor) Execute(ctx context.Context, prepared []scanner.PreparedReplay) (Result, error) {
	if len(prepared) == 0 {
		return Result{}, nil
	}

	groups := groupByTypeAndPlayer(prepared)
	total := len(prepared)
	uploaded := 0
	index := 0

	e.logger.Info("uploading replays in groups",
		logging.Int("total", total), logging.Int("groups", len(groups)))

	for _, g := range groups {
		e.publish("upload-batch-start", map[string]any{
			"game_type":   g.gameType,
			"player_name": g.playerName,
			"count":       len(g.replays),
		})

		for _, replay := range g.replays {
			index++
			e.publish("upload-progress", map[string]any{
				"current":     index,
				"total":       total,
				"filename":    replay.File.Filename,
				"game_type":   g.gameType,
				"player_name": g.playerName,
			})

			if err := e.uploadOne(ctx, replay, g.gameType, g.playerName); err != nil {
				e.publish("upload-error", map[string]any{
					"filename": replay.File.Filename,
					"error":    err.Error(),
				})
				e.publish("upload-batch-complete", map[string]any{
					"game_type":   g.gameType,
					"player_name": g.playerName,
					"count":       len(g.replays),
				})
				return Result{UploadedCount: uploaded}, err
			}
			uploaded++
		}

		e.publish("upload-batch-complete", map[string]any{
			"game_type":   g.gameType,
			"player_name": g.playerName,
			"count":       len(g.replays),
		})
	}

	e.logger.Info("upload execution complete", logging.Int("uploaded", uploaded))
	return Result{UploadedCount: uploaded}, nil
}

func (e *Executor) uploadOne(ctx context.Context, prepared scanner.PreparedReplay, gameType, playerName string) error {
	region := extractRegionFromPath(prepared.File.Path)

	_, err := e.uploader.UploadReplay(ctx, prepared.File.Path, playerName, gameType, region)
	if err != nil && !agenterr.Is(err, agenterr.DuplicateReplay) {
		e.logger.Warn("upload failed",
			logging.String("filename", prepared.File.Filename), logging.Error(err))
		return fmt.Errorf("upload %s: %w", prepared.File.Filename, err)
	}
	if err != nil {
		e.logger.Info("server already had this replay, treating as success",
			logging.String("filename", prepared.File.Filename))
	}

	e.tracker.Add(tracker.TrackedReplay{
		Hash:       prepared.Hash,
		Filename:   prepared.File.Filename,
		FileSize:   prepared.File.Filesize,
		UploadedAt: time.Now().Unix(),
		Filepath:   prepared.File.Path,
	})
	if err := e.tracker.Save(); err != nil {
		e.logger.Warn("tracker save failed after upload (replay was accepted by server)",
			logging.String("filename", prepared.File.Filename), logging.Error(err))
	}
	e.logger.Info("uploaded replay", logging.String("filename", prepared.File.Filename))
	return nil
}

func (e *Executor) publish(eventType string, payload any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventType, payload)
}

// groupByTypeAndPlayer partitions replays into (game type, player name)
// groups, sorted by (game_type ASC, player_name ASC) for a deterministic
// upload sequence (spec.md §3, §4.8 step 1).
func groupByTypeAndPlayer(prepared []scanner.PreparedReplay) []group {
	index := make(map[string]int)
	var groups []group
	for _, p := range prepared {
		key := p.GameType.String() + "\x00" + p.PlayerName
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, group{gameType: p.GameType.String(), playerName: p.PlayerName})
			i = len(groups) - 1
		}
		groups[i].replays = append(groups[i].replays, p)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].gameType != groups[j].gameType {
			return groups[i].gameType < groups[j].gameType
		}
		return groups[i].playerName < groups[j].playerName
	})
	return groups
}

// extractRegionFromPath inspects path components for StarCraft II's
// server-id folder naming convention (e.g. "1-S2-1-802768") and maps the
// leading digit to a region code. Returns "" when no component matches.
func extractRegionFromPath(path string) string {
	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		switch {
		case strings.HasPrefix(component, "1-S2-") || strings.HasPrefix(component, "1-"):
			return "NA"
		case strings.HasPrefix(component, "2-S2-") || strings.HasPrefix(component, "2-"):
			return "EU"
		case strings.HasPrefix(component, "3-S2-") || strings.HasPrefix(component, "3-"):
			return "KR"
		case strings.HasPrefix(component, "5-S2-") || strings.HasPrefix(component, "5-"):
			return "CN"
		}
	}
	return ""
}
