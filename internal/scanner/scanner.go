// Package scanner implements C7 (Replay Scanner): it walks the configured
// replay folders, classifies and filters candidates, deduplicates them
// locally against the tracker and remotely against the server, and returns a
// bounded, upload-ready batch.
//
// Grounded on
// _examples/original_source/src-tauri/src/services/replay_scanner.rs, whose
// five-step scan_and_prepare orchestration (scan -> infer players -> filter
// and hash -> check server hashes -> build result) this file follows
// directly.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/ladderlegends/sc2-uploader-agent/internal/apiclient"
	"github.com/ladderlegends/sc2-uploader-agent/internal/eventbus"
	"github.com/ladderlegends/sc2-uploader-agent/internal/inference"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
	"github.com/ladderlegends/sc2-uploader-agent/internal/replay"
	"github.com/ladderlegends/sc2-uploader-agent/internal/tracker"
)

// FileInfo is one replay found on disk, before any parsing.
type FileInfo struct {
	Path     string
	Filename string
	Filesize int64
	Modified int64 // unix seconds
}

// PreparedReplay is a single upload candidate: hashed, classified, and
// attributed to the user's in-game name.
type PreparedReplay struct {
	Hash       string
	File       FileInfo
	GameType   replay.GameType
	PlayerName string
}

// Result is the outcome of a single scan: the batch ready to upload plus
// counters describing what was filtered out along the way.
type Result struct {
	PreparedReplays      []PreparedReplay
	TotalFound           int
	LocalDuplicateCount  int
	ServerDuplicateCount int
}

// Tracker is the subset of *tracker.Tracker the scanner depends on.
type Tracker interface {
	ExistsByMetadata(filename string, size int64) bool
	IsUploaded(hash string) bool
}

// Uploader is the subset of *apiclient.Client the scanner depends on.
type Uploader interface {
	CheckHashes(ctx context.Context, hashes []apiclient.HashInfo) (*apiclient.CheckHashesResponse, error)
}

// Scanner walks a fixed set of replay folders.
type Scanner struct {
	folders []string
	logger  *logging.Logger
	bus     *eventbus.Bus
}

// New returns a Scanner bound to folders. bus may be nil, in which case the
// scanner runs without publishing upload-checking/upload-check-complete
// events (used by one-shot CLI invocations with no subscriber to notify).
func New(folders []string, bus *eventbus.Bus, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	return &Scanner{folders: folders, bus: bus, logger: logger}
}

func (s *Scanner) publish(eventType string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, payload)
}

// ScanAndPrepare runs the full five-step pipeline: find files, infer players
// if confirmedNames is empty, filter and hash, check the server for
// duplicates, and build the final batch capped at limit.
func (s *Scanner) ScanAndPrepare(ctx context.Context, trk Tracker, uploader Uploader, confirmedNames []string, limit int) (*Result, error) {
	allFiles := s.scanAllFolders()
	recent := getRecentReplays(allFiles, limit*2)

	playerNames := confirmedNames
	if len(playerNames) == 0 {
		playerNames = s.detectPlayersFromReplays(recent)
	}

	filtered := s.filterAndHashReplays(recent, trk, playerNames)

	result := &Result{
		TotalFound:          len(allFiles),
		LocalDuplicateCount: filtered.localDuplicateCount,
	}

	if len(filtered.hashInfos) == 0 {
		return result, nil
	}

	s.publish("upload-checking", map[string]any{"count": len(filtered.hashInfos)})
	checkResp, err := uploader.CheckHashes(ctx, filtered.hashInfos)
	if err != nil {
		return nil, err
	}
	result.ServerDuplicateCount = checkResp.ExistingCount
	s.publish("upload-check-complete", map[string]any{
		"new_count":      len(checkResp.NewHashes),
		"existing_count": checkResp.ExistingCount,
	})

	newHashSet := make(map[string]struct{}, len(checkResp.NewHashes))
	for _, h := range checkResp.NewHashes {
		newHashSet[h] = struct{}{}
	}

	prepared := make([]PreparedReplay, 0, len(checkResp.NewHashes))
	for _, hashInfo := range filtered.hashInfos {
		if _, ok := newHashSet[hashInfo.Hash]; !ok {
			continue
		}
		entry, ok := filtered.replayMap[hashInfo.Hash]
		if !ok {
			continue
		}
		prepared = append(prepared, entry)
		if len(prepared) >= limit {
			break
		}
	}
	result.PreparedReplays = prepared
	return result, nil
}

// scanAllFolders lists every file in s.folders whose extension marks it as a
// replay, skipping unreadable directories rather than failing the scan.
func (s *Scanner) scanAllFolders() []FileInfo {
	var out []FileInfo
	for _, folder := range s.folders {
		entries, err := os.ReadDir(folder)
		if err != nil {
			s.logger.Warn("replay folder unreadable, skipping",
				logging.String("folder", folder), logging.Error(err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(folder, entry.Name())
			if !replay.IsReplayFile(path) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			out = append(out, FileInfo{
				Path:     path,
				Filename: entry.Name(),
				Filesize: info.Size(),
				Modified: info.ModTime().Unix(),
			})
		}
	}
	return out
}

// getRecentReplays returns files sorted by modified time descending, capped
// at limit (limit <= 0 means unbounded).
func getRecentReplays(files []FileInfo, limit int) []FileInfo {
	sorted := make([]FileInfo, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Modified > sorted[j].Modified })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// detectPlayersFromReplays parses every candidate replay's player list and
// runs C6's co-occurrence inference over the batch, falling back to no
// candidates (every game is then treated as the user's) when parsing fails.
func (s *Scanner) detectPlayersFromReplays(files []FileInfo) []string {
	batch := make([]inference.ReplayPlayers, 0, len(files))
	for _, f := range files {
		players, err := replay.Players(f.Path)
		if err != nil {
			s.logger.Debug("skipping unparsable replay during player inference",
				logging.String("path", f.Path), logging.Error(err))
			continue
		}
		names := make([]string, 0, len(players))
		for _, p := range players {
			if p.IsObserver {
				continue
			}
			names = append(names, p.Name)
		}
		batch = append(batch, inference.ReplayPlayers{ReplayID: f.Path, Names: names})
	}
	return inference.InferPlayerNames(batch)
}

type filterResult struct {
	hashInfos           []apiclient.HashInfo
	replayMap           map[string]PreparedReplay
	localDuplicateCount int
}

// filterAndHashReplays classifies each candidate, drops non-uploadable game
// types and replays the user didn't actively play in, skips anything the
// local tracker already knows about (by metadata, then by hash), and hashes
// everything that survives.
func (s *Scanner) filterAndHashReplays(files []FileInfo, trk Tracker, playerNames []string) filterResult {
	result := filterResult{
		replayMap: make(map[string]PreparedReplay),
	}

	for _, f := range files {
		gameType, err := replay.Classify(f.Path)
		if err != nil {
			s.logger.Debug("skipping unparsable replay",
				logging.String("path", f.Path), logging.Error(err))
			continue
		}
		if !gameType.Uploadable() {
			continue
		}

		players, err := replay.Players(f.Path)
		if err != nil {
			continue
		}
		playerName, ok := findUserInGame(players, playerNames)
		if !ok {
			continue
		}

		if trk.ExistsByMetadata(f.Filename, f.Filesize) {
			result.localDuplicateCount++
			continue
		}

		hash, err := tracker.CalculateHash(f.Path)
		if err != nil {
			s.logger.Warn("failed to hash replay, skipping",
				logging.String("path", f.Path), logging.Error(err))
			continue
		}
		if trk.IsUploaded(hash) {
			result.localDuplicateCount++
			continue
		}

		result.hashInfos = append(result.hashInfos, apiclient.HashInfo{
			Hash:     hash,
			Filename: f.Filename,
			Filesize: f.Filesize,
		})
		result.replayMap[hash] = PreparedReplay{
			Hash:       hash,
			File:       f,
			GameType:   gameType,
			PlayerName: playerName,
		}
	}
	return result
}

// findUserInGame returns the first active, non-observer player whose name
// is in userNames. An empty userNames matches the first active player,
// mirroring replay_scanner.rs's behavior when no identity has been inferred
// yet.
func findUserInGame(players []replay.PlayerRecord, userNames []string) (string, bool) {
	lookup := make(map[string]struct{}, len(userNames))
	for _, n := range userNames {
		lookup[n] = struct{}{}
	}
	for _, p := range players {
		if p.IsObserver {
			continue
		}
		if len(lookup) == 0 {
			return p.Name, true
		}
		if _, ok := lookup[p.Name]; ok {
			return p.Name, true
		}
	}
	return "", false
}
