package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/ladderlegends/sc2-uploader-agent/internal/agenterr"
	"github.com/ladderlegends/sc2-uploader-agent/internal/apiclient"
	"github.com/ladderlegends/sc2-uploader-agent/internal/replay"
	"github.com/ladderlegends/sc2-uploader-agent/internal/scanner"
	"github.com/ladderlegends/sc2-uploader-agent/internal/tracker"
)

type fakeUploader struct {
	calls []string
	fail  map[string]error
}

func (f *fakeUploader) UploadReplay(ctx context.Context, path, playerName, gameType, region string) (*apiclient.StoredReplay, error) {
	f.calls = append(f.calls, path)
	if err, ok := f.fail[path]; ok {
		return nil, err
	}
	return &apiclient.StoredReplay{ID: "1", Filename: path}, nil
}

type fakeTracker struct {
	added []tracker.TrackedReplay
}

func (f *fakeTracker) Add(t tracker.TrackedReplay) { f.added = append(f.added, t) }
func (f *fakeTracker) Save() error                 { return nil }
func (f *fakeTracker) TotalUploaded() int          { return len(f.added) }

func prepared(path, filename string, gameType replay.GameType, player string) scanner.PreparedReplay {
	return scanner.PreparedReplay{
		Hash:       "hash-" + filename,
		File:       scanner.FileInfo{Path: path, Filename: filename, Filesize: 10},
		GameType:   gameType,
		PlayerName: player,
	}
}

func TestExecuteUploadsEveryReplayAndUpdatesTracker(t *testing.T) {
	up := &fakeUploader{fail: map[string]error{}}
	trk := &fakeTracker{}
	e := New(up, trk, nil, nil)

	batch := []scanner.PreparedReplay{
		prepared("/r/a.SC2Replay", "a.SC2Replay", replay.Ladder1v1, "Lotus"),
		prepared("/r/b.SC2Replay", "b.SC2Replay", replay.Ladder1v1, "Lotus"),
	}
	result, err := e.Execute(context.Background(), batch)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.UploadedCount != 2 {
		t.Fatalf("UploadedCount = %d, want 2", result.UploadedCount)
	}
	if len(trk.added) != 2 {
		t.Fatalf("tracker.added = %d, want 2", len(trk.added))
	}
}

func TestExecuteAbortsOnFirstFailure(t *testing.T) {
	up := &fakeUploader{fail: map[string]error{
		"/r/b.SC2Replay": errors.New("server exploded"),
	}}
	trk := &fakeTracker{}
	e := New(up, trk, nil, nil)

	batch := []scanner.PreparedReplay{
		prepared("/r/a.SC2Replay", "a.SC2Replay", replay.Ladder1v1, "Lotus"),
		prepared("/r/b.SC2Replay", "b.SC2Replay", replay.Ladder1v1, "Lotus"),
		prepared("/r/c.SC2Replay", "c.SC2Replay", replay.Ladder1v1, "Lotus"),
	}
	result, err := e.Execute(context.Background(), batch)
	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if result.UploadedCount != 1 {
		t.Fatalf("UploadedCount = %d, want 1", result.UploadedCount)
	}
	if len(up.calls) != 2 {
		t.Fatalf("upload calls = %d, want 2 (stopped after failure)", len(up.calls))
	}
}

func TestExecuteTreatsDuplicateReplayAsSuccess(t *testing.T) {
	up := &fakeUploader{fail: map[string]error{
		"/r/a.SC2Replay": agenterr.New(agenterr.DuplicateReplay, "apiclient.UploadReplay", errors.New("duplicate")),
	}}
	trk := &fakeTracker{}
	e := New(up, trk, nil, nil)

	batch := []scanner.PreparedReplay{
		prepared("/r/a.SC2Replay", "a.SC2Replay", replay.Ladder1v1, "Lotus"),
	}
	result, err := e.Execute(context.Background(), batch)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil (duplicate treated as success)", err)
	}
	if result.UploadedCount != 1 {
		t.Fatalf("UploadedCount = %d, want 1", result.UploadedCount)
	}
}

func TestExecuteReturnsZeroForEmptyBatch(t *testing.T) {
	e := New(&fakeUploader{}, &fakeTracker{}, nil, nil)
	result, err := e.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.UploadedCount != 0 {
		t.Fatalf("UploadedCount = %d, want 0", result.UploadedCount)
	}
}

func TestGroupByTypeAndPlayerGroupsDistinctCombinations(t *testing.T) {
	batch := []scanner.PreparedReplay{
		prepared("/r/a.SC2Replay", "a.SC2Replay", replay.Ladder1v1, "Lotus"),
		prepared("/r/b.SC2Replay", "b.SC2Replay", replay.Ladder2v2, "Lotus"),
		prepared("/r/c.SC2Replay", "c.SC2Replay", replay.Ladder1v1, "Lotus"),
	}
	groups := groupByTypeAndPlayer(batch)
	if len(groups) != 2 {
		t.Fatalf("groupByTypeAndPlayer() groups = %d, want 2", len(groups))
	}
	if groups[0].gameType != "1v1-ladder" || len(groups[0].replays) != 2 {
		t.Fatalf("groups[0] = %+v", groups[0])
	}
}

func TestGroupByTypeAndPlayerSortsEvenWhenFirstSeenOrderIsReversed(t *testing.T) {
	batch := []scanner.PreparedReplay{
		prepared("/r/a.SC2Replay", "a.SC2Replay", replay.Ladder2v2, "Zerg"),
		prepared("/r/b.SC2Replay", "b.SC2Replay", replay.Ladder1v1, "Zerg"),
		prepared("/r/c.SC2Replay", "c.SC2Replay", replay.Ladder1v1, "Alpha"),
	}
	groups := groupByTypeAndPlayer(batch)
	if len(groups) != 3 {
		t.Fatalf("groupByTypeAndPlayer() groups = %d, want 3", len(groups))
	}
	want := []group{
		{gameType: "1v1-ladder", playerName: "Alpha"},
		{gameType: "1v1-ladder", playerName: "Zerg"},
		{gameType: "2v2-ladder", playerName: "Zerg"},
	}
	for i, w := range want {
		if groups[i].gameType != w.gameType || groups[i].playerName != w.playerName {
			t.Fatalf("groups[%d] = (%q, %q), want (%q, %q)",
				i, groups[i].gameType, groups[i].playerName, w.gameType, w.playerName)
		}
	}
}

func TestExtractRegionFromPathMapsServerPrefixes(t *testing.T) {
	cases := map[string]string{
		"/Users/test/StarCraft II/Accounts/123/1-S2-1-802768/Replays/test.SC2Replay": "NA",
		"/Users/test/2-S2-1-802768/replay.SC2Replay":                                 "EU",
		"/Users/test/3-S2-1-802768/replay.SC2Replay":                                 "KR",
		"/Users/test/5-S2-1-802768/replay.SC2Replay":                                 "CN",
		"/Users/test/Documents/replays/test.SC2Replay":                               "",
	}
	for path, want := range cases {
		if got := extractRegionFromPath(path); got != want {
			t.Fatalf("extractRegionFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
