package main

import (
	"path/filepath"
	"testing"

	"github.com/ladderlegends/sc2-uploader-agent/internal/config"
)

func withTempConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestMutatePreferencesAddThenRemove(t *testing.T) {
	home := withTempConfigHome(t)

	if err := mutatePreferences(func(prefs *config.Preferences) error {
		prefs.ReplayFolders = append(prefs.ReplayFolders, "/a/Replays/Multiplayer")
		return nil
	}); err != nil {
		t.Fatalf("add mutatePreferences() error = %v", err)
	}

	store := config.NewStore(filepath.Join(home, config.AppDirName, "config.json"))
	prefs, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(prefs.ReplayFolders) != 1 || prefs.ReplayFolders[0] != "/a/Replays/Multiplayer" {
		t.Fatalf("ReplayFolders = %v, want one entry", prefs.ReplayFolders)
	}

	if err := mutatePreferences(func(prefs *config.Preferences) error {
		kept := prefs.ReplayFolders[:0]
		for _, existing := range prefs.ReplayFolders {
			if existing != "/a/Replays/Multiplayer" {
				kept = append(kept, existing)
			}
		}
		prefs.ReplayFolders = kept
		return nil
	}); err != nil {
		t.Fatalf("remove mutatePreferences() error = %v", err)
	}

	prefs, err = store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(prefs.ReplayFolders) != 0 {
		t.Fatalf("ReplayFolders = %v, want empty", prefs.ReplayFolders)
	}
}

func TestFoldersAddRejectsDuplicate(t *testing.T) {
	withTempConfigHome(t)

	add := func() error {
		return newFoldersAddCmd().RunE(nil, []string{"/a/Replays/Multiplayer"})
	}

	if err := add(); err != nil {
		t.Fatalf("first add() error = %v", err)
	}
	if err := add(); err == nil {
		t.Fatal("second add() error = nil, want duplicate error")
	}
}
