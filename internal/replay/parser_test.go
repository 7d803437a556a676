package replay

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, players []fixturePlayer, lobby initData) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.SC2Replay")
	if err := os.WriteFile(path, encodeFixture(players, lobby), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestClassifyLadder1v1(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "Lotus", team: 1, observe: 0, control: ControlHuman},
		{name: "Foe", team: 2, observe: 0, control: ControlHuman},
	}, initData{AMM: true, Competitive: true})

	got, err := Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != Ladder1v1 {
		t.Fatalf("Classify() = %s, want %s", got, Ladder1v1)
	}
}

func TestClassifyPracticeIgnoresEverythingElse(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "Lotus", team: 1, observe: 0, control: ControlHuman},
		{name: "Foe", team: 2, observe: 0, control: ControlHuman},
	}, initData{AMM: true, Competitive: true, Practice: true})

	got, err := Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != Practice {
		t.Fatalf("Classify() = %s, want %s", got, Practice)
	}
	if got.Uploadable() {
		t.Fatal("Practice must not be uploadable")
	}
}

func TestClassifyObs1v1(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "Lotus", team: 1, observe: 0, control: ControlHuman},
		{name: "Foe", team: 2, observe: 0, control: ControlHuman},
		{name: "Watcher", team: 0, observe: 1, control: ControlHuman},
	}, initData{AMM: true, Competitive: true})

	got, err := Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != Obs1v1 {
		t.Fatalf("Classify() = %s, want %s", got, Obs1v1)
	}
}

func TestClassifyVsAI1v1(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "Lotus", team: 1, observe: 0, control: ControlHuman},
		{name: "Computer", team: 2, observe: 0, control: ControlAI},
	}, initData{})

	got, err := Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != VsAI1v1 {
		t.Fatalf("Classify() = %s, want %s", got, VsAI1v1)
	}
}

func TestClassifyPrivate1v1WhenNotAMM(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "Lotus", team: 1, observe: 0, control: ControlHuman},
		{name: "Foe", team: 2, observe: 0, control: ControlHuman},
	}, initData{})

	got, err := Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != Private1v1 {
		t.Fatalf("Classify() = %s, want %s", got, Private1v1)
	}
}

func TestClassifyTeamGame(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "A", team: 1, observe: 0, control: ControlHuman},
		{name: "B", team: 1, observe: 0, control: ControlHuman},
		{name: "C", team: 1, observe: 0, control: ControlHuman},
		{name: "D", team: 2, observe: 0, control: ControlHuman},
		{name: "E", team: 2, observe: 0, control: ControlHuman},
		{name: "F", team: 2, observe: 0, control: ControlHuman},
	}, initData{AMM: true})

	got, err := Classify(path)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != TeamGame {
		t.Fatalf("Classify() = %s, want %s", got, TeamGame)
	}
}

func TestPlayersOmitsAISlots(t *testing.T) {
	path := writeFixture(t, []fixturePlayer{
		{name: "Lotus", team: 1, observe: 0, control: ControlHuman},
		{name: "Computer", team: 2, observe: 0, control: ControlAI},
		{name: "Watcher", team: 0, observe: 1, control: ControlHuman},
	}, initData{})

	players, err := Players(path)
	if err != nil {
		t.Fatalf("Players() error = %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("Players() returned %d entries, want 2 (AI omitted)", len(players))
	}
	byName := map[string]PlayerRecord{}
	for _, p := range players {
		byName[p.Name] = p
	}
	if byName["Lotus"].IsObserver {
		t.Error("Lotus should not be an observer")
	}
	if !byName["Watcher"].IsObserver {
		t.Error("Watcher should be an observer")
	}
}

func TestClassifyCorruptArchiveReturnsParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.SC2Replay")
	if err := os.WriteFile(path, []byte("not a replay"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := Classify(path)
	if err == nil {
		t.Fatal("expected a ParseError for a corrupt archive")
	}
	var parseErr *ParseError
	if !asParseError(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func asParseError(err error, target **ParseError) bool {
	if pe, ok := err.(*ParseError); ok {
		*target = pe
		return true
	}
	return false
}

func TestIsReplayFileCaseInsensitive(t *testing.T) {
	cases := map[string]bool{
		"foo.SC2Replay": true,
		"foo.sc2replay": true,
		"foo.Sc2Replay": true,
		"foo.txt":       false,
		"foo":           false,
		"":              false,
	}
	for path, want := range cases {
		if got := IsReplayFile(path); got != want {
			t.Errorf("IsReplayFile(%q) = %v, want %v", path, got, want)
		}
	}
}
