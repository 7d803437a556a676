// Package replay implements C2 (Replay Parser): decoding a StarCraft II
// replay archive into a game-type classification and a player list.
package replay

import (
	"os"
	"sort"
)

// PlayerRecord is an immutable snapshot of one non-AI slot (spec.md §3).
type PlayerRecord struct {
	Name       string
	IsObserver bool
}

// Classify opens path as a replay archive and returns its GameType. A
// corrupt archive or unreadable path returns a ParseError; callers should
// skip the single file and continue (spec.md §4.2, §7).
func Classify(path string) (GameType, error) {
	players, lobby, err := load(path)
	if err != nil {
		return Other, err
	}
	return classify(players, lobby), nil
}

// Players opens path and returns every non-AI slot (spec.md §4.2: "AI slots
// omitted").
func Players(path string) ([]PlayerRecord, error) {
	players, _, err := load(path)
	if err != nil {
		return nil, err
	}
	out := make([]PlayerRecord, 0, len(players))
	for _, p := range players {
		if p.isAI() {
			continue
		}
		out = append(out, PlayerRecord{Name: p.Name, IsObserver: p.isObserver()})
	}
	return out, nil
}

func load(path string) ([]detailsPlayer, initData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, initData{}, &ParseError{Path: path, Reason: err.Error()}
	}
	a, err := parseArchive(path, data)
	if err != nil {
		return nil, initData{}, err
	}
	return decodeRecords(path, a)
}

// classify is the pure function from spec.md §4.2, operating purely on the
// derived facts (team sizes, observer/AI counts, lobby flags) so it can be
// tested directly without any file I/O.
func classify(players []detailsPlayer, lobby initData) GameType {
	if lobby.Practice {
		return Practice
	}

	teamSizes := teamSizesSortedDesc(players)
	observerCount := 0
	aiCount := 0
	humanCount := 0
	for _, p := range players {
		if p.isObserver() {
			observerCount++
			continue
		}
		if p.isAI() {
			aiCount++
		} else {
			humanCount++
		}
	}

	switch {
	case equalSizes(teamSizes, []int{1, 1}):
		switch {
		case observerCount > 0:
			return Obs1v1
		case aiCount > 0:
			return VsAI1v1
		case lobby.AMM && lobby.Competitive:
			return Ladder1v1
		case lobby.AMM:
			return Unranked1v1
		default:
			return Private1v1
		}
	case equalSizes(teamSizes, []int{1}) && aiCount > 0:
		return VsAI1v1
	case equalSizes(teamSizes, []int{2, 2}):
		switch {
		case observerCount > 0:
			return Obs2v2
		case aiCount > 0:
			return VsAI1v1
		case lobby.AMM && lobby.Competitive:
			return Ladder2v2
		case lobby.AMM:
			return Unranked2v2
		default:
			return Private2v2
		}
	case len(teamSizes) == 2 && humanCount+aiCount >= 6:
		return TeamGame
	case !lobby.AMM && !lobby.Practice && humanCount > 0:
		return Arcade
	default:
		return Other
	}
}

// teamSizesSortedDesc groups active (non-observer) participants by team and
// returns the per-team head count, descending.
func teamSizesSortedDesc(players []detailsPlayer) []int {
	counts := make(map[uint8]int)
	for _, p := range players {
		if p.isObserver() {
			continue
		}
		counts[p.Team]++
	}
	sizes := make([]int, 0, len(counts))
	for _, n := range counts {
		sizes = append(sizes, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

func equalSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
