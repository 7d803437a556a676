// Package inference implements C6 (Player Identity Inference): a pure
// co-occurrence statistic that, absent a server hint, identifies the user's
// own in-game aliases across a batch of parsed replays.
package inference

import (
	"sort"
	"strings"
)

// ReplayPlayers is one replay's active (non-observer) player list, keyed by
// an opaque replay identifier for readability in tests and logs.
type ReplayPlayers struct {
	ReplayID string
	Names    []string
}

var aiNames = map[string]struct{}{
	"computer": {},
	"a.i.":     {},
	"ai":       {},
	"bot":      {},
}

// InferPlayerNames returns candidate user aliases ordered by descending
// confidence (spec.md §4.6). The first candidate is the most likely; more
// than one candidate typically indicates smurf accounts.
func InferPlayerNames(replays []ReplayPlayers) []string {
	frequency := make(map[string]int)
	coOccurrence := make(map[string]map[string]int)

	for _, replay := range replays {
		names := dedupNonAI(replay.Names)
		for _, name := range names {
			frequency[name]++
			if coOccurrence[name] == nil {
				coOccurrence[name] = make(map[string]int)
			}
		}
		for _, a := range names {
			for _, b := range names {
				if a == b {
					continue
				}
				coOccurrence[a][b]++
			}
		}
	}

	names := make([]string, 0, len(frequency))
	for name := range frequency {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if frequency[names[i]] != frequency[names[j]] {
			return frequency[names[i]] > frequency[names[j]]
		}
		return names[i] < names[j]
	})

	var candidates []string
	for i, name := range names {
		if frequency[name] <= 1 {
			continue
		}
		isPartner := false
		for _, higher := range names[:i] {
			if frequency[higher] <= frequency[name] {
				continue
			}
			rate := float64(coOccurrence[name][higher]) / float64(frequency[name])
			if rate > 0.5 {
				isPartner = true
				break
			}
		}
		if !isPartner {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

// dedupNonAI drops AI literal names (case-insensitive) and duplicate entries
// within a single replay (a name should count once per replay it appears in).
func dedupNonAI(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, isAI := aiNames[strings.ToLower(name)]; isAI {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
