package replay

import "strings"

const replayExtension = ".sc2replay"

// IsReplayFile reports whether path has the .SC2Replay extension,
// case-insensitively. A path with no extension is never a replay file
// (spec.md §8).
func IsReplayFile(path string) bool {
	if len(path) < len(replayExtension) {
		return false
	}
	return strings.EqualFold(path[len(path)-len(replayExtension):], replayExtension)
}
