package replay

// GameType is the closed classification enumeration from spec.md §3: 13
// variants, each with a string tag and an Uploadable predicate.
type GameType int

const (
	Ladder1v1 GameType = iota
	Unranked1v1
	Private1v1
	Obs1v1
	VsAI1v1
	Ladder2v2
	Unranked2v2
	Private2v2
	Obs2v2
	TeamGame
	Arcade
	Practice
	Other
)

// String returns the wire tag used in upload requests and log fields.
func (g GameType) String() string {
	switch g {
	case Ladder1v1:
		return "1v1-ladder"
	case Unranked1v1:
		return "1v1-unranked"
	case Private1v1:
		return "1v1-private"
	case Obs1v1:
		return "1v1-obs"
	case VsAI1v1:
		return "1v1-vs-ai"
	case Ladder2v2:
		return "2v2-ladder"
	case Unranked2v2:
		return "2v2-unranked"
	case Private2v2:
		return "2v2-private"
	case Obs2v2:
		return "2v2-obs"
	case TeamGame:
		return "team-game"
	case Arcade:
		return "arcade"
	case Practice:
		return "practice"
	default:
		return "other"
	}
}

// Uploadable reports whether replays of this type should ever be uploaded.
// Every 1v1 and 2v2 variant qualifies except VsAI1v1 and Practice.
func (g GameType) Uploadable() bool {
	switch g {
	case Ladder1v1, Unranked1v1, Private1v1, Obs1v1,
		Ladder2v2, Unranked2v2, Private2v2, Obs2v2:
		return true
	default:
		return false
	}
}
