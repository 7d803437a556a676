package replay

import (
	"encoding/binary"
)

// Control values, per spec.md §4.2.
const (
	ControlHuman = 2
	ControlAI    = 3
)

// detailsPlayer is one slot of the "replay.details" section: the full record
// before the observer/AI filtering spec.md §4.2 and §4.6 apply.
type detailsPlayer struct {
	Name    string
	Team    uint8
	Observe uint8
	Control uint8
}

func (p detailsPlayer) isParticipant() bool { return p.Observe == 0 }
func (p detailsPlayer) isObserver() bool    { return p.Observe != 0 }
func (p detailsPlayer) isAI() bool          { return p.Control == ControlAI }

// decodeDetails parses the "replay.details" section payload: a player count
// followed by, per player, a length-prefixed name and three single-byte
// fields (team, observe, control).
func decodeDetails(path string, data []byte) ([]detailsPlayer, error) {
	if len(data) < 2 {
		return nil, newTruncatedError(path, len(data), 2)
	}
	count := int(binary.LittleEndian.Uint16(data))
	offset := 2

	players := make([]detailsPlayer, 0, count)
	for i := 0; i < count; i++ {
		if offset+1 > len(data) {
			return nil, newTruncatedError(path, len(data), offset+1)
		}
		nameLen := int(data[offset])
		offset++
		if offset+nameLen+3 > len(data) {
			return nil, newTruncatedError(path, len(data), offset+nameLen+3)
		}
		name := string(data[offset : offset+nameLen])
		offset += nameLen

		team := data[offset]
		observe := data[offset+1]
		control := data[offset+2]
		offset += 3

		players = append(players, detailsPlayer{
			Name:    name,
			Team:    team,
			Observe: observe,
			Control: control,
		})
	}
	return players, nil
}

// initData is the decoded "replay.init.data" lobby-flags section.
type initData struct {
	AMM         bool
	Competitive bool
	Practice    bool
}

// decodeInitData parses three flag bytes (amm, competitive, practice) in
// that order. Any nonzero byte means true.
func decodeInitData(path string, data []byte) (initData, error) {
	if len(data) < 3 {
		return initData{}, newTruncatedError(path, len(data), 3)
	}
	return initData{
		AMM:         data[0] != 0,
		Competitive: data[1] != 0,
		Practice:    data[2] != 0,
	}, nil
}

func decodeRecords(path string, a *archive) ([]detailsPlayer, initData, error) {
	detailsSection, ok := a.section(detailsSectionName)
	if !ok {
		return nil, initData{}, newMissingSectionError(path, detailsSectionName)
	}
	initSection, ok := a.section(initDataSectionName)
	if !ok {
		return nil, initData{}, newMissingSectionError(path, initDataSectionName)
	}

	players, err := decodeDetails(path, detailsSection.data)
	if err != nil {
		return nil, initData{}, err
	}
	lobby, err := decodeInitData(path, initSection.data)
	if err != nil {
		return nil, initData{}, err
	}
	return players, lobby, nil
}
