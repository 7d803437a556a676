package replay

import (
	"bytes"
	"encoding/binary"
)

// encodeFixture builds a well-formed archive byte stream for tests, the
// mirror image of parseArchive/decodeDetails/decodeInitData.
type fixturePlayer struct {
	name    string
	team    uint8
	observe uint8
	control uint8
}

func encodeFixture(players []fixturePlayer, lobby initData) []byte {
	var details bytes.Buffer
	binary.Write(&details, binary.LittleEndian, uint16(len(players)))
	for _, p := range players {
		details.WriteByte(byte(len(p.name)))
		details.WriteString(p.name)
		details.WriteByte(p.team)
		details.WriteByte(p.observe)
		details.WriteByte(p.control)
	}

	initBytes := []byte{boolByte(lobby.AMM), boolByte(lobby.Competitive), boolByte(lobby.Practice)}

	var buf bytes.Buffer
	buf.Write(magicString)
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	writeSection(&buf, detailsSectionName, details.Bytes())
	writeSection(&buf, initDataSectionName, initBytes)
	return buf.Bytes()
}

func writeSection(buf *bytes.Buffer, name string, data []byte) {
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(compressionNone)
	binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
