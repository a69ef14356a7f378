// Package mpegts reads MPEG transport streams one packet at a time. It
// parses packet headers, reassembles PAT/PMT sections that span packets, and
// decodes the PES header (and its PTS/DTS) at the start of each payload unit.
package mpegts

// Packet is a parsed transport stream packet.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader contains the parsed header fields of a transport stream packet.
type PacketHeader struct {
	PID                       uint16
	ContinuityCounter         uint8
	HasAdaptationField        bool
	HasPayload                bool
	PayloadUnitStartIndicator bool
	TransportErrorIndicator   bool
	DiscontinuityIndicator    bool
	RandomAccessIndicator     bool
}

// PATData contains the parsed Program Association Table.
type PATData struct {
	Programs []*PATProgram
}

// PATProgram maps a program number to its PMT PID.
type PATProgram struct {
	ProgramMapID  uint16
	ProgramNumber uint16
}

// PMTData contains the parsed Program Map Table.
type PMTData struct {
	ProgramNumber     uint16
	PCRPID            uint16
	ElementaryStreams []*PMTElementaryStream
}

// PMTElementaryStream describes a single elementary stream in a PMT.
type PMTElementaryStream struct {
	ElementaryPID uint16
	StreamType    uint8
}

// PESHeader contains the parsed PES packet header.
type PESHeader struct {
	OptionalHeader *PESOptionalHeader
	StreamID       uint8
	PacketLength   int
}

// PESOptionalHeader carries optional PES fields including timestamps.
type PESOptionalHeader struct {
	DataAlignmentIndicator bool
	PTS                    *ClockReference
	DTS                    *ClockReference
}

// ClockReference holds a 33-bit MPEG-TS timestamp base value (90 kHz clock).
type ClockReference struct {
	Base int64
}

// Unit is the reader's output for one transport packet.
type Unit struct {
	// Index counts packets from zero; Offset is the byte position of the
	// packet in the input.
	Index  int64
	Offset int64

	// Packet is nil when the packet could not be parsed (bad sync byte).
	Packet *Packet

	// PES is set on payload-unit-start packets whose payload begins with a
	// PES header. ES holds the elementary stream bytes carried by this
	// packet: the bytes after the PES header, or the whole payload of a
	// continuation packet.
	PES *PESHeader
	ES  []byte

	// PAT and PMTs are set on the packet that completes a section.
	PAT  *PATData
	PMTs []*PMTData
}

// PID returns the packet PID, or false for an unparsed packet.
func (u *Unit) PID() (uint16, bool) {
	if u.Packet == nil {
		return 0, false
	}
	return u.Packet.Header.PID, true
}

// PTS returns the presentation timestamp of the PES header in this packet.
func (u *Unit) PTS() (int64, bool) {
	if u.PES == nil || u.PES.OptionalHeader == nil || u.PES.OptionalHeader.PTS == nil {
		return 0, false
	}
	return u.PES.OptionalHeader.PTS.Base, true
}
