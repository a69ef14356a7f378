// Package tstest builds synthetic MPEG-TS packets, PSI sections, and PES
// headers for tests.
package tstest

import "encoding/binary"

// PacketSize is the size of one transport packet.
const PacketSize = 188

// Stream is one elementary stream entry of a PMT.
type Stream struct {
	Type uint8
	PID  uint16
}

// Program is one PAT entry.
type Program struct {
	Number uint16
	PMTPID uint16
}

var crcTable [256]uint32

func init() {
	for i := range crcTable {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// CRC32 computes the MPEG-2 section CRC of data.
func CRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// Packet builds a payload-only packet. payload is truncated to fit and the
// remainder is filled with 0xFF.
func Packet(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = 0x47
	buf[1] = byte(pid>>8) & 0x1F
	if pusi {
		buf[1] |= 0x40
	}
	buf[2] = byte(pid)
	buf[3] = 0x10 | cc&0x0F
	n := copy(buf[4:], payload)
	for i := 4 + n; i < PacketSize; i++ {
		buf[i] = 0xFF
	}
	return buf
}

// PacketWithAF builds a packet carrying an adaptation field of afLen bytes
// (all flags clear) followed by payload. A nil payload yields an
// adaptation-only packet.
func PacketWithAF(pid uint16, cc uint8, afLen int, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = 0x47
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	if payload != nil {
		buf[3] = 0x30 | cc&0x0F
	} else {
		buf[3] = 0x20 | cc&0x0F
	}
	buf[4] = byte(afLen)
	if off := 5 + afLen; off < PacketSize {
		copy(buf[off:], payload)
	}
	return buf
}

// PAT builds a program association section including its CRC.
func PAT(tsID uint16, programs ...Program) []byte {
	sectionLength := 5 + 4*len(programs) + 4
	data := make([]byte, 3+sectionLength)
	data[0] = 0x00
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	binary.BigEndian.PutUint16(data[3:], tsID)
	data[5] = 0xC1
	off := 8
	for _, p := range programs {
		binary.BigEndian.PutUint16(data[off:], p.Number)
		data[off+2] = 0xE0 | byte(p.PMTPID>>8)&0x1F
		data[off+3] = byte(p.PMTPID)
		off += 4
	}
	binary.BigEndian.PutUint32(data[off:], CRC32(data[:off]))
	return data
}

// PMT builds a program map section including its CRC.
func PMT(programNum, pcrPID uint16, streams ...Stream) []byte {
	sectionLength := 9 + 5*len(streams) + 4
	data := make([]byte, 3+sectionLength)
	data[0] = 0x02
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	binary.BigEndian.PutUint16(data[3:], programNum)
	data[5] = 0xC1
	data[8] = 0xE0 | byte(pcrPID>>8)&0x1F
	data[9] = byte(pcrPID)
	data[10] = 0xF0
	off := 12
	for _, s := range streams {
		data[off] = s.Type
		data[off+1] = 0xE0 | byte(s.PID>>8)&0x1F
		data[off+2] = byte(s.PID)
		data[off+3] = 0xF0
		off += 5
	}
	binary.BigEndian.PutUint32(data[off:], CRC32(data[:off]))
	return data
}

// PSIPayload prefixes a section with a zero pointer field.
func PSIPayload(section []byte) []byte {
	return append([]byte{0x00}, section...)
}

// EncodeTimestamp encodes a 33-bit PTS or DTS with the given 4-bit prefix.
func EncodeTimestamp(prefix byte, v int64) []byte {
	return []byte{
		prefix<<4 | byte(v>>29)&0x0E | 0x01,
		byte(v >> 22),
		byte(v>>14)&0xFE | 0x01,
		byte(v >> 7),
		byte(v<<1)&0xFE | 0x01,
	}
}

// PES builds a PES packet. A negative pts omits the timestamp; a negative
// dts omits the DTS. Video stream IDs (0xE0-0xEF) use an unbounded length.
func PES(streamID byte, pts, dts int64, data []byte) []byte {
	var opt []byte
	flags := byte(0)
	switch {
	case pts >= 0 && dts >= 0:
		flags = 0xC0
		opt = append(opt, EncodeTimestamp(0x03, pts)...)
		opt = append(opt, EncodeTimestamp(0x01, dts)...)
	case pts >= 0:
		flags = 0x80
		opt = append(opt, EncodeTimestamp(0x02, pts)...)
	}

	length := 3 + len(opt) + len(data)
	if streamID&0xF0 == 0xE0 {
		length = 0
	}
	buf := make([]byte, 0, 9+len(opt)+len(data))
	buf = append(buf, 0x00, 0x00, 0x01, streamID, byte(length>>8), byte(length))
	buf = append(buf, 0x80, flags, byte(len(opt)))
	buf = append(buf, opt...)
	return append(buf, data...)
}

// Packetize splits a PES packet into transport packets on pid, advancing
// cc. The last packet is padded with an adaptation field.
func Packetize(pes []byte, pid uint16, cc *uint8) [][]byte {
	var out [][]byte
	for first := true; len(pes) > 0; first = false {
		buf := make([]byte, PacketSize)
		buf[0] = 0x47
		buf[1] = byte(pid>>8) & 0x1F
		if first {
			buf[1] |= 0x40
		}
		buf[2] = byte(pid)
		buf[3] = 0x10 | *cc&0x0F
		*cc = (*cc + 1) & 0x0F

		room := PacketSize - 4
		if len(pes) >= room {
			copy(buf[4:], pes[:room])
			pes = pes[room:]
			out = append(out, buf)
			continue
		}

		stuff := room - len(pes)
		buf[3] |= 0x20
		buf[4] = byte(stuff - 1)
		if stuff > 1 {
			buf[5] = 0x00
			for i := 6; i < 4+stuff; i++ {
				buf[i] = 0xFF
			}
		}
		copy(buf[4+stuff:], pes)
		pes = nil
		out = append(out, buf)
	}
	return out
}

// Concat joins packets into one byte stream.
func Concat(pkts ...[]byte) []byte {
	var out []byte
	for _, p := range pkts {
		out = append(out, p...)
	}
	return out
}
