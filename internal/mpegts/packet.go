package mpegts

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	packetSize = 188
	syncByte   = 0x47
	headerSize = 4
)

var errSync = errors.New("mpegts: lost sync")

// parsePacket decodes one 188-byte packet. The payload is copied so the
// caller may reuse buf.
func parsePacket(buf []byte) (*Packet, error) {
	if len(buf) != packetSize {
		return nil, fmt.Errorf("mpegts: packet size %d, expected %d", len(buf), packetSize)
	}
	if buf[0] != syncByte {
		return nil, fmt.Errorf("%w: byte 0x%02X", errSync, buf[0])
	}

	// sync(8) tei(1) pusi(1) prio(1) pid(13) tsc(2) afc(2) cc(4)
	word := binary.BigEndian.Uint32(buf)
	p := &Packet{
		Header: PacketHeader{
			TransportErrorIndicator:   word&(1<<23) != 0,
			PayloadUnitStartIndicator: word&(1<<22) != 0,
			PID:                       uint16(word>>8) & 0x1FFF,
			HasAdaptationField:        word&(1<<5) != 0,
			HasPayload:                word&(1<<4) != 0,
			ContinuityCounter:         uint8(word) & 0x0F,
		},
	}

	start := headerSize
	if p.Header.HasAdaptationField {
		start = parseAdaptationField(buf, &p.Header)
	}
	if p.Header.HasPayload && start < packetSize {
		p.Payload = append([]byte(nil), buf[start:]...)
	}
	return p, nil
}

// parseAdaptationField reads the flags of the adaptation field at the start
// of buf's body and returns the offset of the payload, clamped to the packet.
func parseAdaptationField(buf []byte, h *PacketHeader) int {
	n := int(buf[headerSize])
	if n > 0 {
		flags := buf[headerSize+1]
		h.DiscontinuityIndicator = flags&0x80 != 0
		h.RandomAccessIndicator = flags&0x40 != 0
	}
	return min(headerSize+1+n, packetSize)
}
