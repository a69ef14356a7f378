package mpegts

import "fmt"

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(data []byte) bool {
	return len(data) >= 3 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// hasOptionalHeader reports whether a stream ID carries the optional PES
// header. padding_stream, private_stream_2, ECM, EMM, DSMCC, H.222.1 type E
// and program_stream_directory do not.
func hasOptionalHeader(streamID uint8) bool {
	switch streamID {
	case 0xBC, 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		return false
	}
	return true
}

// parsePESHeader decodes the PES header at the start of payload and returns
// it together with the offset of the first elementary stream byte.
func parsePESHeader(payload []byte) (*PESHeader, int, error) {
	if len(payload) < 6 {
		return nil, 0, fmt.Errorf("mpegts: PES packet too short (%d bytes)", len(payload))
	}
	if !isPESPayload(payload) {
		return nil, 0, fmt.Errorf("mpegts: invalid PES start code")
	}

	hdr := &PESHeader{
		StreamID:     payload[3],
		PacketLength: int(payload[4])<<8 | int(payload[5]),
	}
	if !hasOptionalHeader(hdr.StreamID) {
		return hdr, 6, nil
	}
	if len(payload) < 9 {
		return nil, 0, fmt.Errorf("mpegts: PES optional header too short")
	}

	// payload[6]: '10' scrambling(2) priority(1) alignment(1) copyright(1) original(1)
	// payload[7]: PTS_DTS_flags(2) ESCR(1) ES_rate(1) trick(1) copy_info(1) CRC(1) extension(1)
	// payload[8]: PES_header_data_length
	opt := &PESOptionalHeader{
		DataAlignmentIndicator: payload[6]&0x04 != 0,
	}
	hdr.OptionalHeader = opt

	switch payload[7] >> 6 {
	case 2:
		if len(payload) >= 14 {
			opt.PTS = parseTimestamp(payload[9:14])
		}
	case 3:
		if len(payload) >= 19 {
			opt.PTS = parseTimestamp(payload[9:14])
			opt.DTS = parseTimestamp(payload[14:19])
		}
	}

	esStart := 9 + int(payload[8])
	if esStart > len(payload) {
		esStart = len(payload)
	}
	return hdr, esStart, nil
}

// parseTimestamp extracts a 33-bit timestamp from 5 PES timestamp bytes.
func parseTimestamp(bs []byte) *ClockReference {
	if len(bs) < 5 {
		return nil
	}
	base := int64(bs[0]>>1&0x07)<<30 |
		int64(bs[1])<<22 |
		int64(bs[2]>>1&0x7F)<<15 |
		int64(bs[3])<<7 |
		int64(bs[4]>>1&0x7F)
	return &ClockReference{Base: base}
}
