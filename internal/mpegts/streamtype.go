package mpegts

// Stream type codes from ISO/IEC 13818-1 Table 2-34 and common registrations.
const (
	StreamTypeMPEG1Video = 0x01
	StreamTypeMPEG2Video = 0x02
	StreamTypeMPEG1Audio = 0x03
	StreamTypeMPEG2Audio = 0x04
	StreamTypeAAC        = 0x0F // 13818-7 ADTS
	StreamTypeMPEG4Video = 0x10
	StreamTypeLATM       = 0x11
	StreamTypeH264       = 0x1B
	StreamTypeH265       = 0x24
	StreamTypeAC3        = 0x81 // ATSC user private
	StreamTypeEAC3       = 0x87
)

var videoStreamTypes = map[uint8]string{
	StreamTypeMPEG1Video: "MPEG-1 video",
	StreamTypeMPEG2Video: "MPEG-2 video",
	StreamTypeMPEG4Video: "MPEG-4 part 2 video",
	StreamTypeH264:       "H.264",
	StreamTypeH265:       "H.265",
}

var audioStreamTypes = map[uint8]string{
	StreamTypeMPEG1Audio: "MPEG-1 audio",
	StreamTypeMPEG2Audio: "MPEG-2 audio",
	StreamTypeAAC:        "AAC ADTS",
	StreamTypeLATM:       "AAC LATM",
	StreamTypeAC3:        "AC-3",
	StreamTypeEAC3:       "E-AC-3",
}

// IsVideoStreamType reports whether t is a recognized video codec.
func IsVideoStreamType(t uint8) bool {
	_, ok := videoStreamTypes[t]
	return ok
}

// IsAudioStreamType reports whether t is a recognized audio codec.
func IsAudioStreamType(t uint8) bool {
	_, ok := audioStreamTypes[t]
	return ok
}

// StreamTypeName returns a short codec name for t, or "" if unrecognized.
func StreamTypeName(t uint8) string {
	if n, ok := videoStreamTypes[t]; ok {
		return n
	}
	return audioStreamTypes[t]
}
