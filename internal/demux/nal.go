package demux

import (
	"bytes"
	"errors"
)

// H.264 NAL unit types (ITU-T H.264 Table 7-1) consulted when typing frames.
const (
	NALTypeSlice      = 1
	NALTypeSliceDataA = 2
	NALTypeIDR        = 5
	NALTypeSEI        = 6
	NALTypeSPS        = 7
	NALTypeAUD        = 9
)

// H.265 NAL unit types (ITU-T H.265 Table 7-1). Types 16 to 23 are intra
// random access points; types up to 31 carry coded slices.
const (
	HEVCNALBlaWLP    = 16
	HEVCNALIDRWRadl  = 19
	HEVCNALIDRNlp    = 20
	HEVCNALCraNut    = 21
	HEVCNALIRAPMax   = 23
	HEVCNALVCLMax    = 31
	HEVCNALVPS       = 32
	HEVCNALSPS       = 33
	HEVCNALPPS       = 34
	HEVCNALAUD       = 35
	HEVCNALSEIPrefix = 39
)

var errShortNAL = errors.New("demux: NAL data too short")

var startCode = []byte{0x00, 0x00, 0x01}

// NALUnit is one NAL unit of an Annex B byte stream. Data starts at the NAL
// header and excludes the start code.
type NALUnit struct {
	Type byte
	Data []byte
}

// splitAnnexB returns the payloads between start codes. A zero byte right
// before 00 00 01 is taken as the first byte of a four-byte start code.
func splitAnnexB(data []byte) [][]byte {
	var nals [][]byte
	at := bytes.Index(data, startCode)
	for at >= 0 {
		begin := at + len(startCode)
		end := len(data)
		at = -1
		if i := bytes.Index(data[begin:], startCode); i >= 0 {
			at = begin + i
			end = at
			if end > begin && data[end-1] == 0 {
				end--
			}
		}
		if end > begin {
			nals = append(nals, data[begin:end])
		}
	}
	return nals
}

func parseNALUnits(data []byte, headerLen int, typeOf func(hdr []byte) byte) []NALUnit {
	var units []NALUnit
	for _, nal := range splitAnnexB(data) {
		if len(nal) < headerLen {
			continue
		}
		units = append(units, NALUnit{Type: typeOf(nal), Data: nal})
	}
	return units
}

// ParseAnnexB splits an H.264 Annex B byte stream into NAL units.
func ParseAnnexB(data []byte) []NALUnit {
	return parseNALUnits(data, 1, func(hdr []byte) byte { return hdr[0] & 0x1F })
}

// ParseAnnexBHEVC splits an H.265 Annex B byte stream into NAL units, typed
// by the two-byte HEVC NAL header.
func ParseAnnexBHEVC(data []byte) []NALUnit {
	return parseNALUnits(data, 2, func(hdr []byte) byte { return HEVCNALType(hdr[0]) })
}

// HEVCNALType extracts nal_unit_type from the first HEVC NAL header byte:
// forbidden_zero_bit(1) nal_unit_type(6) nuh_layer_id high bit(1).
func HEVCNALType(firstByte byte) byte {
	return firstByte >> 1 & 0x3F
}

// IsHEVCKeyframe reports whether nalType is an IRAP picture (BLA, IDR, CRA
// or reserved IRAP).
func IsHEVCKeyframe(nalType byte) bool {
	return nalType >= HEVCNALBlaWLP && nalType <= HEVCNALIRAPMax
}

// removeEmulationPrevention strips the 0x03 byte of every 00 00 03 sequence
// followed by a byte up to 0x03 or by the end of data.
func removeEmulationPrevention(data []byte) []byte {
	out := make([]byte, 0, len(data))
	zeros := 0
	for i, b := range data {
		if zeros >= 2 && b == 0x03 && (i+1 == len(data) || data[i+1] <= 0x03) {
			zeros = 0
			continue
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

// bitReader reads an RBSP most significant bit first.
type bitReader struct {
	data []byte
	off  int // in bits
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (br *bitReader) readBit() (uint, error) {
	if br.off >= len(br.data)*8 {
		return 0, errShortNAL
	}
	b := br.data[br.off>>3] >> (7 - br.off&7) & 1
	br.off++
	return uint(b), nil
}

func (br *bitReader) readBits(n int) (uint, error) {
	var v uint
	for ; n > 0; n-- {
		b, err := br.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | b
	}
	return v, nil
}

// readUE reads an unsigned Exp-Golomb code, ue(v).
func (br *bitReader) readUE() (uint, error) {
	zeros := 0
	for {
		b, err := br.readBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		if zeros++; zeros > 31 {
			return 0, errShortNAL
		}
	}
	suffix, err := br.readBits(zeros)
	if err != nil {
		return 0, err
	}
	return 1<<zeros - 1 + suffix, nil
}
