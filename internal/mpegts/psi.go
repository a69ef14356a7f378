package mpegts

import (
	"errors"
	"fmt"
)

const (
	pidPAT     = 0x0000
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

var errPSITooShort = errors.New("mpegts: PSI payload too short")

// parsePSI walks the sections of a reassembled PSI payload (starting with
// the pointer field) and returns the PAT and PMT sections it holds. Sections
// with other table IDs are skipped.
func parsePSI(payload []byte) (*PATData, []*PMTData, error) {
	if len(payload) < 1 {
		return nil, nil, errPSITooShort
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return nil, nil, fmt.Errorf("mpegts: PSI pointer field out of range")
	}

	var (
		pat  *PATData
		pmts []*PMTData
	)
	for offset+3 <= len(payload) {
		tableID := payload[offset]
		if tableID == 0xFF {
			break // stuffing
		}
		// section_syntax_indicator is set on PAT/PMT; zero padding is not.
		if payload[offset+1]&0x80 == 0 {
			break
		}
		sectionEnd := offset + 3 + (int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2]))
		if sectionEnd > len(payload) {
			break
		}
		section := payload[offset:sectionEnd]
		offset = sectionEnd

		switch tableID {
		case tableIDPAT:
			p, err := parsePATSection(section)
			if err != nil {
				return pat, pmts, err
			}
			pat = p
		case tableIDPMT:
			p, err := parsePMTSection(section)
			if err != nil {
				return pat, pmts, err
			}
			pmts = append(pmts, p)
		}
	}
	return pat, pmts, nil
}

func parsePATSection(data []byte) (*PATData, error) {
	if err := verifyCRC32(data); err != nil {
		return nil, fmt.Errorf("mpegts: PAT: %w", err)
	}
	// 8 header bytes, 4-byte entries, 4-byte CRC.
	if len(data) < 12 {
		return nil, fmt.Errorf("mpegts: PAT too short")
	}

	pat := &PATData{}
	for i := 8; i+4 <= len(data)-4; i += 4 {
		number := uint16(data[i])<<8 | uint16(data[i+1])
		pid := uint16(data[i+2]&0x1F)<<8 | uint16(data[i+3])
		if number == 0 {
			continue // network PID
		}
		pat.Programs = append(pat.Programs, &PATProgram{
			ProgramNumber: number,
			ProgramMapID:  pid,
		})
	}
	return pat, nil
}

func parsePMTSection(data []byte) (*PMTData, error) {
	if err := verifyCRC32(data); err != nil {
		return nil, fmt.Errorf("mpegts: PMT: %w", err)
	}
	// 12 header bytes, program descriptors, stream entries, 4-byte CRC.
	if len(data) < 16 {
		return nil, fmt.Errorf("mpegts: PMT too short")
	}

	pmt := &PMTData{
		ProgramNumber: uint16(data[3])<<8 | uint16(data[4]),
		PCRPID:        uint16(data[8]&0x1F)<<8 | uint16(data[9]),
	}
	end := len(data) - 4
	offset := 12 + (int(data[10]&0x0F)<<8 | int(data[11]))
	for offset+5 <= end {
		esInfoLength := int(data[offset+3]&0x0F)<<8 | int(data[offset+4])
		pmt.ElementaryStreams = append(pmt.ElementaryStreams, &PMTElementaryStream{
			StreamType:    data[offset],
			ElementaryPID: uint16(data[offset+1]&0x1F)<<8 | uint16(data[offset+2]),
		})
		offset += 5 + esInfoLength
	}
	return pmt, nil
}
