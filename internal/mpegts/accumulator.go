package mpegts

// programMap tracks which PIDs carry PMT sections.
type programMap struct {
	m map[uint16]bool
}

func newProgramMap() *programMap {
	return &programMap{m: make(map[uint16]bool)}
}

func (pm *programMap) addPMTPID(pid uint16) {
	pm.m[pid] = true
}

func (pm *programMap) isPSI(pid uint16) bool {
	return pid == pidPAT || pm.m[pid]
}

// sectionAccumulator buffers the payloads of one PSI PID until the sections
// started by the last payload-unit-start packet are complete.
type sectionAccumulator struct {
	payload []byte
	lastCC  uint8
	active  bool
}

// add appends the packet payload and returns the reassembled PSI payload
// once it holds only complete sections.
func (sa *sectionAccumulator) add(p *Packet) []byte {
	if p.Header.TransportErrorIndicator {
		sa.reset()
		return nil
	}
	if !p.Header.HasPayload {
		return nil
	}

	if p.Header.PayloadUnitStartIndicator {
		sa.payload = append(sa.payload[:0], p.Payload...)
		sa.active = true
	} else {
		if !sa.active {
			return nil // continuation without a start
		}
		// A signaled discontinuity means the CC jump is expected.
		expected := (sa.lastCC + 1) & 0x0F
		if p.Header.ContinuityCounter != expected && !p.Header.DiscontinuityIndicator {
			if p.Header.ContinuityCounter == sa.lastCC {
				return nil // duplicate packet
			}
			sa.reset()
			return nil
		}
		sa.payload = append(sa.payload, p.Payload...)
	}
	sa.lastCC = p.Header.ContinuityCounter

	if !isPSIComplete(sa.payload) {
		return nil
	}
	out := sa.payload
	sa.payload = nil
	sa.active = false
	return out
}

func (sa *sectionAccumulator) reset() {
	sa.payload = nil
	sa.active = false
}

// isPSIComplete reports whether payload (starting with the pointer field)
// holds only complete sections.
func isPSIComplete(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return false
	}
	for offset < len(payload) {
		if payload[offset] == 0xFF {
			return true // stuffing
		}
		if offset+3 > len(payload) {
			return false
		}
		if payload[offset+1]&0x80 == 0 {
			return true // not a section header, treat as padding
		}
		needed := 3 + (int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2]))
		if offset+needed > len(payload) {
			return false
		}
		offset += needed
	}
	return true
}
