package mpegts

import (
	"context"
	"errors"
	"io"
)

// Reader reads a transport stream packet by packet and returns one Unit per
// packet, in input order.
type Reader struct {
	ctx        context.Context
	reader     io.Reader
	readBuf    []byte
	pktSize    int
	tsOffset   int
	programMap *programMap
	sections   map[uint16]*sectionAccumulator
	index      int64
}

// NewReader creates a Reader over r.
func NewReader(ctx context.Context, r io.Reader, opts ...func(*Reader)) *Reader {
	rd := &Reader{
		ctx:        ctx,
		reader:     r,
		pktSize:    packetSize,
		programMap: newProgramMap(),
		sections:   make(map[uint16]*sectionAccumulator),
	}
	for _, opt := range opts {
		opt(rd)
	}
	rd.readBuf = make([]byte, rd.pktSize)
	return rd
}

// ReaderOptPacketSize sets the size of one packet in the input. 192-byte
// packets (M2TS) carry a 4-byte timecode prefix; 204-byte packets carry 16
// trailing Reed-Solomon bytes. Other sizes are treated as 188.
func ReaderOptPacketSize(size int) func(*Reader) {
	return func(r *Reader) {
		switch size {
		case 192:
			r.pktSize, r.tsOffset = 192, 4
		case 204:
			r.pktSize, r.tsOffset = 204, 0
		default:
			r.pktSize, r.tsOffset = packetSize, 0
		}
	}
}

// Next returns the next packet. It returns io.EOF at the end of input; a
// trailing partial packet is ignored.
func (r *Reader) Next() (*Unit, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r.reader, r.readBuf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	u := &Unit{
		Index:  r.index,
		Offset: r.index * int64(r.pktSize),
	}
	r.index++

	pkt, err := parsePacket(r.readBuf[r.tsOffset : r.tsOffset+packetSize])
	if err != nil {
		return u, nil // unparsed packet
	}
	u.Packet = pkt

	pid := pkt.Header.PID
	if r.programMap.isPSI(pid) {
		r.handlePSI(u)
		return u, nil
	}

	if !pkt.Header.HasPayload || pkt.Header.TransportErrorIndicator {
		return u, nil
	}
	if pkt.Header.PayloadUnitStartIndicator && isPESPayload(pkt.Payload) {
		hdr, esStart, err := parsePESHeader(pkt.Payload)
		if err == nil {
			u.PES = hdr
			u.ES = pkt.Payload[esStart:]
			return u, nil
		}
	}
	u.ES = pkt.Payload
	return u, nil
}

func (r *Reader) handlePSI(u *Unit) {
	pid := u.Packet.Header.PID
	acc, ok := r.sections[pid]
	if !ok {
		acc = &sectionAccumulator{}
		r.sections[pid] = acc
	}
	payload := acc.add(u.Packet)
	if payload == nil {
		return
	}
	pat, pmts, err := parsePSI(payload)
	if err != nil && pat == nil && len(pmts) == 0 {
		return // corrupt section
	}
	if pat != nil {
		for _, p := range pat.Programs {
			r.programMap.addPMTPID(p.ProgramMapID)
		}
	}
	u.PAT = pat
	u.PMTs = pmts
}
