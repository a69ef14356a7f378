package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/zsiec/tsgop/internal/mpegts/tstest"
)

const testPMTPID = 480

func buildStream(t *testing.T) []byte {
	t.Helper()
	var videoCC, audioCC uint8
	pkts := [][]byte{
		tstest.Packet(0, 0, true, tstest.PSIPayload(tstest.PAT(1, tstest.Program{Number: 1, PMTPID: testPMTPID}))),
		tstest.Packet(testPMTPID, 0, true, tstest.PSIPayload(tstest.PMT(1, 481,
			tstest.Stream{Type: StreamTypeH264, PID: 481},
			tstest.Stream{Type: StreamTypeAC3, PID: 482},
		))),
	}
	video := tstest.PES(0xE0, 2790000, 2782492, bytes.Repeat([]byte{0x00, 0x00, 0x01, 0x09, 0xF0}, 60))
	pkts = append(pkts, tstest.Packetize(video, 481, &videoCC)...)
	pkts = append(pkts, tstest.Packetize(tstest.PES(0xC0, 2787000, -1, []byte{0x0B, 0x77}), 482, &audioCC)...)
	pkts = append(pkts, make([]byte, tstest.PacketSize)) // no sync byte
	return tstest.Concat(pkts...)
}

func readAll(t *testing.T, r *Reader) []*Unit {
	t.Helper()
	var units []*Unit
	for {
		u, err := r.Next()
		if errors.Is(err, io.EOF) {
			return units
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		units = append(units, u)
	}
}

func TestReader_Stream(t *testing.T) {
	t.Parallel()
	data := buildStream(t)
	units := readAll(t, NewReader(context.Background(), bytes.NewReader(data)))

	// PAT, PMT, two video packets, one audio packet, one unparsed packet.
	if len(units) != 6 {
		t.Fatalf("units = %d, want 6", len(units))
	}
	for i, u := range units {
		if u.Index != int64(i) || u.Offset != int64(i*packetSize) {
			t.Errorf("unit %d: index/offset = %d/%d", i, u.Index, u.Offset)
		}
	}

	if units[0].PAT == nil || units[0].PAT.Programs[0].ProgramMapID != testPMTPID {
		t.Errorf("unit 0: PAT = %+v", units[0].PAT)
	}
	if len(units[1].PMTs) != 1 || len(units[1].PMTs[0].ElementaryStreams) != 2 {
		t.Fatalf("unit 1: PMTs = %+v", units[1].PMTs)
	}

	pts, ok := units[2].PTS()
	if !ok || pts != 2790000 {
		t.Errorf("video PTS = %d/%v, want 2790000", pts, ok)
	}
	if !bytes.HasPrefix(units[2].ES, []byte{0x00, 0x00, 0x01, 0x09}) {
		t.Errorf("video ES starts %x, want access unit delimiter", units[2].ES[:4])
	}
	if _, ok := units[3].PTS(); ok {
		t.Error("continuation packet should not carry a PTS")
	}
	if units[3].PES != nil || len(units[3].ES) == 0 {
		t.Error("continuation packet should carry ES bytes without a PES header")
	}

	pts, ok = units[4].PTS()
	if !ok || pts != 2787000 {
		t.Errorf("audio PTS = %d/%v, want 2787000", pts, ok)
	}

	if _, ok := units[5].PID(); ok {
		t.Error("packet without sync byte should be unparsed")
	}
}

func TestReader_PMTBeforePAT(t *testing.T) {
	t.Parallel()
	pmt := tstest.PSIPayload(tstest.PMT(1, 481, tstest.Stream{Type: StreamTypeH264, PID: 481}))
	pat := tstest.PSIPayload(tstest.PAT(1, tstest.Program{Number: 1, PMTPID: testPMTPID}))
	data := tstest.Concat(
		tstest.Packet(testPMTPID, 0, true, pmt),
		tstest.Packet(0, 0, true, pat),
		tstest.Packet(testPMTPID, 1, true, pmt),
	)
	units := readAll(t, NewReader(context.Background(), bytes.NewReader(data)))
	if len(units) != 3 {
		t.Fatalf("units = %d, want 3", len(units))
	}
	if units[0].PMTs != nil {
		t.Error("PMT before PAT should not be recognized")
	}
	if len(units[2].PMTs) != 1 {
		t.Error("PMT after PAT should be recognized")
	}
}

func TestReader_M2TS(t *testing.T) {
	t.Parallel()
	var data []byte
	for i, pkt := range [][]byte{
		tstest.Packet(0, 0, true, tstest.PSIPayload(tstest.PAT(1, tstest.Program{Number: 1, PMTPID: testPMTPID}))),
		tstest.Packet(482, 0, true, tstest.PES(0xC0, 900, -1, []byte{0x01})),
	} {
		data = append(data, 0x00, 0x00, 0x00, byte(i))
		data = append(data, pkt...)
	}

	units := readAll(t, NewReader(context.Background(), bytes.NewReader(data), ReaderOptPacketSize(192)))
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if units[1].Offset != 192 {
		t.Errorf("offset = %d, want 192", units[1].Offset)
	}
	if pts, ok := units[1].PTS(); !ok || pts != 900 {
		t.Errorf("PTS = %d/%v, want 900", pts, ok)
	}
}

func TestReader_TrailingPartialPacket(t *testing.T) {
	t.Parallel()
	data := append(tstest.Packet(482, 0, false, nil), 0x47, 0x01)
	units := readAll(t, NewReader(context.Background(), bytes.NewReader(data)))
	if len(units) != 1 {
		t.Errorf("units = %d, want 1", len(units))
	}
}

func TestReader_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(ctx, bytes.NewReader(buildStream(t)))
	if _, err := r.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSectionAccumulator_SpansPackets(t *testing.T) {
	t.Parallel()
	streams := make([]tstest.Stream, 40)
	for i := range streams {
		streams[i] = tstest.Stream{Type: StreamTypeAC3, PID: uint16(500 + i)}
	}
	payload := tstest.PSIPayload(tstest.PMT(1, 481, streams...))
	if len(payload) <= 184 {
		t.Fatalf("payload %d bytes fits one packet", len(payload))
	}

	first, _ := parsePacket(tstest.Packet(testPMTPID, 3, true, payload[:184]))
	second, _ := parsePacket(tstest.Packet(testPMTPID, 4, false, payload[184:]))

	var acc sectionAccumulator
	if got := acc.add(first); got != nil {
		t.Fatal("section should not complete on the first packet")
	}
	got := acc.add(second)
	if got == nil {
		t.Fatal("section should complete on the second packet")
	}
	_, pmts, err := parsePSI(got)
	if err != nil {
		t.Fatal(err)
	}
	if len(pmts) != 1 || len(pmts[0].ElementaryStreams) != 40 {
		t.Errorf("pmts = %+v, want one PMT with 40 streams", pmts)
	}
}

func TestSectionAccumulator_CCGap(t *testing.T) {
	t.Parallel()
	streams := make([]tstest.Stream, 40)
	for i := range streams {
		streams[i] = tstest.Stream{Type: StreamTypeAC3, PID: uint16(500 + i)}
	}
	payload := tstest.PSIPayload(tstest.PMT(1, 481, streams...))

	first, _ := parsePacket(tstest.Packet(testPMTPID, 3, true, payload[:184]))
	dup, _ := parsePacket(tstest.Packet(testPMTPID, 3, false, payload[184:]))
	gap, _ := parsePacket(tstest.Packet(testPMTPID, 9, false, payload[184:]))

	var acc sectionAccumulator
	acc.add(first)
	if acc.add(dup) != nil || !acc.active {
		t.Error("duplicate packet should be ignored")
	}
	if acc.add(gap) != nil || acc.active {
		t.Error("CC gap should reset the accumulator")
	}
}
