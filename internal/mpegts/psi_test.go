package mpegts

import (
	"errors"
	"testing"

	"github.com/zsiec/tsgop/internal/mpegts/tstest"
)

func TestParsePATSection(t *testing.T) {
	t.Parallel()
	data := tstest.PAT(1, tstest.Program{Number: 0, PMTPID: 0x10}, tstest.Program{Number: 1, PMTPID: 0x1000})

	pat, err := parsePATSection(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(pat.Programs) != 1 {
		t.Fatalf("programs = %d, want 1 (NIT skipped)", len(pat.Programs))
	}
	if pat.Programs[0].ProgramNumber != 1 {
		t.Errorf("program number = %d, want 1", pat.Programs[0].ProgramNumber)
	}
	if pat.Programs[0].ProgramMapID != 0x1000 {
		t.Errorf("PMT PID = 0x%X, want 0x1000", pat.Programs[0].ProgramMapID)
	}
}

func TestParsePATSection_BadCRC(t *testing.T) {
	t.Parallel()
	data := tstest.PAT(1, tstest.Program{Number: 1, PMTPID: 0x100})
	data[len(data)-1] ^= 0xFF

	if _, err := parsePATSection(data); !errors.Is(err, errCRC) {
		t.Errorf("err = %v, want CRC mismatch", err)
	}
}

func TestParsePMTSection(t *testing.T) {
	t.Parallel()
	data := tstest.PMT(1, 481,
		tstest.Stream{Type: 0x1B, PID: 481},
		tstest.Stream{Type: 0x81, PID: 482},
		tstest.Stream{Type: 0x86, PID: 490},
	)

	pmt, err := parsePMTSection(data)
	if err != nil {
		t.Fatal(err)
	}
	if pmt.ProgramNumber != 1 || pmt.PCRPID != 481 {
		t.Errorf("program/pcr = %d/%d, want 1/481", pmt.ProgramNumber, pmt.PCRPID)
	}
	want := []PMTElementaryStream{{481, 0x1B}, {482, 0x81}, {490, 0x86}}
	if len(pmt.ElementaryStreams) != len(want) {
		t.Fatalf("streams = %d, want %d", len(pmt.ElementaryStreams), len(want))
	}
	for i, w := range want {
		if *pmt.ElementaryStreams[i] != w {
			t.Errorf("stream[%d] = %+v, want %+v", i, *pmt.ElementaryStreams[i], w)
		}
	}
}

func TestParsePMTSection_BadCRC(t *testing.T) {
	t.Parallel()
	data := tstest.PMT(1, 481, tstest.Stream{Type: 0x1B, PID: 481})
	data[len(data)-1] ^= 0xFF

	if _, err := parsePMTSection(data); err == nil {
		t.Error("expected CRC error")
	}
}

func TestParsePSI_PointerFieldAndPadding(t *testing.T) {
	t.Parallel()
	section := tstest.PAT(1, tstest.Program{Number: 1, PMTPID: 0x1000})

	payload := []byte{0x03, 0xFF, 0xFF, 0xFF}
	payload = append(payload, section...)
	payload = append(payload, 0xFF, 0xFF, 0xFF)

	pat, pmts, err := parsePSI(payload)
	if err != nil {
		t.Fatal(err)
	}
	if pat == nil || len(pat.Programs) != 1 {
		t.Fatalf("pat = %+v, want one program", pat)
	}
	if len(pmts) != 0 {
		t.Errorf("pmts = %d, want 0", len(pmts))
	}
}

func TestParsePSI_PMT(t *testing.T) {
	t.Parallel()
	payload := tstest.PSIPayload(tstest.PMT(1, 481, tstest.Stream{Type: 0x1B, PID: 481}))

	pat, pmts, err := parsePSI(payload)
	if err != nil {
		t.Fatal(err)
	}
	if pat != nil {
		t.Error("unexpected PAT")
	}
	if len(pmts) != 1 {
		t.Fatalf("pmts = %d, want 1", len(pmts))
	}
}

func TestParsePSI_BadPointer(t *testing.T) {
	t.Parallel()
	if _, _, err := parsePSI([]byte{0x05, 0x00}); err == nil {
		t.Error("expected pointer field error")
	}
	if _, _, err := parsePSI(nil); !errors.Is(err, errPSITooShort) {
		t.Errorf("err = %v, want errPSITooShort", err)
	}
}

func TestIsPSIComplete(t *testing.T) {
	t.Parallel()
	full := tstest.PSIPayload(tstest.PAT(1, tstest.Program{Number: 1, PMTPID: 0x1000}))
	if !isPSIComplete(full) {
		t.Error("full section should be complete")
	}
	if isPSIComplete(full[:len(full)-2]) {
		t.Error("truncated section should be incomplete")
	}
	if isPSIComplete([]byte{0x00}) {
		t.Error("pointer field alone should be incomplete")
	}
}

func TestStreamTypeSets(t *testing.T) {
	t.Parallel()
	for _, st := range []uint8{StreamTypeH264, StreamTypeH265, StreamTypeMPEG2Video} {
		if !IsVideoStreamType(st) || IsAudioStreamType(st) {
			t.Errorf("0x%02X should be video only", st)
		}
	}
	for _, st := range []uint8{StreamTypeAAC, StreamTypeAC3, StreamTypeEAC3} {
		if !IsAudioStreamType(st) || IsVideoStreamType(st) {
			t.Errorf("0x%02X should be audio only", st)
		}
	}
	if IsVideoStreamType(0x86) || IsAudioStreamType(0x86) {
		t.Error("SCTE-35 (0x86) should be unrecognized")
	}
	if StreamTypeName(StreamTypeH264) != "H.264" {
		t.Errorf("name = %q, want H.264", StreamTypeName(StreamTypeH264))
	}
}
