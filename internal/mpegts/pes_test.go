package mpegts

import (
	"testing"

	"github.com/zsiec/tsgop/internal/mpegts/tstest"
)

func TestParsePESHeader_PTSOnly(t *testing.T) {
	t.Parallel()
	buf := tstest.PES(0xC0, 90000, -1, []byte{0xAA, 0xBB, 0xCC})

	hdr, esStart, err := parsePESHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.StreamID != 0xC0 {
		t.Errorf("stream ID = 0x%02X, want 0xC0", hdr.StreamID)
	}
	if hdr.OptionalHeader == nil || hdr.OptionalHeader.PTS == nil {
		t.Fatal("expected PTS")
	}
	if hdr.OptionalHeader.PTS.Base != 90000 {
		t.Errorf("PTS = %d, want 90000", hdr.OptionalHeader.PTS.Base)
	}
	if hdr.OptionalHeader.DTS != nil {
		t.Error("DTS should be nil")
	}
	if got := buf[esStart:]; len(got) != 3 || got[0] != 0xAA {
		t.Errorf("ES = %x, want aabbcc", got)
	}
}

func TestParsePESHeader_PTSAndDTS(t *testing.T) {
	t.Parallel()
	hdr, _, err := parsePESHeader(tstest.PES(0xE0, 2790000, 2782492, []byte{0x01}))
	if err != nil {
		t.Fatal(err)
	}
	if hdr.OptionalHeader.PTS.Base != 2790000 {
		t.Errorf("PTS = %d, want 2790000", hdr.OptionalHeader.PTS.Base)
	}
	if hdr.OptionalHeader.DTS == nil || hdr.OptionalHeader.DTS.Base != 2782492 {
		t.Errorf("DTS = %v, want 2782492", hdr.OptionalHeader.DTS)
	}
	if hdr.PacketLength != 0 {
		t.Errorf("video packet length = %d, want 0 (unbounded)", hdr.PacketLength)
	}
}

func TestParsePESHeader_NoTimestamp(t *testing.T) {
	t.Parallel()
	hdr, _, err := parsePESHeader(tstest.PES(0xC0, -1, -1, []byte{0x01}))
	if err != nil {
		t.Fatal(err)
	}
	if hdr.OptionalHeader == nil {
		t.Fatal("expected optional header")
	}
	if hdr.OptionalHeader.PTS != nil {
		t.Error("PTS should be nil")
	}
}

func TestParsePESHeader_PaddingStream(t *testing.T) {
	t.Parallel()
	buf := []byte{0x00, 0x00, 0x01, 0xBE, 0x00, 0x04, 0xFF, 0xFF, 0xFF, 0xFF}
	hdr, esStart, err := parsePESHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.OptionalHeader != nil {
		t.Error("padding stream should not have optional header")
	}
	if esStart != 6 {
		t.Errorf("esStart = %d, want 6", esStart)
	}
}

func TestParsePESHeader_Invalid(t *testing.T) {
	t.Parallel()
	if _, _, err := parsePESHeader([]byte{0x00, 0x00, 0x00, 0xE0, 0x00, 0x00}); err == nil {
		t.Error("expected error for invalid start code")
	}
	if _, _, err := parsePESHeader([]byte{0x00, 0x00, 0x01}); err == nil {
		t.Error("expected error for short packet")
	}
}

func TestParseTimestamp_KnownValues(t *testing.T) {
	t.Parallel()
	for _, v := range []int64{0, 1, 90000, 2790000, 1<<33 - 1} {
		cr := parseTimestamp(tstest.EncodeTimestamp(0x02, v))
		if cr == nil || cr.Base != v {
			t.Errorf("parseTimestamp(encode(%d)) = %v", v, cr)
		}
	}
	if parseTimestamp([]byte{0x21}) != nil {
		t.Error("short input should return nil")
	}
}
