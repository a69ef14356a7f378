package trace

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/zsiec/tsgop/internal/pts"
)

// pmtLine is a program map section as printed by the text dump.
const pmtLine = `packet: 1 byte: 188 parsed { header { transport_error_indicator: false payload_unit_start_indicator: true transport_priority: false pid: 480 transport_scrambling_control: 0 adaptation_field_exists: false payload_exists: true continuity_counter: 0 } psi_packet { pointer_field: "" program_map_section { table_id: 2 program_number: 1 version_number: 0 current_next_indicator: true section_number: 0 last_section_number: 0 pcr_pid: 481 mpegts_descriptor { tag: 14 length: 3 data: "\300<x" } stream_description { stream_type: 27 elementary_pid: 481 mpegts_descriptor { tag: 40 length: 4 data: "M@(?" } mpegts_descriptor { tag: 14 length: 3 data: "\300:\230" } } stream_description { stream_type: 129 elementary_pid: 482 mpegts_descriptor { tag: 5 length: 4 data: "AC-3" } mpegts_descriptor { tag: 10 length: 4 data: "und\000" } } crc_32: 1966564032 } } }`

func TestParseLine_DefaultFields(t *testing.T) {
	t.Parallel()
	p := NewParser(nil)

	rec, err := p.ParseLine("2 376 183003 1 481 I")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Index != 2 {
		t.Errorf("Index = %d, want 2", rec.Index)
	}
	if rec.Offset != 376 {
		t.Errorf("Offset = %d, want 376", rec.Offset)
	}
	if rec.PTS != 183003 {
		t.Errorf("PTS = %d, want 183003", rec.PTS)
	}
	if !rec.PUSI {
		t.Error("PUSI should be true")
	}
	if rec.PID != 481 {
		t.Errorf("PID = %d, want 481", rec.PID)
	}
	if rec.Frame != Intra {
		t.Errorf("Frame = %v, want I", rec.Frame)
	}
	if rec.Raw {
		t.Error("Raw should be false")
	}
}

func TestParseLine_AbsentValues(t *testing.T) {
	t.Parallel()
	p := NewParser(nil)

	rec, err := p.ParseLine("3 - - 0 481 -")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Offset != -1 {
		t.Errorf("Offset = %d, want -1", rec.Offset)
	}
	if rec.PTS != pts.Invalid {
		t.Errorf("PTS = %d, want Invalid", rec.PTS)
	}
	if rec.PUSI {
		t.Error("PUSI should be false")
	}
	if !rec.Frame.IsNone() {
		t.Errorf("Frame = %v, want none", rec.Frame)
	}
}

func TestParseLine_RawPacket(t *testing.T) {
	t.Parallel()
	p := NewParser(nil)

	rec, err := p.ParseLine("9 1692 - 0 raw -")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Raw {
		t.Error("Raw should be true for non-numeric PID")
	}
}

func TestParseLine_CustomFields(t *testing.T) {
	t.Parallel()
	// Column layout of the original pts-mode dump.
	p := NewParser([]Field{FieldPacket, FieldPTS, FieldPUSI, FieldPID, FieldType})

	rec, err := p.ParseLine("8116 183003 1 482 1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Frame != Audio(1) {
		t.Errorf("Frame = %v, want audio 1", rec.Frame)
	}
	if rec.Offset != -1 {
		t.Errorf("Offset = %d, want -1", rec.Offset)
	}
}

func TestParseLine_NoPUSIColumn(t *testing.T) {
	t.Parallel()
	// Column layout of the original summary-mode dump.
	p := NewParser([]Field{FieldPacket, FieldByte, FieldPTS, FieldPID, FieldType})

	rec, err := p.ParseLine("2 376 183003 481 I")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.PUSI {
		t.Error("PUSI should follow timestamp presence without a pusi column")
	}
	rec, err = p.ParseLine("3 564 - 481 -")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PUSI {
		t.Error("PUSI should be false without a timestamp")
	}
}

func TestParseLine_Malformed(t *testing.T) {
	t.Parallel()
	p := NewParser(nil)
	for _, line := range []string{
		"2 376 183003 1 481",
		"x 376 183003 1 481 I",
		"2 376 abc 1 481 I",
		"2 376 183003 1 481 Q",
		"2 x 183003 1 481 I",
	} {
		if _, err := p.ParseLine(line); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseLine(%q) err = %v, want ErrMalformedLine", line, err)
		}
	}
}

func TestParseLine_PMT(t *testing.T) {
	t.Parallel()
	p := NewParser(nil)

	rec, err := p.ParseLine(pmtLine)
	if err != nil {
		t.Fatal(err)
	}
	if rec.PMT == nil {
		t.Fatal("expected PMT record")
	}
	if rec.Index != 1 || rec.Offset != 188 {
		t.Errorf("Index/Offset = %d/%d, want 1/188", rec.Index, rec.Offset)
	}
	if rec.PMT.PID != 480 {
		t.Errorf("PMT PID = %d, want 480", rec.PMT.PID)
	}
	want := []ElementaryStream{{StreamType: 27, PID: 481}, {StreamType: 129, PID: 482}}
	if len(rec.PMT.Streams) != len(want) {
		t.Fatalf("streams = %d, want %d", len(rec.PMT.Streams), len(want))
	}
	for i, es := range want {
		if rec.PMT.Streams[i] != es {
			t.Errorf("stream[%d] = %+v, want %+v", i, rec.PMT.Streams[i], es)
		}
	}
}

func TestScanner_SkipsMalformedAndComments(t *testing.T) {
	t.Parallel()
	input := strings.Join([]string{
		"# header comment",
		"0 0 - 1 0 -",
		"garbage",
		"",
		"1 188 - 1 480 -",
		"2 376 183003 1 481 I",
	}, "\n")

	sc := NewScanner(strings.NewReader(input), nil, nil)
	recs, err := Collect(sc)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	if sc.Malformed() != 1 {
		t.Errorf("Malformed = %d, want 1", sc.Malformed())
	}
	for i, r := range recs {
		if r.Index != int64(i) {
			t.Errorf("record[%d].Index = %d", i, r.Index)
		}
	}

	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after end = %v, want io.EOF", err)
	}
}

func TestParseFrame(t *testing.T) {
	t.Parallel()
	for _, tok := range []string{"I", "P", "B", "V", "1", "3", "-"} {
		f, err := ParseFrame(tok)
		if err != nil {
			t.Errorf("ParseFrame(%q): %v", tok, err)
			continue
		}
		if f.String() != tok {
			t.Errorf("ParseFrame(%q).String() = %q", tok, f.String())
		}
	}
	for _, tok := range []string{"0", "X", "-2"} {
		if _, err := ParseFrame(tok); err == nil {
			t.Errorf("ParseFrame(%q) should fail", tok)
		}
	}
}

func TestFrame_Classes(t *testing.T) {
	t.Parallel()
	if !Bidirectional.IsVideo() || Bidirectional.IsAudio() {
		t.Error("B should be video")
	}
	if !Audio(2).IsAudio() || Audio(2).IsVideo() {
		t.Error("audio 2 should be audio")
	}
	if (Frame{}).IsVideo() || (Frame{}).IsAudio() || !(Frame{}).IsNone() {
		t.Error("zero Frame should be none")
	}
}
