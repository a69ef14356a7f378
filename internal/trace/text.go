package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/zsiec/tsgop/internal/pts"
)

// ErrMalformedLine is returned for a dump line that cannot be decoded into
// the minimal record fields.
var ErrMalformedLine = errors.New("trace: malformed line")

// Field names one column of the external demultiplexer's field dump. The
// name doubles as the command-line flag that enables the column.
type Field string

const (
	FieldPacket Field = "packet"
	FieldByte   Field = "byte"
	FieldPTS    Field = "pts"
	FieldPUSI   Field = "pusi"
	FieldPID    Field = "pid"
	FieldType   Field = "type"
)

// DefaultFields is the column layout requested from the external
// demultiplexer. Columns are printed in this order.
var DefaultFields = []Field{FieldPacket, FieldByte, FieldPTS, FieldPUSI, FieldPID, FieldType}

const pmtMarker = " program_map_section {"

var (
	pmtHeaderRe = regexp.MustCompile(`parsed.*?header\s\{.*?\spid:\s([0-9]+)\s.*?program_map_section\s\{`)
	pmtStreamRe = regexp.MustCompile(`stream_description\s\{\s*stream_type:\s([0-9]+)\s+elementary_pid:\s([0-9]+)`)
	packetRe    = regexp.MustCompile(`^\s*packet:\s([0-9]+)`)
	byteRe      = regexp.MustCompile(`\sbyte:\s([0-9]+)`)
)

// Parser decodes dump lines laid out according to a field list.
type Parser struct {
	fields []Field
}

// NewParser returns a parser for lines with the given columns. A nil or
// empty field list selects DefaultFields.
func NewParser(fields []Field) *Parser {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Parser{fields: append([]Field(nil), fields...)}
}

// ParseLine decodes one dump line. Lines holding a program map section in
// the demultiplexer's text form yield a record with PMT set.
func (p *Parser) ParseLine(line string) (*Record, error) {
	if strings.Contains(line, pmtMarker) {
		return parsePMTLine(line)
	}

	cols := strings.Fields(line)
	if len(cols) != len(p.fields) {
		return nil, fmt.Errorf("%w: %d columns, want %d", ErrMalformedLine, len(cols), len(p.fields))
	}

	rec := NewRecord(-1, 0)
	hasPUSI := false
	for i, f := range p.fields {
		tok := cols[i]
		switch f {
		case FieldPacket:
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: packet %q", ErrMalformedLine, tok)
			}
			rec.Index = v
		case FieldByte:
			if tok == "-" {
				continue
			}
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: byte %q", ErrMalformedLine, tok)
			}
			rec.Offset = v
		case FieldPTS:
			v, err := pts.Parse(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: pts %q", ErrMalformedLine, tok)
			}
			rec.PTS = v
		case FieldPUSI:
			rec.PUSI = tok == "1" || tok == "true"
			hasPUSI = true
		case FieldPID:
			v, err := strconv.ParseUint(tok, 10, 16)
			if err != nil {
				rec.Raw = true
				continue
			}
			rec.PID = uint16(v)
		case FieldType:
			fr, err := ParseFrame(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
			}
			rec.Frame = fr
		}
	}
	if rec.Index < 0 {
		return nil, fmt.Errorf("%w: no packet column", ErrMalformedLine)
	}
	// Without a PUSI column, a present timestamp is the only sign of a
	// payload unit start.
	if !hasPUSI {
		rec.PUSI = rec.PTS.Valid()
	}
	return rec, nil
}

// parsePMTLine extracts the (stream type, elementary PID) pairs from a
// program map section dump.
func parsePMTLine(line string) (*Record, error) {
	hdr := pmtHeaderRe.FindStringSubmatch(line)
	if hdr == nil {
		return nil, fmt.Errorf("%w: program map section without header", ErrMalformedLine)
	}
	pid, err := strconv.ParseUint(hdr[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: pmt pid %q", ErrMalformedLine, hdr[1])
	}

	rec := NewRecord(-1, uint16(pid))
	if m := packetRe.FindStringSubmatch(line); m != nil {
		rec.Index, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := byteRe.FindStringSubmatch(line); m != nil {
		rec.Offset, _ = strconv.ParseInt(m[1], 10, 64)
	}
	rec.PUSI = strings.Contains(line, "payload_unit_start_indicator: true")

	pmt := &PMT{PID: uint16(pid)}
	for _, m := range pmtStreamRe.FindAllStringSubmatch(line, -1) {
		st, err := strconv.ParseUint(m[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: stream_type %q", ErrMalformedLine, m[1])
		}
		es, err := strconv.ParseUint(m[2], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: elementary_pid %q", ErrMalformedLine, m[2])
		}
		pmt.Streams = append(pmt.Streams, ElementaryStream{StreamType: uint8(st), PID: uint16(es)})
	}
	rec.PMT = pmt
	return rec, nil
}

// maxLineSize bounds one dump line. Full text dumps carry escaped payload
// bytes and run to several kilobytes per packet.
const maxLineSize = 1 << 20

// Scanner is a Source reading dump lines from r. Malformed lines are
// skipped and counted.
type Scanner struct {
	log       *slog.Logger
	sc        *bufio.Scanner
	parser    *Parser
	line      int
	malformed int
}

// NewScanner creates a Scanner over r. If log is nil, slog.Default() is used.
func NewScanner(r io.Reader, fields []Field, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Scanner{
		log:    log.With("component", "trace-scanner"),
		sc:     sc,
		parser: NewParser(fields),
	}
}

// Next returns the next decodable record.
func (s *Scanner) Next() (*Record, error) {
	for s.sc.Scan() {
		s.line++
		line := strings.TrimRight(s.sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := s.parser.ParseLine(line)
		if err != nil {
			s.malformed++
			s.log.Debug("skipping malformed line", "line", s.line, "error", err)
			continue
		}
		return rec, nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: read line %d: %w", s.line+1, err)
	}
	return nil, io.EOF
}

// Malformed returns the number of lines skipped so far.
func (s *Scanner) Malformed() int {
	return s.malformed
}
