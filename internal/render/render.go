// Package render writes the timeline and the frame summary in their text
// output formats.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/timeline"
)

// Unbounded marks an absent bound.
const Unbounded int64 = -1

// Bounds restricts the timeline written to a packet range (X) and a
// corrected PTS range (Y). Bounds are inclusive; Unbounded disables one.
type Bounds struct {
	XMin int64 `yaml:"xmin"`
	XMax int64 `yaml:"xmax"`
	YMin int64 `yaml:"ymin"`
	YMax int64 `yaml:"ymax"`
}

// NoBounds returns Bounds with every bound disabled.
func NoBounds() Bounds {
	return Bounds{XMin: Unbounded, XMax: Unbounded, YMin: Unbounded, YMax: Unbounded}
}

// Contains reports whether a record at packet with corrected timestamp p
// lies within b.
func (b Bounds) Contains(packet int64, p pts.PTS) bool {
	switch {
	case b.XMin >= 0 && packet < b.XMin,
		b.XMax >= 0 && packet > b.XMax,
		b.YMin >= 0 && int64(p) < b.YMin,
		b.YMax >= 0 && int64(p) > b.YMax:
		return false
	}
	return true
}

var csvHeader = []string{"packet", "pts_orig", "pts", "pusi", "type"}

// WriteCSV writes the records within b as CSV rows with a header line and
// returns the number of rows written.
func WriteCSV(w io.Writer, recs []timeline.Record, b Bounds) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}

	n := 0
	row := make([]string, len(csvHeader))
	for _, r := range recs {
		if !b.Contains(r.Packet, r.PTS) {
			continue
		}
		pusi := "0"
		if r.PUSI {
			pusi = "1"
		}
		row[0] = strconv.FormatInt(r.Packet, 10)
		row[1] = r.PTSOrig.String()
		row[2] = r.PTS.String()
		row[3] = pusi
		row[4] = r.Frame.String()
		if err := cw.Write(row); err != nil {
			return n, fmt.Errorf("render: %w", err)
		}
		n++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("render: %w", err)
	}
	return n, nil
}

// SummaryHeader names the columns of a summary line.
const SummaryHeader = "# T, PTS, PACKET, BYTE, GOP, INDEX, VIDEO, AUDIO, OTHER"

// WriteSummary writes one summary line.
func WriteSummary(w io.Writer, s timeline.FrameSummary) error {
	if _, err := fmt.Fprintln(w, s.String()); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
