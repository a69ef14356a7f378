package demux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/zsiec/tsgop/internal/mpegts"
	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/trace"
)

// DefaultLookahead is the number of video packets a frame start may wait for
// its picture header before it is labelled V.
const DefaultLookahead = 16

// DefaultMaxPending is the number of records, of any PID, that may queue up
// behind an unresolved frame start before it is labelled V.
const DefaultMaxPending = 4096

type frameTyper func(es []byte) (trace.Frame, bool)

func genericFrame([]byte) (trace.Frame, bool) { return trace.GenericVideo, true }

func typerFor(streamType uint8) frameTyper {
	switch streamType {
	case mpegts.StreamTypeH264:
		return H264SliceFrame
	case mpegts.StreamTypeH265:
		return HEVCFrame
	case mpegts.StreamTypeMPEG1Video, mpegts.StreamTypeMPEG2Video:
		return MPEG2PictureFrame
	}
	return genericFrame
}

// pendingFrame is a video frame start whose picture type is not known yet.
type pendingFrame struct {
	rec     *trace.Record
	es      []byte
	packets int
}

// Demuxer reads a transport stream and produces one record per packet, in
// packet order. Records of packets that complete a PMT carry the program map.
// The first packet of each video and audio payload unit carries the PES
// timestamp and a frame label.
type Demuxer struct {
	log        *slog.Logger
	reader     *mpegts.Reader
	readerOpts []func(*mpegts.Reader)
	lookahead  int
	maxPending int

	videoPID   uint16
	videoType  uint8
	hasVideo   bool
	typer      frameTyper
	audioPIDs  map[uint16]int
	audioOrder []uint16
	queue      []*trace.Record
	open       *pendingFrame
	rawPackets int64
	eof        bool
}

// NewDemuxer creates a Demuxer that reads MPEG-TS packets from r.
// If log is nil, slog.Default() is used.
func NewDemuxer(ctx context.Context, r io.Reader, log *slog.Logger, opts ...func(*Demuxer)) *Demuxer {
	if log == nil {
		log = slog.Default()
	}
	d := &Demuxer{
		log:       log.With("component", "demux"),
		lookahead:  DefaultLookahead,
		maxPending: DefaultMaxPending,
		typer:      genericFrame,
		audioPIDs:  make(map[uint16]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reader = mpegts.NewReader(ctx, r, d.readerOpts...)
	return d
}

// DemuxerOptPacketSize sets the input packet size (188, 192 or 204).
func DemuxerOptPacketSize(size int) func(*Demuxer) {
	return func(d *Demuxer) {
		d.readerOpts = append(d.readerOpts, mpegts.ReaderOptPacketSize(size))
	}
}

// DemuxerOptLookahead sets how many packets of the video PID a frame start
// may wait for its picture header. Values below 1 are ignored.
func DemuxerOptLookahead(n int) func(*Demuxer) {
	return func(d *Demuxer) {
		if n > 0 {
			d.lookahead = n
		}
	}
}

// DemuxerOptMaxPending bounds the records held behind a frame start that is
// still waiting for its picture header. Values below 1 are ignored.
func DemuxerOptMaxPending(n int) func(*Demuxer) {
	return func(d *Demuxer) {
		if n > 0 {
			d.maxPending = n
		}
	}
}

// DemuxerOptStreams labels frames on the given PIDs before any PMT is seen,
// for captures that start after the program map. Picture types are not
// decoded until a PMT names the video codec.
func DemuxerOptStreams(videoPID uint16, audioPIDs []uint16) func(*Demuxer) {
	return func(d *Demuxer) {
		d.videoPID, d.hasVideo = videoPID, true
		d.audioOrder = slices.Clone(audioPIDs)
		d.audioPIDs = make(map[uint16]int, len(audioPIDs))
		for i, p := range audioPIDs {
			d.audioPIDs[p] = i + 1
		}
	}
}

// RawPackets returns the number of packets that could not be decoded so far.
func (d *Demuxer) RawPackets() int64 {
	return d.rawPackets
}

// Next returns the next record. It returns io.EOF at the end of the stream.
func (d *Demuxer) Next() (*trace.Record, error) {
	for {
		if len(d.queue) > 0 && (d.open == nil || d.queue[0] != d.open.rec) {
			rec := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			return rec, nil
		}
		if d.eof {
			if d.open != nil {
				d.resolve(trace.GenericVideo)
				continue
			}
			return nil, io.EOF
		}

		u, err := d.reader.Next()
		if errors.Is(err, io.EOF) {
			d.eof = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("demux: %w", err)
		}
		d.queue = append(d.queue, d.record(u))
		if d.open != nil && len(d.queue) >= d.maxPending {
			d.log.Debug("picture type not found before queue limit", "packet", d.open.rec.Index, "queued", len(d.queue))
			d.resolve(trace.GenericVideo)
		}
	}
}

func (d *Demuxer) record(u *mpegts.Unit) *trace.Record {
	rec := trace.NewRecord(u.Index, 0)
	rec.Offset = u.Offset

	pid, ok := u.PID()
	if !ok {
		rec.Raw = true
		d.rawPackets++
		return rec
	}
	rec.PID = pid
	rec.PUSI = u.Packet.Header.PayloadUnitStartIndicator
	if v, ok := u.PTS(); ok {
		rec.PTS = pts.PTS(v)
	}
	if len(u.PMTs) > 0 {
		rec.PMT = d.applyPMT(pid, u.PMTs)
	}

	if d.hasVideo && pid == d.videoPID {
		d.labelVideo(rec, u)
		return rec
	}
	if ord, ok := d.audioPIDs[pid]; ok && rec.PUSI && u.PES != nil {
		rec.Frame = trace.Audio(ord)
	}
	return rec
}

func (d *Demuxer) labelVideo(rec *trace.Record, u *mpegts.Unit) {
	if rec.PUSI {
		if d.open != nil {
			d.resolve(trace.GenericVideo)
		}
		if u.PES == nil {
			return
		}
		d.open = &pendingFrame{rec: rec}
	}
	if d.open == nil {
		return
	}

	d.open.es = append(d.open.es, u.ES...)
	d.open.packets++
	if f, ok := d.typer(d.open.es); ok {
		d.resolve(f)
		return
	}
	if d.open.packets >= d.lookahead {
		d.log.Debug("picture type not found", "packet", d.open.rec.Index, "pid", d.videoPID)
		d.resolve(trace.GenericVideo)
	}
}

func (d *Demuxer) resolve(f trace.Frame) {
	d.open.rec.Frame = f
	d.open = nil
}

// applyPMT merges the program maps completed by one packet into a single
// update and refreshes the PIDs used for frame labelling.
func (d *Demuxer) applyPMT(pid uint16, pmts []*mpegts.PMTData) *trace.PMT {
	update := &trace.PMT{PID: pid}
	var (
		videoPID  uint16
		videoType uint8
		hasVideo  bool
		audio     []uint16
	)
	for _, pmt := range pmts {
		for _, es := range pmt.ElementaryStreams {
			update.Streams = append(update.Streams, trace.ElementaryStream{
				StreamType: es.StreamType,
				PID:        es.ElementaryPID,
			})
			switch {
			case mpegts.IsVideoStreamType(es.StreamType):
				videoPID, videoType, hasVideo = es.ElementaryPID, es.StreamType, true
			case mpegts.IsAudioStreamType(es.StreamType):
				audio = append(audio, es.ElementaryPID)
			}
		}
	}

	if hasVideo && (!d.hasVideo || videoPID != d.videoPID || videoType != d.videoType) {
		if d.open != nil {
			d.resolve(trace.GenericVideo)
		}
		d.videoPID, d.videoType, d.hasVideo = videoPID, videoType, true
		d.typer = typerFor(videoType)
		d.log.Info("found video PID", "pid", videoPID, "codec", mpegts.StreamTypeName(videoType))
	}

	if !slices.Equal(audio, d.audioOrder) {
		d.log.Info("found audio PIDs", "pids", audio)
	}
	d.audioOrder = audio
	d.audioPIDs = make(map[uint16]int, len(audio))
	for i, p := range audio {
		d.audioPIDs[p] = i + 1
	}
	return update
}
