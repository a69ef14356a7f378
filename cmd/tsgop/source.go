package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zsiec/tsgop/internal/config"
	"github.com/zsiec/tsgop/internal/demux"
	"github.com/zsiec/tsgop/internal/trace"
)

const readBufferSize = 1 << 20

// openSource returns the trace source selected by cfg and a function
// releasing it once the run is over.
func openSource(ctx context.Context, cfg *config.Config, log *slog.Logger) (trace.Source, func() error, error) {
	switch cfg.Source.Kind {
	case config.SourceM2PB:
		cmd, err := trace.StartCommand(ctx, cfg.Source.DemuxerBin, cfg.Input, trace.DefaultFields, log)
		if err != nil {
			return nil, nil, err
		}
		return cmd, cmd.Close, nil

	case config.SourceText:
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		sc := trace.NewScanner(bufio.NewReaderSize(f, readBufferSize), trace.DefaultFields, log)
		return sc, func() error {
			if n := sc.Malformed(); n > 0 {
				log.Warn("skipped malformed lines", "count", n)
			}
			return f.Close()
		}, nil

	default:
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		d := demux.NewDemuxer(ctx, bufio.NewReaderSize(f, readBufferSize), log,
			demux.DemuxerOptPacketSize(cfg.Source.PacketSize),
			demux.DemuxerOptLookahead(cfg.Source.Lookahead),
			demux.DemuxerOptMaxPending(cfg.Source.MaxPending),
			demux.DemuxerOptStreams(cfg.Streams.VideoPID, cfg.Streams.AudioPIDs),
		)
		return d, func() error {
			if n := d.RawPackets(); n > 0 {
				log.Debug("demuxer raw packets", "count", n)
			}
			return f.Close()
		}, nil
	}
}
