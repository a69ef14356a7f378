package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/kr/pretty"
	flag "github.com/spf13/pflag"

	"github.com/zsiec/tsgop/internal/config"
	"github.com/zsiec/tsgop/internal/metrics"
	"github.com/zsiec/tsgop/internal/pipeline"
	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/render"
	"github.com/zsiec/tsgop/internal/timeline"
)

var version = "dev"

const appName = "tsgop"

// errUsage reports a command line that names no known mode.
var errUsage = errors.New("usage: tsgop [flags] {pts|summary} <input>")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("tsgop failed", "error", err)
		os.Exit(1)
	}
}

type flags struct {
	config      string
	debug       int
	quiet       bool
	videoPID    uint16
	audioPIDs   []uint
	deltas      []string
	deltasFile  string
	pusiSkip    bool
	xmin        int64
	xmax        int64
	ymin        int64
	ymax        int64
	output      string
	source      string
	demuxerBin  string
	packetSize  int
	lookahead   int
	metricsFile string
	dumpConfig  bool
	version     bool
}

func newFlagSet(f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", "", "load configuration file")
	fs.CountVarP(&f.debug, "debug", "d", "increase verbosity")
	fs.BoolVar(&f.quiet, "quiet", false, "log errors only")
	fs.Uint16Var(&f.videoPID, "video-pid", 0, "video PID")
	fs.UintSliceVar(&f.audioPIDs, "audio-pid", nil, "audio PID (repeatable, numbered in order)")
	fs.StringArrayVar(&f.deltas, "delta", nil, "pts delta breakpoint KEY,DELTA (repeatable, in key order)")
	fs.StringVar(&f.deltasFile, "deltas-file", "", "read pts delta breakpoints from a JSON5 or YAML file")
	fs.BoolVar(&f.pusiSkip, "pusi-skip", false, "skip packets without payload unit start")
	fs.Int64Var(&f.xmin, "xmin", render.Unbounded, "lowest packet number written")
	fs.Int64Var(&f.xmax, "xmax", render.Unbounded, "highest packet number written")
	fs.Int64Var(&f.ymin, "ymin", render.Unbounded, "lowest corrected pts written")
	fs.Int64Var(&f.ymax, "ymax", render.Unbounded, "highest corrected pts written")
	fs.StringVarP(&f.output, "output", "o", "", "output file (pts: <input>.csv, summary: stdout)")
	fs.StringVar(&f.source, "source", "", "trace source: native, m2pb or text")
	fs.StringVar(&f.demuxerBin, "demuxer-bin", "", "external demultiplexer binary")
	fs.IntVar(&f.packetSize, "packet-size", 0, "transport packet size: 188 or 192")
	fs.IntVar(&f.lookahead, "lookahead", 0, "packets a video frame start may wait for its picture header")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics to this file")
	fs.BoolVar(&f.dumpConfig, "dump-config", false, "print the effective configuration and exit")
	fs.BoolVarP(&f.version, "version", "v", false, "print version")
	return fs
}

// apply overrides cfg with every flag set on the command line.
func (f *flags) apply(fs *flag.FlagSet, cfg *config.Config) error {
	if fs.Changed("video-pid") {
		cfg.Streams.VideoPID = f.videoPID
	}
	if fs.Changed("audio-pid") {
		cfg.Streams.AudioPIDs = cfg.Streams.AudioPIDs[:0:0]
		for _, pid := range f.audioPIDs {
			cfg.Streams.AudioPIDs = append(cfg.Streams.AudioPIDs, uint16(pid))
		}
	}
	if fs.Changed("delta") {
		cfg.Deltas = nil
		for _, s := range f.deltas {
			bp, err := pts.ParseBreakpoint(s)
			if err != nil {
				return err
			}
			cfg.Deltas = append(cfg.Deltas, bp)
		}
	}
	if fs.Changed("deltas-file") {
		cfg.DeltasFile = f.deltasFile
	}
	if fs.Changed("pusi-skip") {
		cfg.PUSIOnly = f.pusiSkip
	}
	if fs.Changed("xmin") {
		cfg.Plot.XMin = f.xmin
	}
	if fs.Changed("xmax") {
		cfg.Plot.XMax = f.xmax
	}
	if fs.Changed("ymin") {
		cfg.Plot.YMin = f.ymin
	}
	if fs.Changed("ymax") {
		cfg.Plot.YMax = f.ymax
	}
	if fs.Changed("output") {
		cfg.Output = f.output
	}
	if fs.Changed("source") {
		cfg.Source.Kind = f.source
	}
	if fs.Changed("demuxer-bin") {
		cfg.Source.DemuxerBin = f.demuxerBin
	}
	if fs.Changed("packet-size") {
		cfg.Source.PacketSize = f.packetSize
	}
	if fs.Changed("lookahead") {
		cfg.Source.Lookahead = f.lookahead
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	switch {
	case f.quiet:
		cfg.Log.Level = "error"
	case f.debug > 0:
		cfg.Log.Level = "debug"
	}
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var f flags
	fs := newFlagSet(&f)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(stdout, "%s %s\n", appName, version)
		return nil
	}

	cfg := new(config.Config).GetDefaults()
	cfg.App = config.App{
		Name:       appName,
		Version:    version,
		InstanceId: uuid.New().String(),
	}

	// Until the configured level is known, only errors reach stderr.
	bootLog := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := cfg.Load(appName, f.config, bootLog); err != nil {
		return err
	}
	if err := f.apply(fs, cfg); err != nil {
		return err
	}
	if err := cfg.ResolveDeltas(); err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run", cfg.App.InstanceId)
	slog.SetDefault(log)

	if f.dumpConfig {
		return cfg.Dump(stdout)
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return errUsage
	}
	mode := rest[0]
	if mode != "pts" && mode != "summary" {
		return fmt.Errorf("%w: unknown mode %q", errUsage, mode)
	}
	if len(rest) > 1 {
		cfg.Input = rest[1]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.CheckInput(); err != nil {
		return err
	}
	if f.debug > 1 {
		log.Debug("effective configuration", "config", pretty.Sprint(cfg))
	}

	src, closeSrc, err := openSource(ctx, cfg, log)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(cfg.App.InstanceId)
	p := pipeline.New(src, cfg,
		pipeline.PipelineOptLogger(log),
		pipeline.PipelineOptStats(collector),
	)

	log.Info("tsgop starting", "version", version, "mode", mode, "input", cfg.Input, "source", cfg.Source.Kind)
	switch mode {
	case "pts":
		err = runTimeline(ctx, p, cfg, log)
	case "summary":
		err = runSummary(ctx, p, cfg, stdout)
	}
	if cerr := closeSrc(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	read, applied, high := p.Counters()
	log.Debug("pipeline counters", "read", read, "applied", applied, "queue_high", high)

	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
		log.Info("metrics written", "file", cfg.MetricsFile)
	}
	return nil
}

func runTimeline(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, log *slog.Logger) error {
	recs, err := p.RunTimeline(ctx)
	if err != nil {
		if errors.Is(err, timeline.ErrEmptyTimeline) {
			return fmt.Errorf("no valid records read from %s: %w", cfg.Input, err)
		}
		return err
	}

	out := cfg.Output
	if out == "" {
		out = filepath.Base(cfg.Input) + ".csv"
	}
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(file)
	n, err := render.WriteCSV(w, recs, cfg.Plot)
	if err == nil {
		err = w.Flush()
	}
	if cerr := file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("written file", "file", out, "rows", n)
	return nil
}

func runSummary(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, stdout io.Writer) (err error) {
	dst := stdout
	if cfg.Output != "" {
		file, ferr := os.Create(cfg.Output)
		if ferr != nil {
			return fmt.Errorf("create output: %w", ferr)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		dst = file
	}
	w := bufio.NewWriter(dst)
	if _, err := fmt.Fprintln(w, render.SummaryHeader); err != nil {
		return err
	}
	if err := p.RunSummary(ctx, func(fs timeline.FrameSummary) error {
		return render.WriteSummary(w, fs)
	}); err != nil {
		return err
	}
	return w.Flush()
}
