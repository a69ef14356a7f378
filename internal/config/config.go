// Package config holds the run configuration of tsgop: the stream roles to
// start from, the delta schedule, the trace source, and the outputs.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/tsgop/internal/pts"
	"github.com/zsiec/tsgop/internal/render"
	"github.com/zsiec/tsgop/internal/trace"
)

// ErrMissingInput is returned by Validate when no input file is set.
var ErrMissingInput = errors.New("config: no input file")

// Trace source kinds.
const (
	SourceNative = "native"
	SourceM2PB   = "m2pb"
	SourceText   = "text"
)

const maxPID = 0x1FFF

type App struct {
	Name       string
	Version    string
	InstanceId string
}

type Config struct {
	App         App              `yaml:"-"`
	Input       string           `yaml:"-"`
	Streams     Streams          `yaml:"streams"`
	Deltas      []pts.Breakpoint `yaml:"deltas,omitempty"`
	DeltasFile  string           `yaml:"deltasFile,omitempty"`
	PUSIOnly    bool             `yaml:"pusiOnly"`
	Plot        render.Bounds    `yaml:"plot"`
	Source      Source           `yaml:"source"`
	Output      string           `yaml:"output,omitempty"`
	MetricsFile string           `yaml:"metricsFile,omitempty"`
	Log         LogConfig        `yaml:"log"`
}

type Streams struct {
	VideoPID  uint16   `yaml:"videoPid"`
	AudioPIDs []uint16 `yaml:"audioPids"`
}

type Source struct {
	Kind       string `yaml:"kind"`
	DemuxerBin string `yaml:"demuxerBin"`
	PacketSize int    `yaml:"packetSize"`
	Lookahead  int    `yaml:"lookahead"`
	MaxPending int    `yaml:"maxPending"`
	Queue      int    `yaml:"queue"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func (cfg *Config) GetDefaults() *Config {
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets the default values
func (cfg *Config) SetDefaults() {
	if cfg.App.Name == "" {
		cfg.App.Name = "tsgop"
	}
	cfg.Streams = Streams{
		VideoPID:  481,
		AudioPIDs: []uint16{482, 483},
	}
	cfg.Plot = render.NoBounds()
	cfg.Source = Source{
		Kind:       SourceNative,
		DemuxerBin: trace.DefaultDemuxer,
		PacketSize: 188,
		Lookahead:  16,
		MaxPending: 4096,
		Queue:      1024,
	}
	cfg.Log.Level = "info"
}

// LogLevel parses Log.Level.
func (cfg *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level %q: %w", cfg.Log.Level, err)
	}
	return l, nil
}

// Validate checks the configuration of a run.
func (cfg *Config) Validate() error {
	if cfg.Input == "" {
		return ErrMissingInput
	}
	if cfg.Streams.VideoPID > maxPID {
		return fmt.Errorf("config: video PID %d out of range", cfg.Streams.VideoPID)
	}
	for _, pid := range cfg.Streams.AudioPIDs {
		if pid > maxPID {
			return fmt.Errorf("config: audio PID %d out of range", pid)
		}
	}
	for _, bp := range cfg.Deltas {
		if err := bp.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	switch cfg.Source.Kind {
	case SourceNative, SourceM2PB, SourceText:
	default:
		return fmt.Errorf("config: unknown source %q, want one of %s", cfg.Source.Kind,
			strings.Join([]string{SourceNative, SourceM2PB, SourceText}, ", "))
	}
	if cfg.Source.PacketSize != 188 && cfg.Source.PacketSize != 192 {
		return fmt.Errorf("config: packet size %d, want 188 or 192", cfg.Source.PacketSize)
	}
	if cfg.Source.Lookahead < 1 {
		return fmt.Errorf("config: lookahead %d, want at least 1", cfg.Source.Lookahead)
	}
	if cfg.Source.MaxPending < 1 {
		return fmt.Errorf("config: max pending %d, want at least 1", cfg.Source.MaxPending)
	}
	if cfg.Source.Queue < 0 {
		return fmt.Errorf("config: queue %d must not be negative", cfg.Source.Queue)
	}
	if _, err := cfg.LogLevel(); err != nil {
		return err
	}
	return nil
}

// CheckInput reports whether Input names a readable regular file. It runs
// before any source is started, including the external demultiplexer.
func (cfg *Config) CheckInput() error {
	if cfg.Input == "" {
		return ErrMissingInput
	}
	f, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("config: input: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("config: input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config: input %s is a directory", cfg.Input)
	}
	return nil
}

// Dump writes the effective configuration as YAML.
func (cfg *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: dump: %w", err)
	}
	return enc.Close()
}
