package pts

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ErrBadBreakpoint is returned for a breakpoint that cannot be parsed or
// whose key lies outside the PTS domain.
var ErrBadBreakpoint = errors.New("pts: bad breakpoint")

// Breakpoint switches the active delta to Delta the first time a packet with
// original timestamp PTS is observed.
type Breakpoint struct {
	PTS   PTS   `yaml:"pts" json:"pts"`
	Delta int64 `yaml:"delta" json:"delta"`
}

// ParseBreakpoint parses the "KEY,DELTA" form used on the command line.
func ParseBreakpoint(s string) (Breakpoint, error) {
	key, delta, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Breakpoint{}, fmt.Errorf("%w: %q: want KEY,DELTA", ErrBadBreakpoint, s)
	}
	k, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil {
		return Breakpoint{}, fmt.Errorf("%w: %q: key: %v", ErrBadBreakpoint, s, err)
	}
	d, err := strconv.ParseInt(strings.TrimSpace(delta), 10, 64)
	if err != nil {
		return Breakpoint{}, fmt.Errorf("%w: %q: delta: %v", ErrBadBreakpoint, s, err)
	}
	bp := Breakpoint{PTS: PTS(k), Delta: d}
	if err := bp.Validate(); err != nil {
		return Breakpoint{}, err
	}
	return bp, nil
}

// Validate checks that the breakpoint key is a valid timestamp.
func (b Breakpoint) Validate() error {
	if !b.PTS.Valid() {
		return fmt.Errorf("%w: key %d outside [0, %d)", ErrBadBreakpoint, int64(b.PTS), Modulus)
	}
	return nil
}

// String renders the breakpoint in its command-line form.
func (b Breakpoint) String() string {
	return fmt.Sprintf("%d,%d", int64(b.PTS), b.Delta)
}

// Schedule is an ordered queue of breakpoints consumed front to back. At
// most one delta is active at a time; a firing breakpoint replaces the
// active delta rather than adding to it. Breakpoints are expected in
// non-decreasing key order and are neither sorted nor validated for order.
type Schedule struct {
	log      *slog.Logger
	queue    []Breakpoint
	active   int64
	onChange func(Breakpoint)
}

// NewSchedule creates a schedule over a copy of bps with no active delta.
func NewSchedule(bps []Breakpoint, opts ...func(*Schedule)) *Schedule {
	s := &Schedule{
		log:   slog.Default(),
		queue: append([]Breakpoint(nil), bps...),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "delta-schedule")
	return s
}

// ScheduleOptLogger sets the logger used for delta change notices.
func ScheduleOptLogger(log *slog.Logger) func(*Schedule) {
	return func(s *Schedule) {
		if log != nil {
			s.log = log
		}
	}
}

// ScheduleOptOnChange registers a callback invoked each time a breakpoint
// fires.
func ScheduleOptOnChange(fn func(Breakpoint)) func(*Schedule) {
	return func(s *Schedule) {
		s.onChange = fn
	}
}

// Apply checks the head of the queue against the original timestamp p. If
// the keys match, the head is consumed and its delta becomes active. The
// active delta is returned either way.
func (s *Schedule) Apply(p PTS) int64 {
	if len(s.queue) > 0 && s.queue[0].PTS == p {
		bp := s.queue[0]
		s.queue = s.queue[1:]
		s.active = bp.Delta
		s.log.Info("pts delta changed", "pts", int64(p), "delta", bp.Delta)
		if s.onChange != nil {
			s.onChange(bp)
		}
	}
	return s.active
}

// Correct applies the schedule to p and returns the corrected timestamp.
func (s *Schedule) Correct(p PTS) PTS {
	return Add(p, s.Apply(p))
}

// Active returns the delta currently in effect.
func (s *Schedule) Active() int64 {
	return s.active
}

// Remaining returns the breakpoints that have not fired yet.
func (s *Schedule) Remaining() []Breakpoint {
	return append([]Breakpoint(nil), s.queue...)
}
