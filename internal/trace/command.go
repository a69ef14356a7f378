package trace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultDemuxer is the external demultiplexer binary invoked by Command.
const DefaultDemuxer = "m2pb"

// CommandArgs returns the arguments asking the external demultiplexer to
// dump the given columns of input, one packet per line.
func CommandArgs(fields []Field, input string) []string {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	args := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		args = append(args, "--"+string(f))
	}
	return append(args, "dump", input)
}

// Command runs an external demultiplexer and reads its dump from stdout.
// The process is started exactly once; Close waits for it to exit.
type Command struct {
	*Scanner
	log    *slog.Logger
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// StartCommand launches bin on input. Cancelling ctx kills the process.
// If log is nil, slog.Default() is used.
func StartCommand(ctx context.Context, bin, input string, fields []Field, log *slog.Logger) (*Command, error) {
	if log == nil {
		log = slog.Default()
	}
	if bin == "" {
		bin = DefaultDemuxer
	}
	args := CommandArgs(fields, input)
	cmd := exec.CommandContext(ctx, bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("trace: stdout pipe: %w", err)
	}

	log = log.With("component", "demuxer-process")
	log.Debug("starting demuxer", "command", bin+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("trace: start %s: %w", bin, err)
	}

	return &Command{
		Scanner: NewScanner(stdout, fields, log),
		log:     log,
		cmd:     cmd,
		stdout:  stdout,
	}, nil
}

// Close drains any unread output and waits for the process to exit.
func (c *Command) Close() error {
	_, _ = io.Copy(io.Discard, c.stdout)
	if err := c.cmd.Wait(); err != nil {
		return fmt.Errorf("trace: %s: %w", c.cmd.Path, err)
	}
	c.log.Debug("demuxer exited", "malformed_lines", c.Malformed())
	return nil
}
