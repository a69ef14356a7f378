package trace

import (
	"context"
	"os/exec"
	"reflect"
	"testing"
)

func TestCommandArgs(t *testing.T) {
	t.Parallel()
	got := CommandArgs(nil, "in.ts")
	want := []string{"--packet", "--byte", "--pts", "--pusi", "--pid", "--type", "dump", "in.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CommandArgs = %v, want %v", got, want)
	}

	got = CommandArgs([]Field{FieldPacket, FieldPTS}, "x.ts")
	want = []string{"--packet", "--pts", "dump", "x.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CommandArgs = %v, want %v", got, want)
	}
}

func TestStartCommand_MissingBinary(t *testing.T) {
	t.Parallel()
	_, err := StartCommand(context.Background(), "tsgop-no-such-demuxer", "in.ts", nil, nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestStartCommand_ReadsStdout(t *testing.T) {
	t.Parallel()
	bin, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}

	// echo prints its arguments on one line: packet and pts columns only,
	// so "--packet --pts dump 7" has four columns and is skipped, leaving EOF.
	c, err := StartCommand(context.Background(), bin, "7", []Field{FieldPacket, FieldPTS}, nil)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := Collect(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("records = %d, want 0", len(recs))
	}
	if c.Malformed() != 1 {
		t.Errorf("Malformed = %d, want 1", c.Malformed())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
