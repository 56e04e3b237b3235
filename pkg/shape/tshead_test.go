//nolint:testpackage // tests exercise unexported parsing internals
package shape

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/valvesuite/valvekit/internal/duration"
)

func formatCalendar(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

func TestHeadUpperIntervalKeepsFirstThreeDropsFourth(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	lines := []time.Time{
		start.Add(-1 * time.Second),
		start,
		start.Add(500 * time.Millisecond),
		start.Add(2 * time.Second),
	}

	var in bytes.Buffer

	for i, ts := range lines {
		fmt.Fprintf(&in, "%s line%d\n", formatCalendar(ts), i)
	}

	head := &Head{ //nolint:exhaustruct
		Format:    FormatCalendar,
		UTC:       true,
		Mode:      BoundUpperInterval,
		Interval:  duration.D(time.Second),
		StartTime: start,
	}

	var out bytes.Buffer

	err := head.Run(context.Background(), &in, &out)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := out.String()

	lineCount := bytes.Count([]byte(got), []byte("\n"))
	if lineCount != 3 {
		t.Fatalf("got %d lines, want 3; output=%q", lineCount, got)
	}

	if bytes.Contains([]byte(got), []byte("line3")) {
		t.Fatalf("output contains the out-of-bound fourth line: %q", got)
	}
}

func TestHeadLowerWindowBuffersAndReleasesByTrailingWindow(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer

	fmt.Fprintf(&in, "0 a\n1 b\n2 c\n10 d\n")

	head := &Head{ //nolint:exhaustruct
		Format:   FormatEpoch,
		Mode:     BoundLowerWindow,
		Interval: duration.D(2 * time.Second),
	}

	var out bytes.Buffer

	err := head.Run(context.Background(), &in, &out)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := "0 a\n1 b\n2 c\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q (d must never qualify before EOF)", out.String(), want)
	}
}

func TestHeadAbsoluteBoundDropsLinesAfterT(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer

	fmt.Fprintf(&in, "0 a\n5 b\n15 c\n")

	head := &Head{ //nolint:exhaustruct
		Format:   FormatEpoch,
		Mode:     BoundAbsolute,
		Absolute: time.Unix(10, 0),
	}

	var out bytes.Buffer

	err := head.Run(context.Background(), &in, &out)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if out.String() != "0 a\n5 b\n" {
		t.Fatalf("output = %q, want 0 a\\n5 b\\n", out.String())
	}
}

func TestHeadZeroRebaseUsesFirstAcceptedLineAsEpoch(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer

	// First line arrives 100s after StartTime but is still within the
	// initial 200s interval, so it is accepted and becomes the new epoch.
	// The next line, 150s after it, is within a fresh 200s window from that
	// new epoch and must also be accepted.
	fmt.Fprintf(&in, "100 a\n250 b\n500 c\n")

	head := &Head{ //nolint:exhaustruct
		Format:     FormatEpoch,
		Mode:       BoundUpperInterval,
		Interval:   duration.D(200 * time.Second),
		ZeroRebase: true,
		StartTime:  time.Unix(0, 0),
	}

	var out bytes.Buffer

	err := head.Run(context.Background(), &in, &out)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if out.String() != "100 a\n250 b\n" {
		t.Fatalf("output = %q, want 100 a\\n250 b\\n", out.String())
	}
}

func TestHeadSkipsUnparsableTimestampLines(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer

	fmt.Fprintf(&in, "notatimestamp payload\n5 ok\n")

	head := &Head{ //nolint:exhaustruct
		Format:   FormatEpoch,
		Mode:     BoundAbsolute,
		Absolute: time.Unix(100, 0),
	}

	var out bytes.Buffer

	err := head.Run(context.Background(), &in, &out)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if out.String() != "5 ok\n" {
		t.Fatalf("output = %q, want 5 ok\\n", out.String())
	}
}
