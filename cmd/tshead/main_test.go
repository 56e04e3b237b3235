package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valvesuite/valvekit/internal/cliutil"
	"github.com/valvesuite/valvekit/pkg/shape"
)

func TestParseArgsRequiresABound(t *testing.T) {
	t.Parallel()

	_, err := parseArgs(nil)
	if err == nil {
		t.Fatalf("expected an error when neither -i nor -t is given")
	}
}

func TestParseArgsRejectsBothBounds(t *testing.T) {
	t.Parallel()

	_, err := parseArgs([]string{"-i", "5s", "-t", "19700101000000", "file"})
	if err == nil {
		t.Fatalf("expected an error when both -i and -t are given")
	}
}

func TestParseArgsNegativeIntervalSelectsLowerWindow(t *testing.T) {
	t.Parallel()

	opts, err := parseArgs([]string{"-i", "-5s"})
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	if opts.mode != shape.BoundLowerWindow {
		t.Fatalf("mode = %v, want BoundLowerWindow", opts.mode)
	}
}

func TestParseArgsPositiveIntervalSelectsUpperInterval(t *testing.T) {
	t.Parallel()

	opts, err := parseArgs([]string{"-i", "5s"})
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	if opts.mode != shape.BoundUpperInterval {
		t.Fatalf("mode = %v, want BoundUpperInterval", opts.mode)
	}
}

func TestRunVersionFlagExitsSuccessWithoutReading(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-version"}, strings.NewReader(""), &stdout, &stderr)
	if code != cliutil.ExitSuccess {
		t.Fatalf("exit code = %d, want %d", code, cliutil.ExitSuccess)
	}

	if !strings.Contains(stdout.String(), "tshead") {
		t.Fatalf("stdout = %q, want it to contain tshead", stdout.String())
	}
}

func TestRunEpochUpperIntervalKeepsEarlyLines(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	now := time.Now().Unix()
	input := fmt.Sprintf("%d line0\n%d line5\n%d line20\n", now, now+5, now+20)

	code := run(context.Background(), []string{"-e", "-i", "10s"}, strings.NewReader(input), &stdout, &stderr)
	if code != cliutil.ExitSuccess {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, cliutil.ExitSuccess, stderr.String())
	}

	got := stdout.String()
	if !strings.Contains(got, "line0") || !strings.Contains(got, "line5") {
		t.Fatalf("output = %q, want line0 and line5 kept", got)
	}

	if strings.Contains(got, "line20") {
		t.Fatalf("output = %q, want line20 dropped", got)
	}
}
