//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"testing"
	"time"

	interne2e "github.com/valvesuite/valvekit/tests/internal/e2e"
)

func runBinary(ctx context.Context, t *testing.T, binary string, args []string, stdin string) (string, string, error) {
	t.Helper()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewBufferString(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

func TestValveBinaryPacesBytesOverRealPipe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot := interne2e.RepositoryRoot(t)
	binary := interne2e.BuildBinary(t, repoRoot, "valve")

	start := time.Now()

	stdout, stderr, err := runBinary(ctx, t, binary, []string{"-c", "20ms"}, "abc")
	if err != nil {
		t.Fatalf("valve failed: %v\nstderr=%s", err, stderr)
	}

	if stdout != "abc" {
		t.Fatalf("stdout = %q, want abc", stdout)
	}

	if time.Since(start) < 40*time.Millisecond {
		t.Fatalf("valve returned too quickly for a 20ms-paced 3-byte stream")
	}
}

func TestOobleckBinaryHoldsAndReplaysLines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot := interne2e.RepositoryRoot(t)
	binary := interne2e.BuildBinary(t, repoRoot, "oobleck")

	stdout, stderr, err := runBinary(ctx, t, binary, []string{"2@50ms"}, "one\ntwo\nthree\n")
	if err != nil {
		t.Fatalf("oobleck failed: %v\nstderr=%s", err, stderr)
	}

	if stdout != "one\ntwo\nthree\n" {
		t.Fatalf("stdout = %q, want all three lines replayed in order", stdout)
	}
}

func TestQvalveBinaryReleasesExactLiteralQuota(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot := interne2e.RepositoryRoot(t)
	binary := interne2e.BuildBinary(t, repoRoot, "qvalve")

	stdout, stderr, err := runBinary(ctx, t, binary, []string{"3"}, "abcdef")
	if err != nil {
		t.Fatalf("qvalve failed: %v\nstderr=%s", err, stderr)
	}

	if stdout != "abc" {
		t.Fatalf("stdout = %q, want abc", stdout)
	}
}

func TestTsheadBinaryDropsLinesOutsideEpochWindow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot := interne2e.RepositoryRoot(t)
	binary := interne2e.BuildBinary(t, repoRoot, "tshead")

	now := time.Now().Unix()
	input := ""
	input += itoaLine(now, "inside")
	input += itoaLine(now+20, "outside")

	stdout, stderr, err := runBinary(ctx, t, binary, []string{"-e", "-i", "10s"}, input)
	if err != nil {
		t.Fatalf("tshead failed: %v\nstderr=%s", err, stderr)
	}

	if stdout != itoaLine(now, "inside") {
		t.Fatalf("stdout = %q, want only the in-window line", stdout)
	}
}

func TestHerewegoBinaryAlignsAndExits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot := interne2e.RepositoryRoot(t)
	binary := interne2e.BuildBinary(t, repoRoot, "herewego")

	stdout, stderr, err := runBinary(ctx, t, binary, []string{"-standby", "0ms", "100ms"}, "")
	if err != nil {
		t.Fatalf("herewego failed: %v\nstderr=%s", err, stderr)
	}

	if stdout != "" {
		t.Fatalf("stdout = %q, want empty", stdout)
	}
}

func itoaLine(epoch int64, label string) string {
	return strconv.FormatInt(epoch, 10) + " " + label + "\n"
}
