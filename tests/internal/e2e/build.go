package e2e

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const buildTimeout = 2 * time.Minute

// BuildBinary compiles the named cmd/<name> entrypoint with the provided
// build tags and returns the resulting binary path.
func BuildBinary(tb testing.TB, repoRoot, name string, tags ...string) string {
	tb.Helper()

	if repoRoot == "" {
		tb.Fatal("repository root must be provided")
	}

	binaryPath := filepath.Join(tb.TempDir(), name)

	args := []string{"build", "-o", binaryPath}
	if len(tags) > 0 {
		args = append(args, "-tags", strings.Join(tags, ","))
	}

	args = append(args, "./cmd/"+name)

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = repoRoot

	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("build %s binary: %v\n%s", name, err, output)
	}

	return binaryPath
}
