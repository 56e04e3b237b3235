package cliutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenInputsEmptyReturnsStdin(t *testing.T) {
	t.Parallel()

	stdin := strings.NewReader("hello")

	reader, closeFn, err := OpenInputs(nil, stdin)
	if err != nil {
		t.Fatalf("OpenInputs returned error: %v", err)
	}

	defer closeFn()

	if reader != io.Reader(stdin) {
		t.Fatalf("expected stdin to be returned as-is when no paths given")
	}
}

func TestOpenInputsChainsFilesInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	err := os.WriteFile(a, []byte("AAA"), 0o600)
	if err != nil {
		t.Fatalf("WriteFile a: %v", err)
	}

	err = os.WriteFile(b, []byte("BBB"), 0o600)
	if err != nil {
		t.Fatalf("WriteFile b: %v", err)
	}

	reader, closeFn, err := OpenInputs([]string{a, b}, nil)
	if err != nil {
		t.Fatalf("OpenInputs returned error: %v", err)
	}

	defer closeFn()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if string(data) != "AAABBB" {
		t.Fatalf("data = %q, want AAABBB", data)
	}
}

func TestOpenInputsMissingFileReturnsError(t *testing.T) {
	t.Parallel()

	_, _, err := OpenInputs([]string{filepath.Join(t.TempDir(), "missing.txt")}, nil)
	if err == nil {
		t.Fatalf("OpenInputs should have returned an error for a missing file")
	}
}
