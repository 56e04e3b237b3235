package cliutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestShowVersionPrintsAndReportsTrue(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	if !ShowVersion("valve", []string{"-version"}, &out) {
		t.Fatalf("expected ShowVersion to report true for -version")
	}

	if !strings.Contains(out.String(), "valve") {
		t.Fatalf("output = %q, want it to contain the program name", out.String())
	}
}

func TestShowVersionFalseWhenNotRequested(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	if ShowVersion("valve", []string{"-c", "100ms"}, &out) {
		t.Fatalf("expected ShowVersion to report false")
	}

	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
