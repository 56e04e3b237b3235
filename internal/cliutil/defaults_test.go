package cliutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsEmptyPathReturnsBuiltins(t *testing.T) {
	t.Parallel()

	cfg, err := LoadDefaults("")
	if err != nil {
		t.Fatalf("LoadDefaults returned error: %v", err)
	}

	want := DefaultDefaults()
	if cfg != want {
		t.Fatalf("cfg = %+v, want built-in defaults %+v", cfg, want)
	}
}

func TestLoadDefaultsMergesFileOverBuiltins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")

	content := "priorityClass: 3\npollInterval: 250ms\n"

	err := os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadDefaults(path)
	if err != nil {
		t.Fatalf("LoadDefaults returned error: %v", err)
	}

	if cfg.PriorityClass != 3 {
		t.Fatalf("PriorityClass = %d, want 3", cfg.PriorityClass)
	}

	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}

	// Untouched fields keep their built-in value.
	if cfg.RecoveryFactor != defaultRecoveryFactor {
		t.Fatalf("RecoveryFactor = %d, want built-in default %d", cfg.RecoveryFactor, defaultRecoveryFactor)
	}
}

func TestLoadDefaultsMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	cfg, err := LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadDefaults returned error for a missing file: %v", err)
	}

	if cfg != DefaultDefaults() {
		t.Fatalf("cfg = %+v, want built-in defaults when file is absent", cfg)
	}
}

func TestLoadDefaultsEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")

	err := os.WriteFile(path, []byte("priorityClass: 2\n"), 0o600)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(envPriorityClass, "3")

	cfg, err := LoadDefaults(path)
	if err != nil {
		t.Fatalf("LoadDefaults returned error: %v", err)
	}

	if cfg.PriorityClass != 3 {
		t.Fatalf("PriorityClass = %d, want env override 3", cfg.PriorityClass)
	}
}
