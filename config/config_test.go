package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultSetsInfoLevel(t *testing.T) {
	cfg := NewDefault()
	if cfg.LogLevel != int(InfoLevel) {
		t.Fatalf("LogLevel = %d, want %d", cfg.LogLevel, InfoLevel)
	}
	if cfg.Verbose() {
		t.Fatalf("default config should not be Verbose")
	}
}

func TestLoadFillsDefaultsAndParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slicer.yaml")
	const yaml = `
max-offset: 64
invalidate-nodes: true
dump-dot: true
slicing-problems:
  - criteria: ["ret"]
    untouched-functions: ["init"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxOffset != 64 {
		t.Fatalf("MaxOffset = %d, want 64", cfg.MaxOffset)
	}
	if !cfg.InvalidateNodes || !cfg.DumpDot {
		t.Fatalf("boolean options did not round-trip: %+v", cfg.Options)
	}
	if cfg.LogLevel != int(InfoLevel) {
		t.Fatalf("an unset log-level should default to InfoLevel, got %d", cfg.LogLevel)
	}
	if len(cfg.SlicingProblems) != 1 || cfg.SlicingProblems[0].Criteria[0] != "ret" {
		t.Fatalf("SlicingProblems did not parse: %+v", cfg.SlicingProblems)
	}

	if got, want := cfg.RelPath("out.dot"), filepath.Join(dir, "out.dot"); got != want {
		t.Fatalf("RelPath = %q, want %q", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error loading a missing config file")
	}
}

func TestLoadExplicitLogLevelSurvives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slicer.yaml")
	if err := os.WriteFile(path, []byte("log-level: 5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != int(TraceLevel) {
		t.Fatalf("LogLevel = %d, want %d", cfg.LogLevel, TraceLevel)
	}
	if !cfg.Verbose() {
		t.Fatalf("TraceLevel config should be Verbose")
	}
}

func TestSetGlobalConfigAndLoadGlobal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slicer.yaml")
	if err := os.WriteFile(path, []byte("max-offset: 8\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	SetGlobalConfig(path)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.MaxOffset != 8 {
		t.Fatalf("MaxOffset = %d, want 8", cfg.MaxOffset)
	}
}
