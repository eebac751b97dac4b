package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project.Bits != 8 || cfg.Output.Format != "binary" || cfg.Driver.MaxIterations != 10 {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casm.toml")

	cfg := DefaultConfig()
	cfg.Project.SourceFile = "main.asm"
	cfg.Project.RuledefFiles = []string{"cpu.ruledef"}
	cfg.Output.File = "out.bin"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Project.SourceFile != "main.asm" {
		t.Fatalf("got source %q, want main.asm", loaded.Project.SourceFile)
	}
	if len(loaded.Project.RuledefFiles) != 1 || loaded.Project.RuledefFiles[0] != "cpu.ruledef" {
		t.Fatalf("got ruledefs %v, want [cpu.ruledef]", loaded.Project.RuledefFiles)
	}
	if loaded.Output.File != "out.bin" {
		t.Fatalf("got output file %q, want out.bin", loaded.Output.File)
	}
}
