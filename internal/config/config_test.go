package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingPathReturnsEmptyFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Source) != 0 || f.Out != nil {
		t.Errorf("got %+v, want a zero-value File", f)
	}
}

func TestLoadDecodesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fremgen.toml")
	content := `
source = ["a.hpp", "b.hpp"]
out = "interface.yaml"
incremental = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Source) != 2 || f.Source[0] != "a.hpp" || f.Source[1] != "b.hpp" {
		t.Errorf("got source %v, want [a.hpp b.hpp]", f.Source)
	}
	if f.Out == nil || *f.Out != "interface.yaml" {
		t.Errorf("got out %v, want interface.yaml", f.Out)
	}
	if f.Incremental == nil || !*f.Incremental {
		t.Error("expected incremental to be true")
	}
}

func TestMergeStringsPrefersFlag(t *testing.T) {
	got := MergeStrings([]string{"flag.hpp"}, []string{"file.hpp"})
	if len(got) != 1 || got[0] != "flag.hpp" {
		t.Errorf("got %v, want [flag.hpp]", got)
	}
	got = MergeStrings(nil, []string{"file.hpp"})
	if len(got) != 1 || got[0] != "file.hpp" {
		t.Errorf("got %v, want [file.hpp]", got)
	}
}

func TestMergeStringPrefersNonEmptyFlag(t *testing.T) {
	fileVal := "from-file"
	if got := MergeString("from-flag", &fileVal); got != "from-flag" {
		t.Errorf("got %q, want from-flag", got)
	}
	if got := MergeString("", &fileVal); got != "from-file" {
		t.Errorf("got %q, want from-file", got)
	}
	if got := MergeString("", nil); got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}

func TestMergeBoolHonorsExplicitFlag(t *testing.T) {
	fileVal := true
	if got := MergeBool(false, true, &fileVal); got != false {
		t.Error("expected the explicitly-set flag value to win even when false")
	}
	if got := MergeBool(false, false, &fileVal); got != true {
		t.Error("expected the config file's value when the flag was not set")
	}
	if got := MergeBool(false, false, nil); got != false {
		t.Error("expected false when neither flag nor file set a value")
	}
}
