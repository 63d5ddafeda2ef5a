package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func write(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, `
[engine]
strict = true
jobs = 2

[calls]
void = ["log_event"]
consuming = ["ffi_free"]

[methods]
mutating = ["bump"]
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Fatalf("unexpected config path %q", cfg.Path)
	}
	if !cfg.Engine.Strict || cfg.Engine.Jobs != 2 {
		t.Fatalf("engine section not applied: %+v", cfg.Engine)
	}
	if cfg.Engine.MaxRounds != DefaultMaxRounds || cfg.Diagnostics.Format != "pretty" {
		t.Fatalf("missing keys must keep defaults: %+v", cfg)
	}
	if u := cfg.Usage(); len(u.Void) != 1 || u.MutatingMethods[0] != "bump" {
		t.Fatalf("usage options not carried: %+v", u)
	}
	if r := cfg.Registry(); !r.Consuming["ffi_free"] {
		t.Fatalf("registry options not carried: %+v", r)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	// A parent of the temp dir may carry a config; only check defaults when none did.
	if cfg.Path == "" && cfg.Engine.MaxRounds != DefaultMaxRounds {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"syntax", "[engine\n", "failed to parse TOML"},
		{"unknown key", "[engine]\nturbo = true\n", "unknown keys: engine.turbo"},
		{"rounds", "[engine]\nmax_rounds = 0\n", "max_rounds"},
		{"format", "[diagnostics]\nformat = \"xml\"\n", "unknown diagnostics format"},
		{"jobs", "[engine]\njobs = -1\n", "jobs"},
	}
	for _, tc := range cases {
		path := write(t, t.TempDir(), tc.body)
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}
