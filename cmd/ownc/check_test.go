package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ownc/internal/diag"
	"ownc/internal/driver"
	"ownc/internal/source"
)

func TestUnitPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.owb", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := unitPaths(dir)
	if err != nil {
		t.Fatalf("unitPaths: %v", err)
	}
	want := []string{filepath.Join(dir, "a.owb"), filepath.Join(dir, "b.json")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}

	single := filepath.Join(dir, "b.json")
	if got, err := unitPaths(single); err != nil || len(got) != 1 || got[0] != single {
		t.Fatalf("single file: %v %v", got, err)
	}
	if _, err := unitPaths(t.TempDir()); err == nil {
		t.Fatalf("empty directory must be rejected")
	}
	if _, err := unitPaths(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("missing path must be rejected")
	}
}

func TestAutoMode(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"off", false, false},
		{"sometimes", false, true},
	}
	for _, tt := range tests {
		got, err := autoMode(tt.value, os.Stdout)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("autoMode(%q) = %v, %v", tt.value, got, err)
		}
	}
}

func TestSummaryAndFailed(t *testing.T) {
	clean := &driver.Result{Path: "a.json", Bag: diag.NewBag(4), Files: source.NewFileSet()}
	broken := &driver.Result{Path: "b.json", Bag: diag.NewBag(4), Files: source.NewFileSet()}
	broken.Bag.Add(diag.NewError(diag.OwnUseAfterMove, source.Span{}, "use of moved value `a`"))
	broken.Bag.Add(diag.New(diag.SevWarning, diag.OwnAmbiguousOwnership, source.Span{}, "ambiguous"))

	var buf bytes.Buffer
	summary(&buf, []*driver.Result{clean})
	if got := buf.String(); got != "checked 1 unit, ok\n" {
		t.Fatalf("clean summary: %q", got)
	}
	buf.Reset()
	summary(&buf, []*driver.Result{clean, broken})
	if got := buf.String(); got != "checked 2 units, 1 error(s), 1 warning(s)\n" {
		t.Fatalf("summary: %q", got)
	}
	if failed([]*driver.Result{clean}) || !failed([]*driver.Result{clean, broken}) {
		t.Fatalf("failed() must follow fatal diagnostics")
	}
}

func TestErrorsOnlyKeepsTheExitCode(t *testing.T) {
	tests := []struct {
		name    string
		errOnly bool
		warning bool
	}{
		{"all", false, true},
		{"errors only", true, false},
	}
	for _, tt := range tests {
		res := &driver.Result{Path: "b.json", Bag: diag.NewBag(4), Files: source.NewFileSet()}
		res.Bag.Add(diag.NewError(diag.OwnUseAfterMove, source.Span{}, "use of moved value `a`"))
		res.Bag.Add(diag.New(diag.SevWarning, diag.OwnAmbiguousOwnership, source.Span{}, "ambiguous"))

		var buf bytes.Buffer
		run := &checkRun{format: "short", errOnly: tt.errOnly}
		if err := run.print(&buf, []*driver.Result{res}); err != nil {
			t.Fatalf("%s: print: %v", tt.name, err)
		}
		out := buf.String()
		if !strings.Contains(out, "use of moved value") {
			t.Fatalf("%s: the error must be printed: %q", tt.name, out)
		}
		if strings.Contains(out, "ambiguous") != tt.warning {
			t.Fatalf("%s: warning shown = %v, want %v: %q", tt.name, !tt.warning, tt.warning, out)
		}
		if !failed([]*driver.Result{res}) {
			t.Fatalf("%s: the unit must still fail", tt.name)
		}
	}
}
