package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"ownc/internal/diag"
	"ownc/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("fn main() {\n\tlet x = take(y)\n}")
	fileID := fs.AddVirtual("dir/test.wj", content)

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.OwnUseAfterMove, source.Span{File: fileID, Start: 21, End: 28}, "use of moved value `y`").
		WithNote(source.Span{File: fileID, Start: 13, End: 16}, "moved here").
		WithFix("clone", diag.FixEdit{Span: source.Span{File: fileID, Start: 27, End: 27}, NewText: ".clone()"}))
	bag.Add(diag.New(diag.SevWarning, diag.OwnAmbiguousOwnership, source.Span{File: fileID, Start: 0, End: 2}, "ambiguous"))

	tests := []struct {
		name      string
		opts      JSONOpts
		count     int
		notes     bool
		positions bool
		preview   bool
	}{
		{"full", JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true, IncludeFixes: true, IncludePreviews: true}, 2, true, true, true},
		{"bare", JSONOpts{}, 2, false, false, false},
		{"truncated", JSONOpts{Max: 1}, 1, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := JSON(&buf, bag, fs, tt.opts); err != nil {
				t.Fatalf("JSON: %v", err)
			}
			var out DiagnosticsOutput
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
			}
			if out.Count != tt.count || len(out.Diagnostics) != tt.count {
				t.Fatalf("count: got %d/%d, want %d", out.Count, len(out.Diagnostics), tt.count)
			}
			d := out.Diagnostics[0]
			if d.Severity != "ERROR" || d.Code != "OWN1002" || d.Kind != string(diag.KindUseAfterMove) {
				t.Fatalf("unexpected header: %+v", d)
			}
			if (len(d.Notes) > 0) != tt.notes {
				t.Fatalf("notes: %+v", d.Notes)
			}
			if tt.positions && (d.Location.StartLine != 2 || d.Location.StartCol != 10 || d.Location.File != "test.wj") {
				t.Fatalf("location: %+v", d.Location)
			}
			if !tt.positions && d.Location.StartLine != 0 {
				t.Fatalf("positions must be omitted: %+v", d.Location)
			}
			if tt.preview {
				if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 1 || len(d.Fixes[0].Edits[0].AfterLines) != 1 {
					t.Fatalf("fix preview: %+v", d.Fixes)
				}
				if got := d.Fixes[0].Edits[0].AfterLines[0]; got != "\tlet x = take(y.clone())" {
					t.Fatalf("after line: %q", got)
				}
			}
		})
	}
}

func TestJSONTimingNotesAlwaysIncluded(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.Diagnostic{Severity: diag.SevInfo, Code: diag.IOInfo, Message: "timings", Notes: []diag.Note{{Msg: `{"phases":[]}`}}})
	out := BuildDiagnosticsOutput(bag, source.NewFileSet(), JSONOpts{})
	if len(out.Diagnostics) != 1 || len(out.Diagnostics[0].Notes) != 1 {
		t.Fatalf("timing notes must be kept: %+v", out)
	}
	if out.Diagnostics[0].Location.File != "" {
		t.Fatalf("no file for an unlocated diagnostic")
	}
}
