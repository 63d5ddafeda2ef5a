package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"ownc/internal/annot"
	"ownc/internal/diag"
	"ownc/internal/source"
)

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("let x = take(item)\n")
	fileID := fs.AddVirtual("/home/user/project/src/test.wj", content)

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.OwnUseAfterMove, source.Span{File: fileID, Start: 13, End: 17}, "use of moved value `item`"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.wj:1:14"},
		{"Relative path", PathModeRelative, "src/test.wj:1:14"},
		{"Basename only", PathModeBasename, "test.wj:1:14"},
		{"Auto shortens long absolute paths", PathModeAuto, "test.wj:1:14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Fatalf("expected %q in:\n%s", tt.contains, out)
			}
			for _, want := range []string{"ERROR", "OWN1002", "use of moved value"} {
				if !strings.Contains(out, want) {
					t.Fatalf("expected %q in:\n%s", want, out)
				}
			}
		})
	}
}

func TestPrettyUnderlinesSpan(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("fn f(v: Vec) {\n\tv.push(1)\n}\n")
	fileID := fs.AddVirtual("u.wj", content)
	bag := diag.NewBag(2)
	// "v.push(1)" on line 2, after a tab
	bag.Add(diag.NewError(diag.OwnImmutableMutation, source.Span{File: fileID, Start: 16, End: 25}, "cannot mutate `v`"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1})
	out := buf.String()
	if !strings.Contains(out, "u.wj:2:2") {
		t.Fatalf("wrong location:\n%s", out)
	}
	if !strings.Contains(out, "1 | fn f(v: Vec) {") || !strings.Contains(out, "3 | }") {
		t.Fatalf("expected one line of context around the span:\n%s", out)
	}
	if !strings.Contains(out, "|     ^~~~~~~~\n") {
		t.Fatalf("underline must start after the expanded tab:\n%s", out)
	}
}

func TestPrettyNotesAndFixes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("take(a); take(a)\n")
	fileID := fs.AddVirtual("test.wj", content)

	bag := diag.NewBag(4)
	d := diag.NewError(diag.OwnUseAfterMove, source.Span{File: fileID, Start: 14, End: 15}, "use of moved value `a`").
		WithNote(source.Span{File: fileID, Start: 5, End: 6}, "value moved here").
		WithFix("clone the value before the first move", diag.FixEdit{Span: source.Span{File: fileID, Start: 6, End: 6}, NewText: ".clone()"})
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, ShowFixes: true, ShowPreview: true})
	out := buf.String()
	for _, want := range []string{
		"note: test.wj:1:6: value moved here",
		"fix #1: clone the value before the first move",
		`apply=".clone()"`,
		"preview:",
		"- take(a); take(a)",
		"+ take(a.clone()); take(a)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	out = buf.String()
	if strings.Contains(out, "note:") || !strings.Contains(out, "help: clone the value before the first move") {
		t.Fatalf("compact output should carry the suggestion only:\n%s", out)
	}
}

func TestPrettyWithoutLocation(t *testing.T) {
	bag := diag.NewBag(3)
	bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{}, "open a.json: no such file"))
	bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{}, "open b.json: no such file"))

	var buf bytes.Buffer
	Pretty(&buf, bag, source.NewFileSet(), PrettyOpts{Max: 1})
	out := buf.String()
	if !strings.HasPrefix(out, "ERROR IO4001: open a.json") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "... and 1 more") {
		t.Fatalf("expected truncation marker:\n%s", out)
	}

	full := diag.NewBag(1)
	full.Add(diag.New(diag.SevInfo, diag.IOInfo, source.Span{}, "note"))
	full.Add(diag.NewError(diag.IOLoadFileError, source.Span{}, "open c.json: no such file"))
	buf.Reset()
	Pretty(&buf, full, source.NewFileSet(), PrettyOpts{})
	out = buf.String()
	if !strings.Contains(out, "open c.json") || !strings.Contains(out, "... 1 more suppressed by the diagnostics limit (1)") {
		t.Fatalf("expected the error and a suppression marker:\n%s", out)
	}
}

func TestAnnotationsText(t *testing.T) {
	doc := &annot.Document{
		Unit:   "unit.wj",
		Strict: true,
		Functions: []annot.Function{{
			ID:       "consume",
			Params:   []annot.Slot{{Name: "items", Type: "[Item]", Decision: "owned", Pass: annot.PassMove}},
			Loops:    []annot.Loop{{Iter: "into_iter", Root: "items", Location: annot.Location{File: "/src/unit.wj", Line: 2, Col: 3}}},
			Location: annot.Location{File: "/src/unit.wj", Line: 1, Col: 1},
		}},
	}
	var buf bytes.Buffer
	Annotations(&buf, doc, PrettyOpts{PathMode: PathModeBasename})
	out := buf.String()
	for _, want := range []string{
		"unit unit.wj (strict)",
		"fn consume  unit.wj:1:1",
		"param items: [Item]  owned -> move",
		"loop into_iter over items  unit.wj:2:3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}
