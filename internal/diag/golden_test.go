package diag

import (
	"testing"

	"ownc/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Add("./testdata/sample.wj", []byte("a\nb\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     OwnUseAfterMove,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: file, Start: 2, End: 3},
			Notes: []Note{
				{Span: source.Span{File: file, Start: 0, End: 1}, Msg: "moved here"},
			},
		},
		{
			Severity: SevInfo,
			Code:     OwnUseAfterMove,
			Message:  "another",
			Primary:  source.Span{File: file, Start: 2, End: 3},
		},
	}

	expected := "note OWN1002 testdata/sample.wj:1:1 moved here\n" +
		"error OWN1002 testdata/sample.wj:2:1 first line second\n" +
		"info OWN1002 testdata/sample.wj:2:1 another"

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}
