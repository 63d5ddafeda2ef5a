package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"ownc/internal/source"
)

// shortLine is one rendered row; rank orders rows that share a position
// (error, warning, info, then notes).
type shortLine struct {
	rank  int
	label string
	code  string
	path  string
	pos   source.LineCol
	text  string
}

var flatten = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// FormatShortDiagnostics renders diagnostics one per line, sorted by
// location, in the form "error OWN1002 path:line:col message".
// Notes follow as "note" lines when includeNotes is set.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	var rows []shortLine
	for i := range diags {
		d := &diags[i]
		rank, label := severityRank(d.Severity)
		rows = append(rows, shortRow(fs, d.Primary, rank, label, d.Code, d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			rows = append(rows, shortRow(fs, n.Span, 3, "note", d.Code, n.Msg))
		}
	}
	slices.SortStableFunc(rows, func(a, b shortLine) int {
		return cmp.Or(
			strings.Compare(a.path, b.path),
			cmp.Compare(a.pos.Line, b.pos.Line),
			cmp.Compare(a.pos.Col, b.pos.Col),
			cmp.Compare(a.rank, b.rank),
			strings.Compare(a.code, b.code),
			strings.Compare(a.text, b.text),
		)
	})

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%s %s %s:%d:%d %s", r.label, r.code, r.path, r.pos.Line, r.pos.Col, r.text)
	}
	return strings.Join(lines, "\n")
}

func shortRow(fs *source.FileSet, sp source.Span, rank int, label string, code Code, msg string) shortLine {
	pos, _ := fs.Resolve(sp)
	path := "<unit>"
	if f := fs.Get(sp.File); f != nil {
		path = filepath.ToSlash(f.Path)
		for strings.HasPrefix(path, "./") {
			path = path[2:]
		}
	}
	return shortLine{
		rank:  rank,
		label: label,
		code:  code.ID(),
		path:  path,
		pos:   pos,
		text:  strings.TrimSpace(flatten.Replace(msg)),
	}
}

func severityRank(sev Severity) (int, string) {
	switch sev {
	case SevError:
		return 0, "error"
	case SevWarning:
		return 1, "warning"
	default:
		return 2, "info"
	}
}
