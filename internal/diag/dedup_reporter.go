package diag

import "ownc/internal/source"

// findingKey: одна и та же находка в одном месте. Ноты не учитываются,
// поэтому повторный проход по циклу с другим местом перемещения не даёт дубля.
type findingKey struct {
	code Code
	sev  Severity
	at   source.Span
	msg  string
}

// DedupReporter forwards the first report of every finding and drops the
// rest. Not safe for concurrent use; wrap it in a SyncReporter.
type DedupReporter struct {
	next       Reporter
	seen       map[findingKey]bool
	suppressed int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[findingKey]bool)}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note, fixes []Fix) {
	if r == nil || r.next == nil {
		return
	}
	k := findingKey{code: code, sev: sev, at: primary, msg: msg}
	if r.seen[k] {
		r.suppressed++
		return
	}
	r.seen[k] = true
	r.next.Report(code, sev, primary, msg, notes, fixes)
}

// Suppressed is the number of dropped repeats.
func (r *DedupReporter) Suppressed() int {
	if r == nil {
		return 0
	}
	return r.suppressed
}
