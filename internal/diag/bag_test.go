package diag

import (
	"testing"

	"ownc/internal/source"
)

func TestBagLimitAndMerge(t *testing.T) {
	b := NewBag(2)
	sp := source.Span{File: 0, Start: 1, End: 2}
	if !b.Add(NewError(OwnUseAfterMove, sp, "a")) || !b.Add(NewError(OwnUseAfterMove, sp, "b")) {
		t.Fatalf("expected first two diagnostics to fit")
	}
	if b.Add(NewError(OwnUseAfterMove, sp, "c")) {
		t.Fatalf("expected limit to reject third diagnostic")
	}

	other := NewBag(4)
	other.Add(New(SevInfo, OwnUseAfterMove, sp, "dup"))
	b.Merge(other)
	if b.Len() != 3 {
		t.Fatalf("expected merge to grow the bag, got %d items", b.Len())
	}
	if got := b.Count(SevInfo); got != 1 {
		t.Fatalf("expected 1 info diagnostic, got %d", got)
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	b := NewBag(10)
	b.Add(New(SevInfo, OwnUseAfterMove, source.Span{Start: 5, End: 6}, "info"))
	b.Add(NewError(OwnImmutableMutation, source.Span{Start: 5, End: 6}, "err"))
	b.Add(NewError(OwnUseAfterMove, source.Span{Start: 1, End: 2}, "first"))
	b.Sort()

	items := b.Items()
	if items[0].Message != "first" {
		t.Fatalf("expected earliest span first, got %q", items[0].Message)
	}
	if items[1].Severity != SevError || items[2].Severity != SevInfo {
		t.Fatalf("expected error before info on equal spans, got %v then %v", items[1].Severity, items[2].Severity)
	}
}

func TestBagFilterKeepsFatal(t *testing.T) {
	b := NewBag(10)
	sp := source.Span{Start: 3, End: 4}
	b.Add(NewError(OwnUseAfterMove, sp, "x"))
	b.Add(New(SevInfo, OwnUseAfterMove, sp, "y"))
	b.Add(New(SevWarning, OwnAmbiguousOwnership, sp, "z"))
	b.Filter((*Diagnostic).IsFatal)
	if b.Len() != 1 || !b.HasErrors() {
		t.Fatalf("expected a single fatal diagnostic after filtering, got %+v", b.Items())
	}
}

func TestBagLimitNeverHidesErrors(t *testing.T) {
	sp := source.Span{Start: 1, End: 2}
	tests := []struct {
		name    string
		max     int
		add     []Diagnostic
		kept    []Severity
		dropped int
		errors  int
	}{
		{
			name:    "error evicts info",
			max:     1,
			add:     []Diagnostic{New(SevInfo, OwnUseAfterMove, sp, "dup"), NewError(OwnImmutableMutation, sp, "bad")},
			kept:    []Severity{SevError},
			dropped: 1,
			errors:  1,
		},
		{
			name:    "errors past the limit are counted",
			max:     1,
			add:     []Diagnostic{NewError(OwnUseAfterMove, sp, "a"), NewError(OwnImmutableMutation, sp, "b")},
			kept:    []Severity{SevError},
			dropped: 1,
			errors:  2,
		},
		{
			name:    "infos past the limit",
			max:     2,
			add:     []Diagnostic{NewError(OwnUseAfterMove, sp, "a"), New(SevWarning, OwnAmbiguousOwnership, sp, "w"), New(SevInfo, OwnUseAfterMove, sp, "i")},
			kept:    []Severity{SevError, SevWarning},
			dropped: 1,
			errors:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBag(tt.max)
			for _, d := range tt.add {
				b.Add(d)
			}
			if b.Len() != len(tt.kept) {
				t.Fatalf("kept %d, want %d", b.Len(), len(tt.kept))
			}
			for i, sev := range tt.kept {
				if b.Items()[i].Severity != sev {
					t.Fatalf("item %d: got %v, want %v", i, b.Items()[i].Severity, sev)
				}
			}
			if b.Dropped() != tt.dropped || b.Count(SevError) != tt.errors || !b.HasErrors() {
				t.Fatalf("dropped=%d errors=%d hasErrors=%v", b.Dropped(), b.Count(SevError), b.HasErrors())
			}

			merged := NewBag(1)
			merged.Merge(b)
			if merged.Dropped() != tt.dropped || merged.Count(SevError) != tt.errors {
				t.Fatalf("merge must carry the counters: dropped=%d errors=%d", merged.Dropped(), merged.Count(SevError))
			}
		})
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(4)
	rep := NewSyncReporter(NewDedupReporter(BagReporter{Bag: bag}))
	b := ReportError(rep, OwnImmutableMutation, source.Span{Start: 0, End: 1}, "cannot assign").
		WithNote(source.Span{Start: 4, End: 5}, "declared here").
		WithFix("declare it `mut`")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected single emission, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Suggestion() != "declare it `mut`" || len(d.Notes) != 1 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestDedupReporterDropsRepeats(t *testing.T) {
	bag := NewBag(8)
	rep := NewDedupReporter(BagReporter{Bag: bag})
	at := source.Span{Start: 3, End: 4}
	rep.Report(OwnUseAfterMove, SevError, at, "use of moved value `a`", []Note{{Span: source.Span{Start: 0, End: 1}, Msg: "moved here"}}, nil)
	rep.Report(OwnUseAfterMove, SevError, at, "use of moved value `a`", []Note{{Span: source.Span{Start: 1, End: 2}, Msg: "moved here"}}, nil)
	rep.Report(OwnUseAfterMove, SevInfo, at, "use of moved value `a`", nil, nil)
	if bag.Len() != 2 || rep.Suppressed() != 1 {
		t.Fatalf("expected 2 findings and 1 repeat, got %d and %d", bag.Len(), rep.Suppressed())
	}
}
