package source

import "testing"

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern("items")
	b := in.Intern("items")
	if a != b {
		t.Fatalf("same string interned twice: %d vs %d", a, b)
	}
	if in.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", in.Len())
	}
	if s := in.MustLookup(a); s != "items" {
		t.Fatalf("MustLookup = %q", s)
	}
}

func TestInternerNormalizesNFC(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("canonically equal names got different IDs")
	}
	if _, ok := in.Find("café"); !ok {
		t.Fatalf("Find must normalize too")
	}
}

func TestInternerNoStringID(t *testing.T) {
	in := NewInterner()
	if id := in.Intern(""); id != NoStringID {
		t.Fatalf("empty string must map to NoStringID, got %d", id)
	}
	if _, ok := in.Lookup(StringID(42)); ok {
		t.Fatalf("lookup of unknown id must fail")
	}
}
