package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.String == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
	if in.NameOf(b.String) != "String" {
		t.Fatalf("expected String builtin to be named")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().String
	if in.Array(elem, ArrayDynamicLength) != in.Array(elem, ArrayDynamicLength) {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Named("Vec", elem) != in.Named("Vec", elem) {
		t.Fatalf("named applications should be deduplicated")
	}
	if in.Named("Vec", elem) == in.Named("Vec", in.Builtins().Int) {
		t.Fatalf("different arguments must give different types")
	}
	if in.Tuple() != in.Builtins().Unit {
		t.Fatalf("empty tuple must be unit")
	}
}

func TestReferenceMutabilityAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int
	if in.Reference(elem, true) == in.Reference(elem, false) {
		t.Fatalf("mutable and immutable references must differ")
	}
}

func TestParamsByBounds(t *testing.T) {
	in := NewInterner()
	a := in.Param("T", "Clone")
	b := in.Param("T")
	if a == b {
		t.Fatalf("bounds must be part of identity")
	}
	info, ok := in.ParamInfo(a)
	if !ok || !info.HasBound("Clone") {
		t.Fatalf("expected Clone bound, got %+v", info)
	}
}

func TestSubstituteAndLabel(t *testing.T) {
	in := NewInterner()
	ty := in.Param("T")
	vec := in.Named("Vec", in.Reference(ty, true))
	got := in.Substitute(vec, map[string]TypeID{"T": in.Builtins().String})
	if label := in.Label(got); label != "Vec<&mut String>" {
		t.Fatalf("unexpected label %q", label)
	}
	if in.Label(in.Tuple(in.Builtins().Int)) != "(int,)" {
		t.Fatalf("unexpected single tuple label %q", in.Label(in.Tuple(in.Builtins().Int)))
	}
}

func TestElementTypes(t *testing.T) {
	in := NewInterner()
	s := in.Builtins().String
	vec := in.Named("Vec", s)
	if in.IterElem(in.Reference(vec, false)) != s {
		t.Fatalf("iterating &Vec<String> should yield String")
	}
	m := in.Named("HashMap", s, in.Builtins().Int)
	if in.IndexElem(m) != in.Builtins().Int {
		t.Fatalf("indexing a map should yield its value type")
	}
	if in.IterElem(in.Builtins().Bool) != in.Builtins().Unknown {
		t.Fatalf("bool is not iterable")
	}
}
