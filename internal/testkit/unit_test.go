package testkit

import (
	"testing"

	"ownc/internal/ast"
)

func TestUnitSpansSatisfyInvariants(t *testing.T) {
	u := NewUnit()
	u.Struct("Item").Field("name", u.T("String")).Derive("Clone").Add()
	u.Fn("wrap").
		Param("x", u.T("Item")).
		Returns(u.T("Option", u.T("Item"))).
		Body(u.E(u.Call("Some", u.Id("x")))).
		Add()
	m := u.Fn("len").Self(ast.ReceiverInferred).Returns(u.T("usize")).Body(u.E(u.M(u.Sel("self.items"), "len"))).Build()
	u.Impl(u.T("Bag"), "", m)
	u.Finish()

	sf := u.Files.Get(0)
	if err := CheckSpanInvariants(u.B, u.File, sf); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
	if got := len(u.B.AllItems()); got != 3 {
		t.Fatalf("expected 3 top-level items, got %d", got)
	}
	fn, ok := u.B.Items.Fn(m)
	if !ok || fn.Owner.Kind != ast.ItemImpl {
		t.Fatalf("impl method should be owned by its impl")
	}
}
