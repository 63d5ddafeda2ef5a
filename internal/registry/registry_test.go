package registry

import (
	"errors"
	"strings"
	"testing"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/testkit"
	"ownc/internal/typeclass"
	"ownc/internal/types"
)

func collect(t *testing.T, u *testkit.Unit, opts Options) (*Registry, *diag.Bag) {
	t.Helper()
	u.Finish()
	in := types.NewInterner()
	decls := typeclass.Collect(u.B, in)
	bag := diag.NewBag(50)
	reg, err := Collect(u.B, in, decls, opts, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	return reg, bag
}

func diagCodes(bag *diag.Bag) []string {
	out := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestReturnClassification(t *testing.T) {
	u := testkit.NewUnit()
	u.Struct("Item").Field("name", u.T("String")).Add()
	u.Fn("wrap").Param("x", u.T("Item")).Returns(u.T("Option", u.T("Item"))).
		Body(u.E(u.Call("Some", u.Id("x")))).Add()
	u.Fn("log").Param("x", u.T("Item")).
		Body(u.E(u.Call("println", u.Id("x")))).Add()
	u.Fn("name").Param("x", u.T("Item")).Returns(u.T("String")).
		Body(u.E(u.Sel("x.name"))).Add()
	reg, _ := collect(t, u, Options{})

	cases := map[FuncID]ReturnClass{"wrap": WrapsArgument, "log": Void, "name": ValueReturning}
	for id, want := range cases {
		e, ok := reg.Lookup(id)
		if !ok {
			t.Fatalf("entry %s not registered", id)
		}
		if e.Return != want {
			t.Fatalf("%s: expected %v, got %v", id, want, e.Return)
		}
	}
}

func TestUserEnumConstructorWraps(t *testing.T) {
	u := testkit.NewUnit()
	u.Enum("Msg").Variant("Text", u.T("String")).Variant("Quit").Add()
	u.Fn("text").Param("s", u.T("String")).Returns(u.T("Msg")).
		Body(u.E(u.Call("Msg::Text", u.Id("s")))).Add()
	reg, _ := collect(t, u, Options{})
	e, _ := reg.Lookup("text")
	if e.Return != WrapsArgument {
		t.Fatalf("expected WrapsArgument for single-payload variant constructor, got %v", e.Return)
	}
}

func shapeTrait(u *testkit.Unit) {
	area := u.Fn("area").Self(ast.ReceiverRef).Returns(u.T("f64")).Build()
	scale := u.Fn("scale").Self(ast.ReceiverMutRef).Param("k", u.T("f64")).Build()
	describe := u.Fn("describe").Self(ast.ReceiverRef).Returns(u.T("String")).
		Body(u.E(u.Call("String::new"))).Build()
	u.Trait("Shape", area, scale, describe)
}

func TestTraitImplAdoptsPinnedReceiver(t *testing.T) {
	u := testkit.NewUnit()
	u.Struct("Circle").Field("r", u.T("f64")).Add()
	shapeTrait(u)
	area := u.Fn("area").Self(ast.ReceiverInferred).Returns(u.T("f64")).Body(u.E(u.Sel("self.r"))).Build()
	scale := u.Fn("scale").Self(ast.ReceiverInferred).Param("k", u.T("f64")).
		Body(u.AssignOp(ast.AssignMul, u.Sel("self.r"), u.Id("k"))).Build()
	u.Impl(u.T("Circle"), "Shape", area, scale)
	reg, bag := collect(t, u, Options{})

	if bag.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diagCodes(bag))
	}
	e, ok := reg.Method("Circle", "area")
	if !ok || e.Receiver.Decision != Borrowed || !e.Receiver.Pinned {
		t.Fatalf("area receiver should be pinned Borrowed, got %+v", e.Receiver)
	}
	e, _ = reg.Method("Circle", "scale")
	if e.Receiver.Decision != MutBorrowed {
		t.Fatalf("scale receiver should be pinned MutBorrowed, got %v", e.Receiver.Decision)
	}
	if e.Params[0].Decision != Borrowed || !e.Params[0].Fixed {
		t.Fatalf("trait param with inferred hint should pin Borrowed, got %+v", e.Params[0])
	}
	if d, ok := reg.Method("Circle", "describe"); !ok || !d.IsDecl {
		t.Fatalf("default method should resolve through the trait")
	}
	if !reg.Implements("Circle", "Shape") {
		t.Fatalf("Circle should implement Shape")
	}
}

func TestTraitImplMismatchIsCorrectedToPin(t *testing.T) {
	u := testkit.NewUnit()
	u.Struct("Square").Field("s", u.T("f64")).Add()
	shapeTrait(u)
	area := u.Fn("area").Self(ast.ReceiverOwned).Returns(u.T("f64")).Body(u.E(u.Sel("self.s"))).Build()
	extra := u.Fn("perimeter").Self(ast.ReceiverRef).Returns(u.T("f64")).Body(u.E(u.Sel("self.s"))).Build()
	u.Impl(u.T("Square"), "Shape", area, extra)
	reg, bag := collect(t, u, Options{})

	// owned receiver, extra method, missing scale
	if bag.Len() != 3 {
		t.Fatalf("expected 3 mismatch diagnostics, got %v", diagCodes(bag))
	}
	for _, d := range bag.Items() {
		if d.Code != diag.OwnTraitSignatureMismatch || d.Severity != diag.SevError {
			t.Fatalf("unexpected diagnostic %s: %s", d.Code.ID(), d.Message)
		}
		if d.Suggestion() == "" {
			t.Fatalf("mismatch without suggestion: %s", d.Message)
		}
	}
	found := false
	for _, d := range bag.Items() {
		if strings.Contains(d.Message, "receiver of `Square::area`") {
			found = true
			if d.Suggestion() != "change receiver to `&self`" || len(d.Notes) == 0 {
				t.Fatalf("receiver mismatch should point at the trait and suggest &self: %+v", d)
			}
		}
	}
	if !found {
		t.Fatalf("receiver mismatch not reported: %v", bag.Items())
	}
	e, _ := reg.Method("Square", "area")
	if e.Receiver.Decision != Borrowed {
		t.Fatalf("impl receiver must be corrected to the pin, got %v", e.Receiver.Decision)
	}
}

func TestFrozenBuilderRejectsChanges(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(&Entry{ID: "f"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.Register(&Entry{ID: "f"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	reg := b.Freeze()
	if err := b.Register(&Entry{ID: "g"}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
	if err := b.RegisterImpl(ImplDecl{SelfName: "T"}, nil); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen from RegisterImpl, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", reg.Len())
	}
}

func TestPublishIsCopyOnWriteAndMonotone(t *testing.T) {
	b := NewBuilder()
	_ = b.Register(&Entry{ID: "f", Params: []Slot{{Name: "a"}, {Name: "b", Decision: Borrowed, Fixed: true}}})
	_ = b.Register(&Entry{ID: "g", Params: []Slot{{Name: "x"}}})
	r0 := b.Freeze()

	r1, changed := r0.Publish(map[FuncID]Signature{
		"f": {Params: []Decision{Owned, MutBorrowed}},
		"g": {Params: []Decision{Unresolved}},
	})
	if len(changed) != 1 || changed[0] != "f" {
		t.Fatalf("expected only f to change, got %v", changed)
	}
	if r1.Version() != 1 {
		t.Fatalf("expected version 1, got %d", r1.Version())
	}
	old, _ := r0.Lookup("f")
	if old.Params[0].Decision != Unresolved {
		t.Fatalf("previous snapshot must not be mutated")
	}
	cur, _ := r1.Lookup("f")
	if cur.Params[0].Decision != Owned || cur.Params[1].Decision != Borrowed {
		t.Fatalf("unexpected published params %+v", cur.Params)
	}

	r2, changed := r1.Publish(map[FuncID]Signature{"f": {Params: []Decision{Borrowed, Borrowed}}})
	if len(changed) != 0 || r2 != r1 {
		t.Fatalf("weaker decisions must not change the snapshot")
	}
}

func TestResetRestoresRegistrationSignatures(t *testing.T) {
	b := NewBuilder()
	_ = b.Register(&Entry{ID: "f", Params: []Slot{{Name: "a"}, {Name: "b", Decision: Borrowed, Fixed: true}}})
	_ = b.Register(&Entry{ID: "g", Params: []Slot{{Name: "x"}}})
	r0 := b.Freeze()
	r1, _ := r0.Publish(map[FuncID]Signature{
		"f": {Params: []Decision{Owned, Owned}},
		"g": {Params: []Decision{MutBorrowed}},
	})

	r2, changed := r1.Reset(r0, []FuncID{"f", "missing"})
	if len(changed) != 1 || changed[0] != "f" || r2.Version() != r1.Version()+1 {
		t.Fatalf("expected f to change in a new snapshot, got %v (version %d)", changed, r2.Version())
	}
	f, _ := r2.Lookup("f")
	if f.Params[0].Decision != Unresolved || f.Params[1].Decision != Borrowed {
		t.Fatalf("f must carry its registration slots, got %+v", f.Params)
	}
	if g, _ := r2.Lookup("g"); g.Params[0].Decision != MutBorrowed {
		t.Fatalf("g was not reset and must keep its decision")
	}
	if cur, _ := r1.Lookup("f"); cur.Params[0].Decision != Owned {
		t.Fatalf("previous snapshot must not be mutated")
	}

	r3, changed := r2.Publish(map[FuncID]Signature{"f": {Params: []Decision{Borrowed}}})
	if len(changed) != 1 {
		t.Fatalf("a reset slot resolves upward again, got %v", changed)
	}
	if again, _ := r3.Reset(r0, []FuncID{"g"}); again == r3 {
		t.Fatalf("resetting a published entry must produce a new snapshot")
	}
	if same, changed := r0.Reset(r0, []FuncID{"f"}); same != r0 || changed != nil {
		t.Fatalf("resetting the base to itself is a no-op")
	}
}

func TestExternSignatures(t *testing.T) {
	u := testkit.NewUnit()
	u.Fn("send").Param("msg", u.T("String")).Add()
	u.Fn("peek").Param("msg", u.T("String")).Add()
	u.Fn("fill").Param("buf", u.RefMutT(u.T("String"))).Add()
	reg, _ := collect(t, u, Options{Consuming: map[string]bool{"send": true}})

	send, _ := reg.Lookup("send")
	peek, _ := reg.Lookup("peek")
	fill, _ := reg.Lookup("fill")
	if send.ArgEffect(0) != Owned || peek.ArgEffect(0) != Borrowed {
		t.Fatalf("extern effects: send=%v peek=%v", send.ArgEffect(0), peek.ArgEffect(0))
	}
	if fill.ArgEffect(0) != MutBorrowed {
		t.Fatalf("&mut parameter must mutably borrow the argument, got %v", fill.ArgEffect(0))
	}
	if peek.ArgEffect(5) != Borrowed {
		t.Fatalf("out-of-range arguments are borrowed")
	}
}
