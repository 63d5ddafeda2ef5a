package borrowck

import (
	"strings"
	"testing"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/ownership"
	"ownc/internal/registry"
	"ownc/internal/testkit"
	"ownc/internal/typeclass"
	"ownc/internal/types"
	"ownc/internal/usage"
)

type fixture struct {
	u   *testkit.Unit
	reg *registry.Registry
	an  *usage.Analyzer
	rs  *ownership.Resolver
	cls *typeclass.Classifier
}

func setup(t *testing.T, u *testkit.Unit) *fixture {
	t.Helper()
	u.Finish()
	in := types.NewInterner()
	decls := typeclass.Collect(u.B, in)
	bag := diag.NewBag(50)
	reg, err := registry.Collect(u.B, in, decls, registry.Options{}, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	cls := typeclass.New(in, decls)
	return &fixture{
		u:   u,
		reg: reg,
		an:  usage.New(u.B, cls, reg, usage.Options{}),
		rs:  ownership.New(cls),
		cls: cls,
	}
}

func (f *fixture) check(t *testing.T, id registry.FuncID, strict bool) (*Result, *diag.Bag) {
	t.Helper()
	e, ok := f.reg.Lookup(id)
	if !ok {
		t.Fatalf("no entry %s", id)
	}
	r := f.rs.Resolve(e, f.an.Analyze(e))
	bag := diag.NewBag(50)
	res := New(f.u.B, f.cls, Options{Strict: strict}).Validate(r, diag.BagReporter{Bag: bag})
	return res, bag
}

func codes(bag *diag.Bag, sev diag.Severity) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		if d.Severity == sev {
			out = append(out, d.Code)
		}
	}
	return out
}

// itemUnit declares Item (optionally Clone) and a consuming `take`.
func itemUnit(clone bool) *testkit.Unit {
	u := testkit.NewUnit()
	item := u.Struct("Item").Field("name", u.T("String"))
	if clone {
		item = item.Derive("Clone")
	}
	item.Add()
	u.Struct("Pair").Field("a", u.T("Item")).Field("b", u.T("Item")).Add()
	u.Fn("take").ParamHint("x", u.T("Item"), ast.HintOwned).Add()
	return u
}

func mk(u *testkit.Unit) ast.ExprID {
	return u.StructLit("Item", u.FI("name", u.Str("x")))
}

func take(u *testkit.Unit, name string) ast.StmtID {
	return u.E(u.Call("take", u.Id(name)))
}

func TestDivergingBranchKeepsValueLive(t *testing.T) {
	u := itemUnit(false)
	u.Fn("early").Param("flag", u.T("bool")).
		Body(
			u.Let("a", mk(u)),
			u.If(u.Id("flag"), u.Block(take(u, "a"), u.RetVoid()), ast.NoStmtID),
			take(u, "a"),
		).Add()
	res, bag := setup(t, u).check(t, "early", false)
	if res.Errors != 0 || bag.HasErrors() {
		t.Fatalf("a move in a returning branch must not affect the fallthrough: %+v", bag.Items())
	}
}

func TestUseAfterMove(t *testing.T) {
	cases := []struct {
		name   string
		clone  bool
		strict bool
		errs   int
		dups   int
	}{
		{"unique", false, false, 1, 0},
		{"duplicable", true, false, 0, 1},
		{"strict", true, true, 1, 0},
	}
	for _, tc := range cases {
		u := itemUnit(tc.clone)
		u.Fn("twice").Body(u.Let("a", mk(u)), take(u, "a"), take(u, "a")).Add()
		res, bag := setup(t, u).check(t, "twice", tc.strict)
		if res.Errors != tc.errs || len(res.Duplications) != tc.dups {
			t.Fatalf("%s: expected %d errors and %d duplications, got %d and %d", tc.name, tc.errs, tc.dups, res.Errors, len(res.Duplications))
		}
		if tc.errs > 0 {
			items := bag.Items()
			if len(items) != 1 || items[0].Code != diag.OwnUseAfterMove || len(items[0].Notes) != 1 {
				t.Fatalf("%s: expected one UseAfterMove with a move note, got %+v", tc.name, items)
			}
			if items[0].Notes[0].Msg != "value moved here" {
				t.Fatalf("%s: unexpected note %q", tc.name, items[0].Notes[0].Msg)
			}
		}
		if tc.dups > 0 {
			d := res.Duplications[0]
			if d.Name != "a" || d.OutOfBorrow {
				t.Fatalf("%s: unexpected duplication %+v", tc.name, d)
			}
			if got := codes(bag, diag.SevInfo); len(got) != 1 || got[0] != diag.OwnUseAfterMove {
				t.Fatalf("%s: duplication must be reported as info, got %v", tc.name, got)
			}
		}
	}
}

func TestMoveInOneArmIsMaybeMoved(t *testing.T) {
	u := itemUnit(false)
	u.Fn("maybe").Param("flag", u.T("bool")).
		Body(
			u.Let("a", mk(u)),
			u.If(u.Id("flag"), u.Block(take(u, "a")), ast.NoStmtID),
			take(u, "a"),
		).Add()
	_, bag := setup(t, u).check(t, "maybe", false)
	items := bag.Items()
	if len(items) != 1 || !strings.Contains(items[0].Message, "may have been moved") {
		t.Fatalf("expected a maybe-moved error, got %+v", items)
	}
}

func TestMoveOnEveryArmIsDefinite(t *testing.T) {
	u := itemUnit(false)
	u.Fn("both").Param("flag", u.T("bool")).
		Body(
			u.Let("a", mk(u)),
			u.If(u.Id("flag"), u.Block(take(u, "a")), u.Block(take(u, "a"))),
			take(u, "a"),
		).Add()
	u.Fn("arms").Param("flag", u.T("bool")).
		Body(
			u.Let("a", mk(u)),
			u.Match(u.Id("flag"),
				u.Arm(u.PLit(u.Bool(true)), take(u, "a")),
				u.Arm(u.PLit(u.Bool(false)), take(u, "a")),
			),
			take(u, "a"),
		).Add()
	f := setup(t, u)
	for _, id := range []registry.FuncID{"both", "arms"} {
		_, bag := f.check(t, id, false)
		items := bag.Items()
		if len(items) != 1 || !strings.Contains(items[0].Message, "use of moved value `a`") {
			t.Fatalf("%s: a move on every arm is definite, got %+v", id, items)
		}
		if len(items[0].Notes) != 2 {
			t.Fatalf("%s: both moves must be cited, got %+v", id, items[0].Notes)
		}
	}
}

func TestClosureMovesAtCreation(t *testing.T) {
	cases := []struct {
		name  string
		clone bool
		body  func(u *testkit.Unit) ast.ExprID
		errs  int
		dups  int
	}{
		{"moving", false, func(u *testkit.Unit) ast.ExprID { return u.Call("take", u.Id("a")) }, 1, 0},
		{"moving clone", true, func(u *testkit.Unit) ast.ExprID { return u.Call("take", u.Id("a")) }, 0, 1},
		{"reading", false, func(u *testkit.Unit) ast.ExprID { return u.Call("println", u.Id("a")) }, 0, 0},
	}
	for _, tc := range cases {
		u := itemUnit(tc.clone)
		u.Fn("later").
			Body(
				u.Let("a", mk(u)),
				u.Let("c", u.Closure(nil, tc.body(u))),
				take(u, "a"),
			).Add()
		res, bag := setup(t, u).check(t, "later", false)
		if res.Errors != tc.errs || len(res.Duplications) != tc.dups {
			t.Fatalf("%s: expected %d errors and %d duplications, got %+v", tc.name, tc.errs, tc.dups, bag.Items())
		}
		if tc.errs > 0 {
			if got := codes(bag, diag.SevError); len(got) != 1 || got[0] != diag.OwnUseAfterMove {
				t.Fatalf("%s: expected UseAfterMove, got %v", tc.name, got)
			}
		}
	}
}

func TestOperatorConsumesLeftOperand(t *testing.T) {
	u := itemUnit(false)
	u.Fn("concat").
		Body(
			u.LetT("s", u.T("String"), u.Call("String::new")),
			u.Let("t", u.Bin(ast.BinAdd, u.Id("s"), u.Str("x"))),
			u.E(u.Call("println", u.Id("s"))),
		).Add()
	res, bag := setup(t, u).check(t, "concat", false)
	if got := codes(bag, diag.SevError); res.Errors != 1 || len(got) != 1 || got[0] != diag.OwnUseAfterMove {
		t.Fatalf("the left operand of + is moved, got %+v", bag.Items())
	}
}

func TestLoopReplay(t *testing.T) {
	u := itemUnit(false)
	u.Fn("each").
		Body(
			u.Let("a", mk(u)),
			u.For("i", u.Range(u.Int(0), u.Int(3)), take(u, "a")),
		).Add()
	u.Fn("once").
		Body(
			u.Let("a", mk(u)),
			u.Loop(take(u, "a"), u.Break()),
		).Add()
	f := setup(t, u)

	res, _ := f.check(t, "each", false)
	if res.Errors != 1 {
		t.Fatalf("each: a move inside a loop body must be seen by the next iteration, got %d errors", res.Errors)
	}
	res, bag := f.check(t, "once", false)
	if res.Errors != 0 {
		t.Fatalf("once: break after the move leaves the loop, got %+v", bag.Items())
	}
}

func TestWriteReinitialises(t *testing.T) {
	u := itemUnit(false)
	u.Fn("reuse").
		Body(
			u.LetMut("a", mk(u)),
			take(u, "a"),
			u.Assign(u.Id("a"), mk(u)),
			take(u, "a"),
		).Add()
	res, bag := setup(t, u).check(t, "reuse", false)
	if res.Errors != 0 {
		t.Fatalf("assignment must make the binding live again: %+v", bag.Items())
	}
}

func TestPartialMoves(t *testing.T) {
	u := itemUnit(false)
	pair := u.StructLit("Pair", u.FI("a", mk(u)), u.FI("b", mk(u)))
	u.Fn("split").
		Body(u.Let("p", pair), u.Let("x", u.Sel("p.a")), u.Let("y", u.Sel("p.b"))).Add()
	pair = u.StructLit("Pair", u.FI("a", mk(u)), u.FI("b", mk(u)))
	u.Fn("whole").
		Body(u.Let("p", pair), u.Let("x", u.Sel("p.a")), u.E(u.Call("println", u.Id("p")))).Add()
	f := setup(t, u)

	if res, bag := f.check(t, "split", false); res.Errors != 0 {
		t.Fatalf("moving disjoint fields is fine: %+v", bag.Items())
	}
	res, bag := f.check(t, "whole", false)
	if res.Errors != 1 || !strings.Contains(bag.Items()[0].Message, "`p`") {
		t.Fatalf("using the whole value after a field move: %+v", bag.Items())
	}
}

func TestMoveOutOfBorrow(t *testing.T) {
	for _, clone := range []bool{false, true} {
		u := itemUnit(clone)
		u.Fn("peek").ParamHint("x", u.T("Item"), ast.HintRef).Body(take(u, "x")).Add()
		u.Fn("first").Param("v", u.T("Vec", u.T("Item"))).
			Body(u.Let("x", u.Idx(u.Id("v"), u.Int(0))), take(u, "x")).Add()
		f := setup(t, u)
		for _, fn := range []registry.FuncID{"peek", "first"} {
			res, bag := f.check(t, fn, false)
			if !clone {
				if res.Errors != 1 || !strings.Contains(bag.Items()[0].Message, "cannot move out of") {
					t.Fatalf("%s: expected a move out of a borrow, got %+v", fn, bag.Items())
				}
				continue
			}
			if res.Errors != 0 || len(res.Duplications) != 1 || !res.Duplications[0].OutOfBorrow {
				t.Fatalf("%s: duplicable value must be copied out of the borrow: %+v", fn, res)
			}
		}
	}
}

func TestImmutableMutation(t *testing.T) {
	u := itemUnit(false)
	u.Fn("frozen").Body(u.Let("p", mk(u)), u.Assign(u.Sel("p.name"), u.Str("y"))).Add()
	u.Fn("thawed").Body(u.LetMut("p", mk(u)), u.Assign(u.Sel("p.name"), u.Str("y"))).Add()
	u.Fn("late").Body(u.LetT("p", u.T("Item"), ast.NoExprID), u.Assign(u.Id("p"), mk(u))).Add()
	u.Impl(u.T("Item"), "",
		u.Fn("rename_ref").Self(ast.ReceiverRef).Param("n", u.T("String")).
			Body(u.Assign(u.Sel("self.name"), u.Id("n"))).Build(),
		u.Fn("rename").Self(ast.ReceiverInferred).Param("n", u.T("String")).
			Body(u.Assign(u.Sel("self.name"), u.Id("n"))).Build(),
	)
	bump := func(name string) ast.StmtID { return u.AssignOp(ast.AssignAdd, u.Id(name), u.Int(1)) }
	u.Fn("count").Param("n", u.T("int")).Body(bump("n")).Add()
	u.Fn("count_mut").ParamMut("n", u.T("int")).Body(bump("n")).Add()
	u.Fn("owned").ParamHint("x", u.T("Item"), ast.HintOwned).Body(u.Assign(u.Sel("x.name"), u.Str("y"))).Add()
	u.Fn("steps").Body(u.For("i", u.Range(u.Int(0), u.Int(3)), bump("i"))).Add()
	u.Fn("ages").Param("people", u.T("Vec", u.T("Item"))).
		Body(u.For("p", u.Un(ast.UnRefMut, u.Id("people")), u.Assign(u.Sel("p.name"), u.Str("y")))).Add()
	u.Fn("adder").Body(u.Let("c", u.Closure([]string{"k"}, u.BlockE(bump("k"))))).Add()
	u.Fn("adder_mut").Body(u.Let("c", u.Closure([]string{"mut k"}, u.BlockE(bump("k"))))).Add()
	f := setup(t, u)

	cases := []struct {
		fn   registry.FuncID
		errs int
	}{
		{"frozen", 1},
		{"thawed", 0},
		{"late", 0},
		{"Item::rename_ref", 1},
		{"Item::rename", 0},
		{"count", 1},
		{"count_mut", 0},
		{"owned", 1},
		{"steps", 1},
		{"ages", 0},
		{"adder", 1},
		{"adder_mut", 0},
	}
	for _, tc := range cases {
		_, bag := f.check(t, tc.fn, false)
		got := codes(bag, diag.SevError)
		if len(got) != tc.errs {
			t.Fatalf("%s: expected %d errors, got %+v", tc.fn, tc.errs, bag.Items())
		}
		for _, c := range got {
			if c != diag.OwnImmutableMutation {
				t.Fatalf("%s: unexpected code %v", tc.fn, c)
			}
		}
	}
	_, bag := f.check(t, "frozen", false)
	d := bag.Items()[0]
	if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 1 || d.Fixes[0].Edits[0].NewText != "mut " {
		t.Fatalf("expected a `mut` insertion fix, got %+v", d.Fixes)
	}
}

func TestNonExhaustiveMatch(t *testing.T) {
	u := testkit.NewUnit()
	u.Enum("Shape").Variant("Circle", u.T("float")).Variant("Square").Add()
	opt := func() ast.TypeID { return u.T("Option", u.T("bool")) }

	u.Fn("circle_only").Param("s", u.T("Shape")).
		Body(u.Match(u.Id("s"), u.Arm(u.PVariant("Circle", u.PBind("r"))))).Add()
	u.Fn("all_shapes").Param("s", u.T("Shape")).
		Body(u.Match(u.Id("s"), u.Arm(u.PVariant("Circle", u.PWild())), u.Arm(u.PVariant("Shape::Square")))).Add()
	u.Fn("wild").Param("s", u.T("Shape")).
		Body(u.Match(u.Id("s"), u.Arm(u.PVariant("Square")), u.Arm(u.PWild()))).Add()
	u.Fn("some_true").Param("o", opt()).
		Body(u.Match(u.Id("o"), u.Arm(u.PVariant("Some", u.PLit(u.Bool(true)))), u.Arm(u.PVariant("None")))).Add()
	u.Fn("some_both").Param("o", opt()).
		Body(u.Match(u.Id("o"),
			u.Arm(u.PVariant("Some", u.PLit(u.Bool(true)))),
			u.Arm(u.PVariant("Some", u.PLit(u.Bool(false)))),
			u.Arm(u.PVariant("None")),
		)).Add()
	u.Fn("guarded").Param("o", u.T("Option", u.T("int"))).
		Body(u.Match(u.Id("o"), u.ArmIf(u.PVariant("Some", u.PBind("x")), u.Bool(true)), u.Arm(u.PVariant("None")))).Add()
	u.Fn("flag").Param("b", u.T("bool")).
		Body(u.Match(u.Id("b"), u.Arm(u.PLit(u.Bool(true))))).Add()
	u.Fn("number").Param("n", u.T("int")).
		Body(u.Match(u.Id("n"), u.Arm(u.PLit(u.Int(1))))).Add()
	u.Fn("pair").Param("p", u.TupleT(u.T("bool"), u.T("bool"))).
		Body(u.Match(u.Id("p"),
			u.Arm(u.PTuple(u.PLit(u.Bool(true)), u.PWild())),
			u.Arm(u.PTuple(u.PLit(u.Bool(false)), u.PWild())),
		)).Add()
	f := setup(t, u)

	cases := []struct {
		fn      registry.FuncID
		missing string // "" when exhaustive
	}{
		{"circle_only", "`Square`"},
		{"all_shapes", ""},
		{"wild", ""},
		{"some_true", "`Some(..)`"},
		{"some_both", ""},
		{"guarded", "`Some`"},
		{"flag", "`false`"},
		{"number", "`_`"},
		{"pair", ""},
	}
	for _, tc := range cases {
		_, bag := f.check(t, tc.fn, false)
		var found *diag.Diagnostic
		items := bag.Items()
		for i := range items {
			if items[i].Code == diag.OwnNonExhaustiveMatch {
				found = &items[i]
			}
		}
		switch {
		case tc.missing == "" && found != nil:
			t.Fatalf("%s: unexpected %q", tc.fn, found.Message)
		case tc.missing != "" && found == nil:
			t.Fatalf("%s: expected a non-exhaustive match", tc.fn)
		case tc.missing != "" && !strings.Contains(found.Message, tc.missing):
			t.Fatalf("%s: expected %s in %q", tc.fn, tc.missing, found.Message)
		}
	}
}

type allCovered struct{}

func (allCovered) Missing(types.TypeID, []ast.PatternID) []string { return nil }

func TestCustomExhaustivenessChecker(t *testing.T) {
	u := testkit.NewUnit()
	u.Fn("number").Param("n", u.T("int")).
		Body(u.Match(u.Id("n"), u.Arm(u.PLit(u.Int(1))))).Add()
	f := setup(t, u)
	e, _ := f.reg.Lookup("number")
	r := f.rs.Resolve(e, f.an.Analyze(e))
	bag := diag.NewBag(10)
	res := New(u.B, f.cls, Options{Exhaustiveness: allCovered{}}).Validate(r, diag.BagReporter{Bag: bag})
	if res.Errors != 0 || bag.Len() != 0 {
		t.Fatalf("custom checker must replace the default one: %+v", bag.Items())
	}
}
