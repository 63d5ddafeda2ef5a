package testkit

import (
	"bytes"
	"strconv"
	"strings"

	"ownc/internal/ast"
	"ownc/internal/source"
)

// Unit builds a one-file compilation unit for tests. Every node gets a
// distinct two-byte span in a virtual file so diagnostics can be told
// apart by position.
type Unit struct {
	B     *ast.Builder
	Files *source.FileSet
	File  ast.FileID

	pos      uint32
	finished bool
}

func NewUnit() *Unit {
	u := &Unit{
		B:     ast.NewBuilder(ast.Hints{}, nil),
		Files: source.NewFileSet(),
	}
	u.File = u.B.NewFile(source.Span{}, "unit.wj")
	return u
}

func (u *Unit) span() source.Span {
	sp := source.Span{File: 0, Start: u.pos, End: u.pos + 1}
	u.pos += 2
	return sp
}

func (u *Unit) mark() uint32 { return u.pos }

func (u *Unit) since(start uint32) source.Span {
	end := u.pos + 1
	u.pos += 2
	return source.Span{File: 0, Start: start, End: end}
}

func (u *Unit) name(s string) source.StringID { return u.B.Intern(s) }

// Finish registers the virtual file and fixes the file span. Safe to call
// more than once.
func (u *Unit) Finish() *Unit {
	if u.finished {
		return u
	}
	u.finished = true
	content := bytes.Repeat([]byte{' '}, int(u.pos)+1)
	u.Files.AddVirtual("unit.wj", content)
	if f := u.B.Files.Get(u.File); f != nil {
		f.Span = source.Span{File: 0, Start: 0, End: u.pos + 1}
	}
	return u
}

// Types ---------------------------------------------------------------------

func (u *Unit) T(name string, args ...ast.TypeID) ast.TypeID {
	return u.B.Types.NewNamed(u.span(), u.name(name), args...)
}

func (u *Unit) RefT(elem ast.TypeID) ast.TypeID { return u.B.Types.NewRef(u.span(), elem, false) }

func (u *Unit) RefMutT(elem ast.TypeID) ast.TypeID { return u.B.Types.NewRef(u.span(), elem, true) }

func (u *Unit) TupleT(elems ...ast.TypeID) ast.TypeID { return u.B.Types.NewTuple(u.span(), elems...) }

func (u *Unit) SliceT(elem ast.TypeID) ast.TypeID {
	return u.B.Types.NewArray(u.span(), elem, ast.ArrayUnsized)
}

func (u *Unit) ArrayT(elem ast.TypeID, n int64) ast.TypeID {
	return u.B.Types.NewArray(u.span(), elem, n)
}

func (u *Unit) SelfT() ast.TypeID { return u.B.Types.NewSelf(u.span()) }

// Expressions ---------------------------------------------------------------

func (u *Unit) Id(name string) ast.ExprID { return u.B.Exprs.NewIdent(u.span(), u.name(name)) }

func (u *Unit) Int(v int) ast.ExprID {
	return u.B.Exprs.NewLiteral(u.span(), ast.LitInt, u.name(strconv.Itoa(v)))
}

func (u *Unit) Str(s string) ast.ExprID {
	return u.B.Exprs.NewLiteral(u.span(), ast.LitString, u.name(s))
}

func (u *Unit) Bool(v bool) ast.ExprID {
	return u.B.Exprs.NewLiteral(u.span(), ast.LitBool, u.name(strconv.FormatBool(v)))
}

func (u *Unit) UnitLit() ast.ExprID { return u.B.Exprs.NewLiteral(u.span(), ast.LitUnit, source.NoStringID) }

// Path builds `A::b` from "A::b".
func (u *Unit) Path(path string) ast.ExprID {
	parts := strings.Split(path, "::")
	segs := make([]source.StringID, len(parts))
	for i, p := range parts {
		segs[i] = u.name(p)
	}
	return u.B.Exprs.NewPath(u.span(), segs...)
}

// Call calls a named callee: "foo" is an identifier, "Type::f" a path.
func (u *Unit) Call(callee string, args ...ast.ExprID) ast.ExprID {
	var c ast.ExprID
	if strings.Contains(callee, "::") {
		c = u.Path(callee)
	} else {
		c = u.Id(callee)
	}
	return u.B.Exprs.NewCall(u.span(), c, args)
}

func (u *Unit) CallExpr(callee ast.ExprID, args ...ast.ExprID) ast.ExprID {
	return u.B.Exprs.NewCall(u.span(), callee, args)
}

// M is a method call recv.method(args...).
func (u *Unit) M(recv ast.ExprID, method string, args ...ast.ExprID) ast.ExprID {
	return u.B.Exprs.NewMethodCall(u.span(), recv, u.name(method), args)
}

// F is a field access; "a.b.c" style chains are built as F(F(Id(a), b), c).
func (u *Unit) F(obj ast.ExprID, name string) ast.ExprID {
	return u.B.Exprs.NewField(u.span(), obj, u.name(name))
}

// Sel builds a field chain from "o.inner.value".
func (u *Unit) Sel(path string) ast.ExprID {
	parts := strings.Split(path, ".")
	e := u.Id(parts[0])
	for _, p := range parts[1:] {
		e = u.F(e, p)
	}
	return e
}

func (u *Unit) Idx(obj, index ast.ExprID) ast.ExprID { return u.B.Exprs.NewIndex(u.span(), obj, index) }

func (u *Unit) Bin(op ast.ExprBinaryOp, l, r ast.ExprID) ast.ExprID {
	return u.B.Exprs.NewBinary(u.span(), op, l, r)
}

func (u *Unit) Un(op ast.ExprUnaryOp, e ast.ExprID) ast.ExprID {
	return u.B.Exprs.NewUnary(u.span(), op, e)
}

func (u *Unit) FI(name string, value ast.ExprID) ast.FieldInit {
	return ast.FieldInit{Name: u.name(name), Value: value, Span: u.span()}
}

func (u *Unit) StructLit(name string, fields ...ast.FieldInit) ast.ExprID {
	return u.B.Exprs.NewStruct(u.span(), u.name(name), fields)
}

func (u *Unit) TupleE(elems ...ast.ExprID) ast.ExprID { return u.B.Exprs.NewTuple(u.span(), elems) }

func (u *Unit) ArrayE(elems ...ast.ExprID) ast.ExprID { return u.B.Exprs.NewArray(u.span(), elems) }

// Closure with untyped params; a "mut " prefix marks a mutable param.
func (u *Unit) Closure(params []string, body ast.ExprID) ast.ExprID {
	ps := make([]ast.ClosureParam, len(params))
	for i, p := range params {
		name, mut := strings.CutPrefix(p, "mut ")
		ps[i] = ast.ClosureParam{Name: u.name(name), Mutable: mut, Span: u.span()}
	}
	return u.B.Exprs.NewClosure(u.span(), ps, body)
}

func (u *Unit) BlockE(stmts ...ast.StmtID) ast.ExprID {
	return u.B.Exprs.NewBlock(u.span(), u.Block(stmts...))
}

func (u *Unit) Range(start, end ast.ExprID) ast.ExprID {
	return u.B.Exprs.NewRange(u.span(), start, end, false)
}

func (u *Unit) Cast(e ast.ExprID, ty ast.TypeID) ast.ExprID { return u.B.Exprs.NewCast(u.span(), e, ty) }

func (u *Unit) Try(e ast.ExprID) ast.ExprID { return u.B.Exprs.NewTry(u.span(), e) }

// Statements ----------------------------------------------------------------

func (u *Unit) Block(stmts ...ast.StmtID) ast.StmtID {
	start := u.mark()
	return u.B.Stmts.NewBlock(u.since(start), stmts)
}

func (u *Unit) Let(name string, value ast.ExprID) ast.StmtID {
	return u.B.Stmts.NewLet(u.span(), u.PBind(name), ast.NoTypeID, value)
}

func (u *Unit) LetMut(name string, value ast.ExprID) ast.StmtID {
	return u.B.Stmts.NewLet(u.span(), u.PBindMut(name), ast.NoTypeID, value)
}

func (u *Unit) LetT(name string, ty ast.TypeID, value ast.ExprID) ast.StmtID {
	return u.B.Stmts.NewLet(u.span(), u.PBind(name), ty, value)
}

func (u *Unit) LetPat(pat ast.PatternID, value ast.ExprID) ast.StmtID {
	return u.B.Stmts.NewLet(u.span(), pat, ast.NoTypeID, value)
}

func (u *Unit) Assign(target, value ast.ExprID) ast.StmtID {
	return u.B.Stmts.NewAssign(u.span(), ast.AssignPlain, target, value)
}

func (u *Unit) AssignOp(op ast.AssignOp, target, value ast.ExprID) ast.StmtID {
	return u.B.Stmts.NewAssign(u.span(), op, target, value)
}

// E wraps an expression into a statement.
func (u *Unit) E(e ast.ExprID) ast.StmtID { return u.B.Stmts.NewExpr(u.span(), e) }

func (u *Unit) Ret(e ast.ExprID) ast.StmtID { return u.B.Stmts.NewReturn(u.span(), e) }

func (u *Unit) RetVoid() ast.StmtID { return u.B.Stmts.NewReturn(u.span(), ast.NoExprID) }

// If with an optional else (pass ast.NoStmtID).
func (u *Unit) If(cond ast.ExprID, then, els ast.StmtID) ast.StmtID {
	return u.B.Stmts.NewIf(u.span(), cond, then, els)
}

func (u *Unit) Arm(pat ast.PatternID, body ...ast.StmtID) ast.MatchArm {
	return ast.MatchArm{Pattern: pat, Body: u.Block(body...), Span: u.span()}
}

func (u *Unit) ArmIf(pat ast.PatternID, guard ast.ExprID, body ...ast.StmtID) ast.MatchArm {
	return ast.MatchArm{Pattern: pat, Guard: guard, Body: u.Block(body...), Span: u.span()}
}

func (u *Unit) Match(scrutinee ast.ExprID, arms ...ast.MatchArm) ast.StmtID {
	return u.B.Stmts.NewMatch(u.span(), scrutinee, arms)
}

func (u *Unit) For(name string, iterable ast.ExprID, body ...ast.StmtID) ast.StmtID {
	return u.B.Stmts.NewFor(u.span(), u.PBind(name), iterable, u.Block(body...))
}

func (u *Unit) ForPat(pat ast.PatternID, iterable ast.ExprID, body ...ast.StmtID) ast.StmtID {
	return u.B.Stmts.NewFor(u.span(), pat, iterable, u.Block(body...))
}

func (u *Unit) While(cond ast.ExprID, body ...ast.StmtID) ast.StmtID {
	return u.B.Stmts.NewWhile(u.span(), cond, u.Block(body...))
}

func (u *Unit) Loop(body ...ast.StmtID) ast.StmtID {
	return u.B.Stmts.NewLoop(u.span(), u.Block(body...))
}

func (u *Unit) Break() ast.StmtID { return u.B.Stmts.NewBreak(u.span()) }

func (u *Unit) Continue() ast.StmtID { return u.B.Stmts.NewContinue(u.span()) }

// Patterns ------------------------------------------------------------------

func (u *Unit) PBind(name string) ast.PatternID {
	return u.B.Patterns.NewBinding(u.span(), u.name(name), false)
}

func (u *Unit) PBindMut(name string) ast.PatternID {
	return u.B.Patterns.NewBinding(u.span(), u.name(name), true)
}

func (u *Unit) PWild() ast.PatternID { return u.B.Patterns.NewWildcard(u.span()) }

func (u *Unit) PTuple(elems ...ast.PatternID) ast.PatternID {
	return u.B.Patterns.NewTuple(u.span(), elems...)
}

// PVariant matches "Some" or "Shape::Circle" with sub-patterns.
func (u *Unit) PVariant(path string, elems ...ast.PatternID) ast.PatternID {
	parts := strings.Split(path, "::")
	segs := make([]source.StringID, len(parts))
	for i, p := range parts {
		segs[i] = u.name(p)
	}
	return u.B.Patterns.NewVariant(u.span(), segs, elems...)
}

func (u *Unit) PLit(value ast.ExprID) ast.PatternID { return u.B.Patterns.NewLiteral(u.span(), value) }
