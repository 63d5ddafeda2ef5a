package usage

import (
	"fmt"

	"fortio.org/safecast"

	"ownc/internal/ast"
	"ownc/internal/registry"
	"ownc/internal/types"
)

// place is a binding, field chain, index or dereference rooted at a
// binding.
type place struct {
	root  BindingID
	path  []string
	ty    types.TypeID
	index bool
}

// place resolves id to a place. Index operands are walked as reads; a
// failed resolution records nothing.
func (w *walker) place(id ast.ExprID) (place, bool) {
	ex := w.b.Exprs.Get(id)
	if ex == nil {
		return place{}, false
	}
	switch ex.Kind {
	case ast.ExprIdent:
		data, _ := w.b.Exprs.Ident(id)
		bid, ok := w.sc.lookup(w.b.Name(data.Name))
		if !ok {
			return place{}, false
		}
		return place{root: bid, ty: w.binding(bid).Type}, true
	case ast.ExprField:
		data, _ := w.b.Exprs.Field(id)
		p, ok := w.place(data.Object)
		if !ok {
			return place{}, false
		}
		name := w.b.Name(data.Name)
		p.path = append(append([]string(nil), p.path...), name)
		p.ty = w.a.decls.FieldType(w.in, p.ty, name)
		return p, true
	case ast.ExprIndex:
		data, _ := w.b.Exprs.Index(id)
		p, ok := w.place(data.Object)
		if !ok {
			return place{}, false
		}
		w.expr(data.Index, use{ctx: ctxRead})
		p.path = append(append([]string(nil), p.path...), "[]")
		p.ty = w.in.IndexElem(p.ty)
		p.index = true
		return p, true
	case ast.ExprUnary:
		data, _ := w.b.Exprs.Unary(id)
		if data.Op != ast.UnDeref {
			return place{}, false
		}
		p, ok := w.place(data.Operand)
		if !ok {
			return place{}, false
		}
		p.path = append(append([]string(nil), p.path...), "*")
		p.ty = w.in.Deref(p.ty)
		return p, true
	}
	return place{}, false
}

// usePlace records the fact for a place used in u.
func (w *walker) usePlace(id ast.ExprID, p place, u use) {
	sp := w.b.Exprs.Get(id).Span
	if len(p.path) > 0 && u.ctx.consumes() && w.a.cls.IsValue(p.ty) {
		w.record(FieldRead, p.root, id, sp, p.path, u, -1)
		return
	}
	if p.index && u.ctx.consumes() {
		site := len(w.res.Indexes)
		w.res.Indexes = append(w.res.Indexes, IndexSite{Expr: id, Span: sp, Root: p.root, Elem: p.ty, Consumed: true})
		w.record(IndexedElementRead, p.root, id, sp, p.path, u, site)
		return
	}
	var kind FactKind
	switch u.ctx {
	case ctxRead:
		kind = Read
		if len(p.path) > 0 {
			kind = FieldRead
		}
	case ctxBorrow:
		kind = PassedBorrowed
	case ctxMutBorrow:
		kind = PassedMutBorrowed
	case ctxOwned:
		kind = PassedOwned
	case ctxStore:
		kind = StoredInContainer
	case ctxReturn:
		kind = ReturnedDirectly
	case ctxReturnWrapped:
		kind = ReturnedViaWrapper
	}
	w.record(kind, p.root, id, sp, p.path, u, -1)
}

// expr walks an expression used in u and returns its type.
func (w *walker) expr(id ast.ExprID, u use) types.TypeID {
	bt := w.in.Builtins()
	ex := w.b.Exprs.Get(id)
	if ex == nil {
		return bt.Unknown
	}
	switch ex.Kind {
	case ast.ExprIdent, ast.ExprField, ast.ExprIndex:
		if p, ok := w.place(id); ok {
			w.usePlace(id, p, u)
			return p.ty
		}
		if ex.Kind == ast.ExprIdent {
			data, _ := w.b.Exprs.Ident(id)
			return w.constant(w.b.Name(data.Name), "")
		}
		return w.opaque(id)
	case ast.ExprLit:
		data, _ := w.b.Exprs.Literal(id)
		switch data.Kind {
		case ast.LitInt:
			return bt.Int
		case ast.LitFloat:
			return bt.Float
		case ast.LitString:
			return w.in.Reference(bt.Str, false)
		case ast.LitBool:
			return bt.Bool
		case ast.LitChar:
			return bt.Char
		default:
			return bt.Unit
		}
	case ast.ExprPath:
		data, _ := w.b.Exprs.Path(id)
		if len(data.Segments) == 2 {
			return w.constant(w.b.Name(data.Segments[1]), w.owner(w.b.Name(data.Segments[0])))
		}
		return bt.Unknown
	case ast.ExprCall:
		return w.call(id, u)
	case ast.ExprMethodCall:
		return w.methodCall(id, u)
	case ast.ExprBinary:
		data, _ := w.b.Exprs.Binary(id)
		left := w.expr(data.Left, w.operand(data.Op, data.Left))
		w.expr(data.Right, use{ctx: ctxRead})
		switch data.Op {
		case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe, ast.BinAnd, ast.BinOr:
			return bt.Bool
		}
		return w.in.Deref(left)
	case ast.ExprUnary:
		data, _ := w.b.Exprs.Unary(id)
		switch data.Op {
		case ast.UnRef:
			inner := w.expr(data.Operand, use{ctx: ctxBorrow, callee: u.callee, arg: u.arg})
			return w.in.Reference(inner, false)
		case ast.UnRefMut:
			inner := w.expr(data.Operand, use{ctx: ctxMutBorrow, callee: u.callee, arg: u.arg})
			return w.in.Reference(inner, true)
		case ast.UnDeref:
			if p, ok := w.place(id); ok {
				w.usePlace(id, p, u)
				return p.ty
			}
			return w.in.Deref(w.expr(data.Operand, use{ctx: ctxRead}))
		}
		return w.expr(data.Operand, use{ctx: ctxRead})
	case ast.ExprStruct:
		data, _ := w.b.Exprs.Struct(id)
		for _, f := range data.Fields {
			w.expr(f.Value, use{ctx: u.ctx.wrapped()})
		}
		return w.in.Named(w.owner(w.b.Name(data.Name)))
	case ast.ExprTuple:
		data, _ := w.b.Exprs.Tuple(id)
		elems := make([]types.TypeID, len(data.Elems))
		for i, el := range data.Elems {
			elems[i] = w.expr(el, use{ctx: u.ctx.wrapped()})
		}
		return w.in.Tuple(elems...)
	case ast.ExprArray:
		data, _ := w.b.Exprs.Array(id)
		elem := bt.Unknown
		for i, el := range data.Elems {
			t := w.expr(el, use{ctx: u.ctx.wrapped()})
			if i == 0 {
				elem = t
			}
		}
		n, err := safecast.Conv[uint32](len(data.Elems))
		if err != nil {
			panic(fmt.Errorf("array literal overflow: %w", err))
		}
		return w.in.Array(elem, n)
	case ast.ExprClosure:
		w.closureExpr(id, u)
		return bt.Unknown
	case ast.ExprBlock:
		data, _ := w.b.Exprs.Block(id)
		return w.block(data.Block, u, true)
	case ast.ExprRange:
		data, _ := w.b.Exprs.Range(id)
		elem := bt.Int
		if data.Start.IsValid() {
			elem = w.expr(data.Start, use{ctx: ctxRead})
		}
		if data.End.IsValid() {
			w.expr(data.End, use{ctx: ctxRead})
		}
		return w.in.Named("Range", elem)
	case ast.ExprCast:
		data, _ := w.b.Exprs.Cast(id)
		w.expr(data.Value, use{ctx: ctxRead})
		return w.in.Lower(w.b, w.e.Env, data.Type)
	case ast.ExprTry:
		data, _ := w.b.Exprs.Try(id)
		c := u.ctx
		if c.inReturn() {
			c = ctxOwned
		}
		inner := w.expr(data.Value, use{ctx: c, callee: u.callee, arg: u.arg})
		return w.unwrapped(inner)
	}
	return bt.Unknown
}

// opaque walks a field or index over a non-place object (call result).
func (w *walker) opaque(id ast.ExprID) types.TypeID {
	if data, ok := w.b.Exprs.Field(id); ok {
		obj := w.expr(data.Object, use{ctx: ctxRead})
		return w.a.decls.FieldType(w.in, obj, w.b.Name(data.Name))
	}
	if data, ok := w.b.Exprs.Index(id); ok {
		obj := w.expr(data.Object, use{ctx: ctxRead})
		w.expr(data.Index, use{ctx: ctxRead})
		return w.in.IndexElem(obj)
	}
	return w.in.Builtins().Unknown
}

// constant types a unit variant or other free name.
func (w *walker) constant(name, owner string) types.TypeID {
	if name == "None" && (owner == "" || owner == "Option") {
		return w.in.Named("Option", w.in.Builtins().Unknown)
	}
	if owner != "" {
		if d, ok := w.a.decls.Lookup(owner); ok && d.Enum {
			return w.in.Named(d.Name)
		}
		return w.in.Builtins().Unknown
	}
	if d, ok := w.a.decls.EnumOfVariant(name); ok {
		return w.in.Named(d.Name)
	}
	return w.in.Builtins().Unknown
}

// owner maps `Self` to the impl type name.
func (w *walker) owner(name string) string {
	if name == "Self" && w.e.Owner != "" {
		return w.e.Owner
	}
	return name
}

// unwrapped is the success payload of Option or Result.
func (w *walker) unwrapped(ty types.TypeID) types.TypeID {
	if out := w.in.PayloadOf(ty, "Some"); len(out) == 1 {
		return out[0]
	}
	if out := w.in.PayloadOf(ty, "Ok"); len(out) == 1 {
		return out[0]
	}
	return w.in.Builtins().Unknown
}

// operand is the use of the left operand of a binary operator. Operator
// traits take self by value, so arithmetic on a unique binding moves it
// (`s + "x"` consumes s).
func (w *walker) operand(op ast.ExprBinaryOp, left ast.ExprID) use {
	switch op {
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe, ast.BinAnd, ast.BinOr:
		return use{ctx: ctxRead}
	}
	if ex := w.b.Exprs.Get(left); ex == nil || ex.Kind != ast.ExprIdent {
		return use{ctx: ctxRead}
	}
	p, ok := w.place(left)
	if !ok {
		return use{ctx: ctxRead}
	}
	if w.in.Kind(w.in.Deref(p.ty)) == types.KindUnknown || w.a.cls.IsValue(p.ty) {
		return use{ctx: ctxRead}
	}
	return use{ctx: ctxOwned}
}

func (w *walker) closureExpr(id ast.ExprID, u use) {
	data, _ := w.b.Exprs.Closure(id)
	sp := w.b.Exprs.Get(id).Span
	savedReturn := w.captureReturn
	w.closure++
	depth := w.closure
	w.captureReturn = u.ctx.inReturn()
	body := w.nested(func() {
		w.sc.push()
		defer w.sc.pop()
		for _, p := range data.Params {
			ty := w.in.Builtins().Unknown
			if p.Type.IsValid() {
				ty = w.in.Lower(w.b, w.e.Env, p.Type)
			}
			w.declare(w.b.Name(p.Name), BindClosureParam, ty, p.Mutable, p.Span, ast.NoPatternID)
		}
		w.expr(data.Body, use{ctx: ctxRead})
	})
	w.closure--
	w.captureReturn = savedReturn
	// захваченные по значению переменные уходят в момент создания
	for _, st := range w.captures[depth] {
		w.step(st)
	}
	delete(w.captures, depth)
	// the body may run any number of times, exits leave only the closure
	w.step(Step{Kind: StepBranch, Arms: [][]Step{body}, Span: sp})
}

// args walks call arguments with the effects of entry (nil: every
// argument gets eff).
func (w *walker) args(args []ast.ExprID, entry *registry.Entry, eff registry.Decision, offset int) {
	for i, arg := range args {
		d := eff
		var callee registry.FuncID
		if entry != nil {
			d = entry.ArgEffect(i + offset)
			callee = entry.ID
		}
		w.expr(arg, use{ctx: effectCtx(d), callee: callee, arg: i + offset})
	}
}

func effectCtx(d registry.Decision) ctx {
	switch d {
	case registry.Owned:
		return ctxOwned
	case registry.MutBorrowed:
		return ctxMutBorrow
	default:
		return ctxBorrow
	}
}
