package usage

import (
	"ownc/internal/ast"
	"ownc/internal/source"
	"ownc/internal/types"
)

// block walks a block in a new scope. tail is the use of the last
// statement when isTail is set.
func (w *walker) block(id ast.StmtID, tail use, isTail bool) types.TypeID {
	blk, ok := w.b.Stmts.Block(id)
	if !ok {
		return w.stmt(id, tail, isTail)
	}
	w.sc.push()
	defer w.sc.pop()
	ty := w.in.Builtins().Unit
	for i, s := range blk.Stmts {
		last := i == len(blk.Stmts)-1
		ty = w.stmt(s, tail, isTail && last)
	}
	return ty
}

func (w *walker) stmt(id ast.StmtID, tail use, isTail bool) types.TypeID {
	st := w.b.Stmts.Get(id)
	if st == nil {
		return w.in.Builtins().Unknown
	}
	unit := w.in.Builtins().Unit
	switch st.Kind {
	case ast.StmtBlock:
		return w.block(id, tail, isTail)
	case ast.StmtLet:
		w.let(id)
	case ast.StmtAssign:
		w.assign(id)
	case ast.StmtExpr:
		es, _ := w.b.Stmts.Expr(id)
		if isTail {
			return w.expr(es.Expr, tail)
		}
		w.expr(es.Expr, use{ctx: ctxRead})
	case ast.StmtReturn:
		rs, _ := w.b.Stmts.Return(id)
		if rs.Value.IsValid() {
			w.expr(rs.Value, use{ctx: ctxReturn})
		}
		w.step(Step{Kind: StepExit, Exit: ExitReturn, Span: st.Span})
	case ast.StmtIf:
		w.ifStmt(id, tail, isTail)
	case ast.StmtMatch:
		w.match(id, tail, isTail)
	case ast.StmtFor:
		w.forStmt(id)
	case ast.StmtWhile:
		ws, _ := w.b.Stmts.While(id)
		w.loop(st, true, func() {
			w.expr(ws.Cond, use{ctx: ctxRead})
			w.block(ws.Body, use{}, false)
		})
	case ast.StmtLoop:
		ls, _ := w.b.Stmts.Loop(id)
		w.loop(st, false, func() {
			w.block(ls.Body, use{}, false)
		})
	case ast.StmtBreak:
		w.step(Step{Kind: StepExit, Exit: ExitBreak, Span: st.Span})
	case ast.StmtContinue:
		w.step(Step{Kind: StepExit, Exit: ExitContinue, Span: st.Span})
	}
	return unit
}

func (w *walker) let(id ast.StmtID) {
	ls, _ := w.b.Stmts.Let(id)
	var ty types.TypeID
	view := -1
	if ls.Value.IsValid() {
		if site, elem, handled := w.indexLet(ls.Value); handled {
			view, ty = site, elem
		} else {
			ty = w.expr(ls.Value, use{ctx: ctxOwned})
		}
	}
	if ls.Type.IsValid() {
		ty = w.in.Lower(w.b, w.e.Env, ls.Type)
	}
	if ty == types.NoTypeID {
		ty = w.in.Builtins().Unknown
	}
	ids := w.declarePattern(ls.Pattern, ty, BindLet)
	for _, bid := range ids {
		b := w.binding(bid)
		if !ls.Value.IsValid() {
			b.Uninit = true
		}
		if view >= 0 {
			b.View, b.Site = ViewIndex, view
		}
	}
}

// indexLet handles `let x = coll[i]`: a unique element is read through
// a reference instead of being moved. Returns the index site (-1 for a
// copied value element) and whether the initializer was walked.
func (w *walker) indexLet(value ast.ExprID) (int, types.TypeID, bool) {
	if _, ok := w.b.Exprs.Index(value); !ok {
		return -1, types.NoTypeID, false
	}
	p, ok := w.place(value)
	if !ok {
		return -1, types.NoTypeID, false
	}
	if w.a.cls.IsValue(p.ty) {
		w.usePlace(value, p, use{ctx: ctxOwned})
		return -1, p.ty, true
	}
	expr := w.b.Exprs.Get(value)
	site := len(w.res.Indexes)
	w.res.Indexes = append(w.res.Indexes, IndexSite{Expr: value, Span: expr.Span, Root: p.root, Elem: p.ty, Let: true})
	w.record(IndexedElementRead, p.root, value, expr.Span, p.path, use{arg: -1}, site)
	return site, p.ty, true
}

func (w *walker) assign(id ast.StmtID) {
	st := w.b.Stmts.Get(id)
	as, _ := w.b.Stmts.Assign(id)
	p, ok := w.place(as.Target)
	if !ok {
		w.expr(as.Target, use{ctx: ctxRead})
		w.expr(as.Value, use{ctx: ctxOwned})
		return
	}
	target := w.b.Exprs.Get(as.Target)
	if as.Op.IsCompound() {
		w.expr(as.Value, use{ctx: ctxRead})
		if len(p.path) == 0 {
			w.record(Read, p.root, as.Target, target.Span, nil, use{arg: -1}, -1)
			w.record(WholeWrite, p.root, as.Target, st.Span, nil, use{arg: -1}, -1)
			return
		}
		w.record(FieldWrite, p.root, as.Target, st.Span, p.path, use{arg: -1}, -1)
		return
	}
	if len(p.path) == 0 {
		w.expr(as.Value, use{ctx: ctxOwned})
		w.record(WholeWrite, p.root, as.Target, st.Span, nil, use{arg: -1}, -1)
		return
	}
	w.expr(as.Value, use{ctx: ctxStore})
	w.record(FieldWrite, p.root, as.Target, st.Span, p.path, use{arg: -1}, -1)
}

func (w *walker) ifStmt(id ast.StmtID, tail use, isTail bool) {
	st := w.b.Stmts.Get(id)
	is, _ := w.b.Stmts.If(id)
	w.expr(is.Cond, use{ctx: ctxRead})
	br := Step{Kind: StepBranch, Span: st.Span, Complete: is.Else.IsValid()}
	br.Arms = append(br.Arms, w.nested(func() { w.block(is.Then, tail, isTail) }))
	if is.Else.IsValid() {
		br.Arms = append(br.Arms, w.nested(func() { w.block(is.Else, tail, isTail) }))
	}
	w.step(br)
}

func (w *walker) match(id ast.StmtID, tail use, isTail bool) {
	st := w.b.Stmts.Get(id)
	ms, _ := w.b.Stmts.Match(id)
	site := MatchSite{Stmt: id, Span: st.Span, Scrutinee: ms.Scrutinee, Fact: -1, Depth: w.loopDepth}
	idx := len(w.res.Matches)
	if p, ok := w.place(ms.Scrutinee); ok && len(p.path) == 0 {
		site.Root, site.Type = p.root, p.ty
		scrut := w.b.Exprs.Get(ms.Scrutinee)
		site.Fact = w.record(Read, p.root, ms.Scrutinee, scrut.Span, nil, use{arg: -1}, idx)
	} else if ok {
		site.Type = p.ty
		w.usePlace(ms.Scrutinee, p, use{ctx: ctxRead})
	} else {
		site.Type = w.expr(ms.Scrutinee, use{ctx: ctxRead})
	}
	w.res.Matches = append(w.res.Matches, site)

	br := Step{Kind: StepBranch, Span: st.Span, Complete: true}
	var bound []BindingID
	for _, arm := range ms.Arms {
		w.res.Matches[idx].Arms = append(w.res.Matches[idx].Arms, arm.Pattern)
		w.res.Matches[idx].Guarded = append(w.res.Matches[idx].Guarded, arm.Guard.IsValid())
		arm := arm
		steps := w.nested(func() {
			w.sc.push()
			defer w.sc.pop()
			ids := w.declarePattern(arm.Pattern, site.Type, BindMatch)
			for _, bid := range ids {
				b := w.binding(bid)
				b.View, b.Site = ViewMatch, idx
			}
			bound = append(bound, ids...)
			if arm.Guard.IsValid() {
				w.expr(arm.Guard, use{ctx: ctxRead})
			}
			w.block(arm.Body, tail, isTail)
		})
		br.Arms = append(br.Arms, steps)
	}
	w.res.Matches[idx].Bindings = bound
	w.step(br)
	w.res.Matches[idx].endOrder = len(w.res.Facts)
}

func (w *walker) forStmt(id ast.StmtID) {
	st := w.b.Stmts.Get(id)
	fs, _ := w.b.Stmts.For(id)
	idx := len(w.res.Loops)
	site := LoopSite{Stmt: id, Span: st.Span, Fact: -1, Depth: w.loopDepth}
	iterSpan := w.b.Exprs.Get(fs.Iterable).Span
	var iterTy types.TypeID
	switch p, ok := w.place(fs.Iterable); {
	case ok:
		site.Root, iterTy = p.root, p.ty
		site.Field = len(p.path) > 0
		site.Fact = w.record(LoopIterated, p.root, fs.Iterable, iterSpan, p.path, use{arg: -1}, idx)
	default:
		iterTy = w.iterable(fs.Iterable, &site)
	}
	site.ElemType = w.in.IterElem(iterTy)
	w.res.Loops = append(w.res.Loops, site)

	w.loop(st, true, func() {
		w.sc.push()
		defer w.sc.pop()
		ids := w.declarePattern(fs.Pattern, site.ElemType, BindLoop)
		for _, bid := range ids {
			b := w.binding(bid)
			b.View, b.Site = ViewLoop, idx
		}
		w.res.Loops[idx].Bindings = ids
		w.block(fs.Body, use{}, false)
	})
	w.res.Loops[idx].endOrder = len(w.res.Facts)
}

// iterable walks a non-place iterable: `&xs`, `&mut xs`, method chains
// and temporaries.
func (w *walker) iterable(id ast.ExprID, site *LoopSite) types.TypeID {
	if un, ok := w.b.Exprs.Unary(id); ok && (un.Op == ast.UnRef || un.Op == ast.UnRefMut) {
		if p, ok := w.place(un.Operand); ok {
			site.Root = p.root
			site.BorrowOnly = true
			site.Explicit = true
			site.MutRef = un.Op == ast.UnRefMut
			c := ctxBorrow
			if site.MutRef {
				c = ctxMutBorrow
			}
			w.usePlace(un.Operand, p, use{ctx: c, arg: -1})
			return p.ty
		}
	}
	if mc, ok := w.b.Exprs.MethodCall(id); ok {
		switch w.b.Name(mc.Method) {
		case "iter", "keys", "values", "chars", "bytes", "lines", "windows", "chunks":
		case "iter_mut", "values_mut":
			site.MutRef = true
		default:
			site.Owning = true
		}
		return w.expr(id, use{ctx: ctxRead})
	}
	site.Owning = true
	return w.expr(id, use{ctx: ctxOwned})
}

// loop emits a loop step whose body is produced by fn.
func (w *walker) loop(st *ast.Stmt, mayNotRun bool, fn func()) {
	w.loopDepth++
	body := w.nested(fn)
	w.loopDepth--
	w.step(Step{Kind: StepLoop, Body: body, MayNotRun: mayNotRun, Span: st.Span})
}

// declarePattern declares the bindings of pat matched against ty.
func (w *walker) declarePattern(pat ast.PatternID, ty types.TypeID, kind BindingKind) []BindingID {
	p := w.b.Patterns.Get(pat)
	if p == nil {
		return nil
	}
	switch p.Kind {
	case ast.PatBinding:
		return []BindingID{w.declare(w.b.Name(p.Name), kind, ty, p.Mutable, p.Span, pat)}
	case ast.PatTuple:
		var elems []types.TypeID
		if tup, ok := w.in.TupleInfo(w.in.Deref(ty)); ok {
			elems = tup.Elems
		}
		var out []BindingID
		for i, el := range p.Elems {
			et := w.in.Builtins().Unknown
			if i < len(elems) {
				et = elems[i]
			}
			out = append(out, w.declarePattern(el, et, kind)...)
		}
		return out
	case ast.PatVariant:
		payload := w.payload(ty, p.Path)
		var out []BindingID
		for i, el := range p.Elems {
			et := w.in.Builtins().Unknown
			if i < len(payload) {
				et = payload[i]
			}
			out = append(out, w.declarePattern(el, et, kind)...)
		}
		return out
	}
	return nil
}

// payload returns the payload types of a variant pattern against ty.
func (w *walker) payload(ty types.TypeID, path []source.StringID) []types.TypeID {
	if len(path) == 0 {
		return nil
	}
	variant := w.b.Name(path[len(path)-1])
	if out := w.in.PayloadOf(ty, variant); out != nil {
		return out
	}
	base := w.in.Deref(ty)
	d, ok := w.a.decls.Lookup(w.in.NameOf(base))
	if !ok && len(path) > 1 {
		d, ok = w.a.decls.Lookup(w.b.Name(path[0]))
	}
	if !ok {
		d, ok = w.a.decls.EnumOfVariant(variant)
	}
	if !ok {
		return nil
	}
	v, ok := d.Variant(variant)
	if !ok {
		return nil
	}
	out := make([]types.TypeID, len(v.Payload))
	for i, t := range v.Payload {
		out[i] = w.a.decls.Instantiate(w.in, d, base, t)
	}
	return out
}
