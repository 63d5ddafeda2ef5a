package borrowck

import (
	"fmt"
	"strings"

	"ownc/internal/diag"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/types"
	"ownc/internal/usage"
)

func (c *checker) fact(idx int, cur *state) {
	f := &c.u.Facts[idx]
	b := c.u.Binding(f.Binding)
	if b == nil || !c.tracked(b) {
		return
	}
	path := strings.Join(f.Path, ".")
	switch f.Kind {
	case usage.WholeWrite, usage.FieldWrite:
		// запись в поле перемещённого значения использует его целиком
		if path != "" {
			c.use(idx, f, b, cur, func(m string) bool { return m != path && within(path, m) })
		}
		c.reinit(cur, b.ID, path)
		return
	}
	c.use(idx, f, b, cur, func(m string) bool { return overlaps(m, path) })
	if !c.consumes(f) || c.dupped[idx] {
		return
	}
	if f.Kind == usage.IndexedElementRead || c.view(b) || strings.Contains(path, "[]") || strings.Contains(path, "*") {
		c.moveOutOfBorrow(idx, f, b)
		return
	}
	cur.moves[b.ID] = append(cur.moves[b.ID], move{fact: idx, path: path})
}

// tracked: only unique values of known type can be moved.
func (c *checker) tracked(b *usage.Binding) bool {
	in := c.v.cls.Types()
	if in.Kind(in.Deref(b.Type)) == types.KindUnknown {
		return false
	}
	return !c.v.cls.IsValue(b.Type)
}

func (c *checker) consumes(f *usage.Fact) bool {
	switch f.Kind {
	case usage.LoopIterated:
		return f.Site >= 0 && f.Site < len(c.r.Loops) && c.r.Loops[f.Site].Consumes
	case usage.IndexedElementRead:
		return f.Site >= 0 && f.Site < len(c.u.Indexes) && c.u.Indexes[f.Site].Consumed
	case usage.Read:
		if f.Site >= 0 {
			return f.Site < len(c.r.Matches) && c.r.Matches[f.Site]
		}
	}
	return f.IsConsuming()
}

// view reports bindings that refer to a value owned elsewhere.
func (c *checker) view(b *usage.Binding) bool {
	switch b.Kind {
	case usage.BindParam, usage.BindReceiver:
		return !c.r.Owns(b.ID)
	case usage.BindLoop:
		if b.Site < 0 || b.Site >= len(c.u.Loops) {
			return false
		}
		owning := c.u.Loops[b.Site].Owning
		return !owning && !(b.Site < len(c.r.Loops) && c.r.Loops[b.Site].Consumes)
	case usage.BindMatch:
		if b.Site < 0 || b.Site >= len(c.u.Matches) {
			return false
		}
		site := &c.u.Matches[b.Site]
		if site.Root == usage.NoBindingID {
			return false
		}
		return !(b.Site < len(c.r.Matches) && c.r.Matches[b.Site])
	case usage.BindLet:
		return b.View == usage.ViewIndex
	default:
		return false
	}
}

func (c *checker) reinit(cur *state, id usage.BindingID, path string) {
	ms := cur.moves[id]
	keep := ms[:0]
	for _, m := range ms {
		if !within(m.path, path) {
			keep = append(keep, m)
		}
	}
	if len(keep) == 0 {
		delete(cur.moves, id)
		return
	}
	cur.moves[id] = keep
}

// use checks the fact against outstanding moves selected by hit.
func (c *checker) use(idx int, f *usage.Fact, b *usage.Binding, cur *state, hit func(string) bool) {
	ms := cur.moves[b.ID]
	if len(ms) == 0 {
		return
	}
	var conflicts, keep []move
	for _, m := range ms {
		switch {
		case c.dupped[m.fact]:
		case hit(m.path):
			conflicts = append(conflicts, m)
		default:
			keep = append(keep, m)
		}
	}
	if len(keep) == 0 {
		delete(cur.moves, b.ID)
	} else {
		cur.moves[b.ID] = keep
	}
	if len(conflicts) == 0 {
		return
	}

	dup := !c.v.opts.Strict
	for _, m := range conflicts {
		dup = dup && c.v.cls.Duplicable(c.pathType(b.Type, m.path))
	}
	if dup {
		for _, m := range conflicts {
			c.duplicate(m.fact, b, false, f.Span)
		}
		return
	}
	c.useAfterMove(idx, f, b, conflicts)
}

func (c *checker) moveOutOfBorrow(idx int, f *usage.Fact, b *usage.Binding) {
	ty := c.pathType(b.Type, strings.Join(f.Path, "."))
	if f.Kind == usage.IndexedElementRead && f.Site >= 0 && f.Site < len(c.u.Indexes) {
		ty = c.u.Indexes[f.Site].Elem
	}
	if !c.v.opts.Strict && c.v.cls.Duplicable(ty) {
		c.duplicate(idx, b, true, f.Span)
		return
	}
	if c.reported[idx] {
		return
	}
	c.reported[idx] = true
	c.res.Errors++

	name := placeName(b, f.Path)
	msg := fmt.Sprintf("cannot move out of `%s`, which is borrowed", name)
	if f.Kind == usage.IndexedElementRead {
		msg = fmt.Sprintf("cannot move out of an element of `%s`", b.Name)
	}
	rb := diag.ReportError(c.rep, diag.OwnUseAfterMove, f.Span, msg).
		WithNote(b.Span, fmt.Sprintf("`%s` is a %s", b.Name, c.viewLabel(b)))
	if c.v.cls.Duplicable(ty) {
		rb = rb.WithFix("clone the value", cloneEdit(f.Span))
	} else {
		rb = rb.WithFix("borrow the value instead of moving it")
	}
	rb.Emit()
}

func (c *checker) viewLabel(b *usage.Binding) string {
	switch b.Kind {
	case usage.BindParam, usage.BindReceiver:
		if c.r.Decision(b.ID) == registry.MutBorrowed {
			return "mutably borrowed " + b.Kind.String()
		}
		return "borrowed " + b.Kind.String()
	case usage.BindLet:
		return "view into an indexed element"
	default:
		return "borrowing " + b.Kind.String()
	}
}

// duplicate turns the consuming fact into a copy once.
func (c *checker) duplicate(fact int, b *usage.Binding, outOfBorrow bool, usedAt source.Span) {
	if c.dupped[fact] {
		return
	}
	c.dupped[fact] = true
	mf := &c.u.Facts[fact]
	name := placeName(b, mf.Path)
	c.res.Duplications = append(c.res.Duplications, Duplication{
		Binding:     b.ID,
		Name:        name,
		Fact:        fact,
		Expr:        mf.Expr,
		Span:        mf.Span,
		OutOfBorrow: outOfBorrow,
	})
	if outOfBorrow {
		diag.ReportInfo(c.rep, diag.OwnUseAfterMove, mf.Span,
			fmt.Sprintf("`%s` is borrowed here; a copy is moved instead", name)).
			WithFix("clone explicitly", cloneEdit(mf.Span)).
			Emit()
		return
	}
	diag.ReportInfo(c.rep, diag.OwnUseAfterMove, mf.Span,
		fmt.Sprintf("`%s` is used after this move; a copy is moved instead", name)).
		WithNote(usedAt, "used again here").
		WithFix("clone explicitly", cloneEdit(mf.Span)).
		Emit()
}

func (c *checker) useAfterMove(idx int, f *usage.Fact, b *usage.Binding, moves []move) {
	if c.reported[idx] {
		return
	}
	c.reported[idx] = true
	c.res.Errors++

	maybe := false
	for _, m := range moves {
		maybe = maybe || m.maybe
	}
	name := placeName(b, f.Path)
	msg := fmt.Sprintf("use of moved value `%s`", name)
	if maybe {
		msg = fmt.Sprintf("`%s` may have been moved on some paths", name)
	}
	rb := diag.ReportError(c.rep, diag.OwnUseAfterMove, f.Span, msg)
	for _, m := range moves {
		rb = rb.WithNote(c.u.Facts[m.fact].Span, "value moved here")
	}
	if c.v.opts.Strict && c.v.cls.Duplicable(b.Type) {
		rb = rb.WithFix(fmt.Sprintf("clone `%s` before the move", b.Name))
	} else {
		rb = rb.WithFix(fmt.Sprintf("borrow `%s` instead of moving it", b.Name))
	}
	rb.Emit()
}

// pathType follows a dotted path from the binding type.
func (c *checker) pathType(ty types.TypeID, path string) types.TypeID {
	if path == "" {
		return ty
	}
	in := c.v.cls.Types()
	for _, seg := range strings.Split(path, ".") {
		switch seg {
		case "[]":
			ty = in.IndexElem(ty)
		case "*":
			ty = in.Deref(ty)
		default:
			ty = c.v.cls.Decls().FieldType(in, ty, seg)
		}
	}
	return ty
}

func placeName(b *usage.Binding, path []string) string {
	var sb strings.Builder
	sb.WriteString(b.Name)
	for _, seg := range path {
		switch seg {
		case "[]":
			sb.WriteString("[..]")
		case "*":
		default:
			sb.WriteByte('.')
			sb.WriteString(seg)
		}
	}
	return sb.String()
}

func cloneEdit(sp source.Span) diag.FixEdit {
	return diag.FixEdit{
		Span:    source.Span{File: sp.File, Start: sp.End, End: sp.End},
		NewText: ".clone()",
	}
}
