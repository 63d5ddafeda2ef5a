package registry

import (
	"fmt"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/typeclass"
	"ownc/internal/types"
)

// Options tune registration of signatures without bodies.
type Options struct {
	// Consuming lists extern callees whose arguments are taken by value.
	Consuming map[string]bool
}

type collector struct {
	b     *ast.Builder
	in    *types.Interner
	decls *typeclass.Table
	opts  Options
	reg   *Builder
}

// Collect runs the registration pass over a whole unit and freezes the
// result. Trait cross-check findings go to rep.
func Collect(b *ast.Builder, in *types.Interner, decls *typeclass.Table, opts Options, rep diag.Reporter) (*Registry, error) {
	c := &collector{b: b, in: in, decls: decls, opts: opts, reg: NewBuilder()}
	items := b.AllItems()

	for _, id := range items {
		item := b.Items.Get(id)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			fn, _ := b.Items.Fn(id)
			env := types.NewEnv(in, b, types.NoTypeID, fn.Generics)
			e := c.entry(id, fn, FuncID(b.Name(fn.Name)), "", "", env, types.NoTypeID)
			if err := c.reg.Register(e); err != nil {
				return nil, fmt.Errorf("register %s: %w", e.ID, err)
			}
		case ast.ItemTrait:
			if err := c.trait(id); err != nil {
				return nil, err
			}
		}
	}

	// impls after traits: pins must be known
	for _, id := range items {
		im, ok := b.Items.Impl(id)
		if !ok {
			continue
		}
		if err := c.impl(im, rep); err != nil {
			return nil, err
		}
	}
	return c.reg.Freeze(), nil
}

func (c *collector) trait(id ast.ItemID) error {
	tr, _ := c.b.Items.Trait(id)
	name := c.b.Name(tr.Name)
	self := c.in.Param("Self", name)
	base := types.NewEnv(c.in, c.b, self, nil)
	out := &Trait{Name: name, Methods: make(map[string]*Entry, len(tr.Methods)), Span: tr.Span}
	for _, mid := range tr.Methods {
		fn, ok := c.b.Items.Fn(mid)
		if !ok {
			continue
		}
		mname := c.b.Name(fn.Name)
		e := c.entry(mid, fn, MethodID(name, mname), name, name, base.Child(c.in, c.b, fn.Generics), self)
		e.IsDecl = true
		pin(&e.Receiver)
		for i := range e.Params {
			pin(&e.Params[i])
		}
		if _, dup := out.Methods[mname]; dup {
			continue
		}
		out.Methods[mname] = e
		out.Order = append(out.Order, mname)
	}
	if err := c.reg.RegisterTrait(out); err != nil {
		return fmt.Errorf("register trait %s: %w", name, err)
	}
	return nil
}

// pin fixes a trait slot; an inferred marker means Borrowed.
func pin(s *Slot) {
	if s.Decision == Unresolved {
		s.Decision = Borrowed
	}
	s.Fixed = true
	s.Pinned = true
}

func (c *collector) impl(im *ast.ImplItem, rep diag.Reporter) error {
	env := types.NewEnv(c.in, c.b, types.NoTypeID, im.Generics)
	self := c.in.Lower(c.b, env, im.Self)
	env.Self = self
	selfName := c.in.Label(self)
	if name := c.in.NameOf(self); name != "" {
		selfName = name
	}
	trait := ""
	if im.IsTraitImpl() {
		trait = c.b.Name(im.Trait)
	}
	decl := ImplDecl{SelfName: selfName, Trait: trait, Span: im.Span}
	for _, mid := range im.Methods {
		fn, ok := c.b.Items.Fn(mid)
		if !ok {
			continue
		}
		mname := c.b.Name(fn.Name)
		decl.Methods = append(decl.Methods, c.entry(mid, fn, MethodID(selfName, mname), selfName, trait, env.Child(c.in, c.b, fn.Generics), self))
	}
	if err := c.reg.RegisterImpl(decl, rep); err != nil {
		return fmt.Errorf("register impl %s: %w", selfName, err)
	}
	return nil
}

func (c *collector) entry(id ast.ItemID, fn *ast.FnItem, fid FuncID, owner, trait string, env *types.Env, self types.TypeID) *Entry {
	e := &Entry{
		ID:       fid,
		Name:     c.b.Name(fn.Name),
		Owner:    owner,
		Trait:    trait,
		Item:     id,
		Env:      env,
		SelfType: self,
		HasBody:  fn.HasBody(),
		Span:     fn.Span,
	}
	extern := !fn.HasBody() && fn.Owner.Kind == ast.ItemFn
	if fn.Receiver != ast.ReceiverNone {
		e.HasReceiver = true
		e.Receiver = Slot{
			Name:     "self",
			Type:     self,
			Decision: FromReceiver(fn.Receiver),
			Fixed:    fn.Receiver != ast.ReceiverInferred,
			Mutable:  fn.ReceiverMut,
			Span:     fn.ReceiverSpan,
		}
	}
	for _, p := range fn.Params {
		ty := c.in.Lower(c.b, env, p.Type)
		slot := Slot{
			Name:     c.b.Name(p.Name),
			Type:     ty,
			Decision: FromHint(p.Hint),
			Fixed:    p.Hint != ast.HintInferred,
			Mutable:  p.Mutable,
			Span:     p.Span,
		}
		if tt, ok := c.in.Lookup(ty); ok && tt.Kind == types.KindReference {
			slot.Ref = Borrowed
			if tt.Mutable {
				slot.Ref = MutBorrowed
			}
		}
		if extern && slot.Decision == Unresolved {
			slot.Decision = Borrowed
			if c.opts.Consuming[e.Name] {
				slot.Decision = Owned
			}
			slot.Fixed = true
		}
		e.Params = append(e.Params, slot)
	}
	e.ReturnType = c.in.Lower(c.b, env, fn.ReturnType)
	e.Return, e.WrapIndex = c.returnClass(fn, e.ReturnType)
	return e
}

// returnClass: unit return is Void; a body `Variant(param)` over the sole
// parameter is WrapsArgument.
func (c *collector) returnClass(fn *ast.FnItem, ret types.TypeID) (ReturnClass, int) {
	if ret == c.in.Builtins().Unit {
		return Void, 0
	}
	if len(fn.Params) != 1 || fn.Receiver != ast.ReceiverNone || !fn.HasBody() {
		return ValueReturning, 0
	}
	block, ok := c.b.Stmts.Block(fn.Body)
	if !ok || len(block.Stmts) != 1 {
		return ValueReturning, 0
	}
	var value ast.ExprID
	if es, ok := c.b.Stmts.Expr(block.Stmts[0]); ok {
		value = es.Expr
	} else if rs, ok := c.b.Stmts.Return(block.Stmts[0]); ok {
		value = rs.Value
	}
	call, ok := c.b.Exprs.Call(value)
	if !ok || len(call.Args) != 1 || !IsWrapperConstructor(c.b, c.decls, call.Callee) {
		return ValueReturning, 0
	}
	arg, ok := c.b.Exprs.Ident(call.Args[0])
	if !ok || arg.Name != fn.Params[0].Name {
		return ValueReturning, 0
	}
	return WrapsArgument, 0
}

// IsWrapperConstructor reports whether callee names a single-payload sum
// type constructor: Some, Ok, Err or a one-field variant of a unit enum.
func IsWrapperConstructor(b *ast.Builder, decls *typeclass.Table, callee ast.ExprID) bool {
	var enumName, variant string
	if id, ok := b.Exprs.Ident(callee); ok {
		variant = b.Name(id.Name)
	} else if p, ok := b.Exprs.Path(callee); ok && len(p.Segments) == 2 {
		enumName, variant = b.Name(p.Segments[0]), b.Name(p.Segments[1])
	} else {
		return false
	}
	switch variant {
	case "Some", "Ok", "Err":
		if enumName == "" || enumName == "Option" || enumName == "Result" {
			return true
		}
	}
	var d *typeclass.Decl
	var found bool
	if enumName == "" {
		d, found = decls.EnumOfVariant(variant)
	} else {
		d, found = decls.Lookup(enumName)
	}
	if !found || !d.Enum {
		return false
	}
	v, ok := d.Variant(variant)
	return ok && len(v.Payload) == 1
}
