package testkit

import (
	"ownc/internal/ast"
	"ownc/internal/source"
)

// FnBuilder collects a function declaration.
type FnBuilder struct {
	u     *Unit
	start uint32
	fn    ast.FnItem
}

func (u *Unit) Fn(name string) *FnBuilder {
	return &FnBuilder{u: u, start: u.mark(), fn: ast.FnItem{Name: u.name(name)}}
}

func (f *FnBuilder) Generic(name string, bounds ...string) *FnBuilder {
	g := ast.GenericParam{Name: f.u.name(name), Span: f.u.span()}
	for _, b := range bounds {
		g.Bounds = append(g.Bounds, f.u.name(b))
	}
	f.fn.Generics = append(f.fn.Generics, g)
	return f
}

// Self sets the receiver marker.
func (f *FnBuilder) Self(kind ast.ReceiverKind) *FnBuilder {
	f.fn.Receiver = kind
	f.fn.ReceiverSpan = f.u.span()
	return f
}

// SelfMut is `mut self`.
func (f *FnBuilder) SelfMut(kind ast.ReceiverKind) *FnBuilder {
	f.Self(kind)
	f.fn.ReceiverMut = true
	return f
}

func (f *FnBuilder) Param(name string, ty ast.TypeID) *FnBuilder {
	return f.param(name, ty, false, ast.HintInferred)
}

func (f *FnBuilder) ParamMut(name string, ty ast.TypeID) *FnBuilder {
	return f.param(name, ty, true, ast.HintInferred)
}

func (f *FnBuilder) ParamHint(name string, ty ast.TypeID, hint ast.OwnershipHint) *FnBuilder {
	return f.param(name, ty, false, hint)
}

func (f *FnBuilder) param(name string, ty ast.TypeID, mutable bool, hint ast.OwnershipHint) *FnBuilder {
	f.fn.Params = append(f.fn.Params, ast.FnParam{
		Name:    f.u.name(name),
		Type:    ty,
		Mutable: mutable,
		Hint:    hint,
		Span:    f.u.span(),
	})
	return f
}

func (f *FnBuilder) Returns(ty ast.TypeID) *FnBuilder {
	f.fn.ReturnType = ty
	return f
}

func (f *FnBuilder) Body(stmts ...ast.StmtID) *FnBuilder {
	f.fn.Body = f.u.Block(stmts...)
	return f
}

// Build allocates the function without adding it to the file (trait and
// impl methods).
func (f *FnBuilder) Build() ast.ItemID {
	f.fn.Span = f.u.since(f.start)
	return f.u.B.Items.NewFn(f.fn)
}

// Add allocates the function as a top-level item.
func (f *FnBuilder) Add() ast.ItemID {
	id := f.Build()
	f.u.B.PushItem(f.u.File, id)
	return id
}

// TypeBuilder collects a struct or enum.
type TypeBuilder struct {
	u        *Unit
	start    uint32
	name     source.StringID
	enum     bool
	generics []ast.GenericParam
	fields   []ast.FieldDecl
	variants []ast.Variant
	derives  []source.StringID
}

func (u *Unit) Struct(name string) *TypeBuilder {
	return &TypeBuilder{u: u, start: u.mark(), name: u.name(name)}
}

func (u *Unit) Enum(name string) *TypeBuilder {
	return &TypeBuilder{u: u, start: u.mark(), name: u.name(name), enum: true}
}

func (t *TypeBuilder) Generic(name string, bounds ...string) *TypeBuilder {
	g := ast.GenericParam{Name: t.u.name(name), Span: t.u.span()}
	for _, b := range bounds {
		g.Bounds = append(g.Bounds, t.u.name(b))
	}
	t.generics = append(t.generics, g)
	return t
}

func (t *TypeBuilder) Field(name string, ty ast.TypeID) *TypeBuilder {
	t.fields = append(t.fields, ast.FieldDecl{Name: t.u.name(name), Type: ty, Span: t.u.span()})
	return t
}

func (t *TypeBuilder) Variant(name string, payload ...ast.TypeID) *TypeBuilder {
	t.variants = append(t.variants, ast.Variant{Name: t.u.name(name), Payload: payload, Span: t.u.span()})
	return t
}

func (t *TypeBuilder) Derive(names ...string) *TypeBuilder {
	for _, n := range names {
		t.derives = append(t.derives, t.u.name(n))
	}
	return t
}

func (t *TypeBuilder) Add() ast.ItemID {
	sp := t.u.since(t.start)
	var id ast.ItemID
	if t.enum {
		id = t.u.B.Items.NewEnum(ast.EnumItem{Name: t.name, Generics: t.generics, Variants: t.variants, Derives: t.derives, Span: sp})
	} else {
		id = t.u.B.Items.NewStruct(ast.StructItem{Name: t.name, Generics: t.generics, Fields: t.fields, Derives: t.derives, Span: sp})
	}
	t.u.B.PushItem(t.u.File, id)
	return id
}

// Trait adds a trait with already built method declarations.
func (u *Unit) Trait(name string, methods ...ast.ItemID) ast.ItemID {
	id := u.B.Items.NewTrait(ast.TraitItem{Name: u.name(name), Methods: methods, Span: u.spanOver(methods)})
	u.B.PushItem(u.File, id)
	return id
}

// Impl adds `impl trait for self`; trait == "" is an inherent impl.
func (u *Unit) Impl(self ast.TypeID, trait string, methods ...ast.ItemID) ast.ItemID {
	var traitName source.StringID
	if trait != "" {
		traitName = u.name(trait)
	}
	id := u.B.Items.NewImpl(ast.ImplItem{Self: self, Trait: traitName, Methods: methods, Span: u.spanOver(methods)})
	u.B.PushItem(u.File, id)
	return id
}

// spanOver covers the spans of methods and a fresh trailing span.
func (u *Unit) spanOver(methods []ast.ItemID) source.Span {
	sp := u.span()
	for _, m := range methods {
		if it := u.B.Items.Get(m); it != nil {
			sp = it.Span.Cover(sp)
		}
	}
	return sp
}
