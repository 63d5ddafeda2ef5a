package ast

import "ownc/internal/source"

type TypeExprKind uint8

const (
	TypeExprNamed TypeExprKind = iota
	TypeExprRef
	TypeExprTuple
	TypeExprArray
	TypeExprSelf
)

// ArrayUnsized marks a slice element type (no compile-time length).
const ArrayUnsized int64 = -1

// TypeExpr is a written type. Kinds use a subset of fields:
// Named: Name, Args; Ref: Elem, Mutable; Tuple: Args (empty = unit);
// Array: Elem, Len.
type TypeExpr struct {
	Kind    TypeExprKind
	Span    source.Span
	Name    source.StringID
	Args    []TypeID
	Elem    TypeID
	Mutable bool
	Len     int64
}

type TypeExprs struct {
	Arena *Arena[TypeExpr]
}

func NewTypeExprs(capHint uint) *TypeExprs {
	return &TypeExprs{Arena: NewArena[TypeExpr](capHint)}
}

func (t *TypeExprs) Get(id TypeID) *TypeExpr {
	return t.Arena.Get(uint32(id))
}

func (t *TypeExprs) NewNamed(span source.Span, name source.StringID, args ...TypeID) TypeID {
	return TypeID(t.Arena.Allocate(TypeExpr{Kind: TypeExprNamed, Span: span, Name: name, Args: args}))
}

func (t *TypeExprs) NewRef(span source.Span, elem TypeID, mutable bool) TypeID {
	return TypeID(t.Arena.Allocate(TypeExpr{Kind: TypeExprRef, Span: span, Elem: elem, Mutable: mutable}))
}

func (t *TypeExprs) NewTuple(span source.Span, elems ...TypeID) TypeID {
	return TypeID(t.Arena.Allocate(TypeExpr{Kind: TypeExprTuple, Span: span, Args: elems}))
}

func (t *TypeExprs) NewArray(span source.Span, elem TypeID, length int64) TypeID {
	return TypeID(t.Arena.Allocate(TypeExpr{Kind: TypeExprArray, Span: span, Elem: elem, Len: length}))
}

func (t *TypeExprs) NewSelf(span source.Span) TypeID {
	return TypeID(t.Arena.Allocate(TypeExpr{Kind: TypeExprSelf, Span: span}))
}
