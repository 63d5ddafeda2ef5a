package registry

import (
	"ownc/internal/ast"
	"ownc/internal/source"
	"ownc/internal/types"
)

// FuncID identifies a function: "name", "Type::name" or "Trait::name".
type FuncID string

func MethodID(owner, name string) FuncID {
	return FuncID(owner + "::" + name)
}

// ReturnClass is the structural return classification of a function.
type ReturnClass uint8

const (
	ValueReturning ReturnClass = iota
	Void
	WrapsArgument
)

func (c ReturnClass) String() string {
	switch c {
	case Void:
		return "Void"
	case WrapsArgument:
		return "WrapsArgument"
	default:
		return "ValueReturning"
	}
}

// Slot is one ownership slot of a signature: a parameter or the receiver.
type Slot struct {
	Name     string
	Type     types.TypeID
	Decision Decision
	// Fixed slots are never changed by resolution (explicit marker, trait
	// pin or extern signature).
	Fixed   bool
	Pinned  bool // fixed by a trait declaration
	Mutable bool // declared `mut`
	// Ref is Borrowed/MutBorrowed when the declared type is itself &T/&mut T.
	Ref  Decision
	Span source.Span
}

// Effect is what passing an argument into this slot does to the
// caller's binding.
func (s *Slot) Effect() Decision {
	if s.Ref != Unresolved {
		return s.Ref
	}
	if s.Decision == Unresolved {
		return Borrowed
	}
	return s.Decision
}

// Entry is the registry metadata of one function or trait method.
type Entry struct {
	ID     FuncID
	Name   string
	Owner  string // impl self type name or trait name; "" for free functions
	Trait  string // trait implemented by the owning impl, or declaring trait
	IsDecl bool   // trait method declaration (possibly with default body)

	Item     ast.ItemID
	Env      *types.Env
	SelfType types.TypeID

	HasReceiver bool
	Receiver    Slot
	Params      []Slot

	ReturnType types.TypeID
	Return     ReturnClass
	WrapIndex  int // argument carried through for WrapsArgument

	HasBody bool
	Span    source.Span
}

// ArgEffect returns the effect of argument i on the caller's binding;
// out of range (variadic externs) is Borrowed.
func (e *Entry) ArgEffect(i int) Decision {
	if e == nil || i < 0 || i >= len(e.Params) {
		return Borrowed
	}
	return e.Params[i].Effect()
}

// ReceiverEffect returns the effect of a method call on its receiver.
func (e *Entry) ReceiverEffect() Decision {
	if e == nil || !e.HasReceiver {
		return Borrowed
	}
	return e.Receiver.Effect()
}

// Signature is the externally visible part of an entry.
type Signature struct {
	Receiver Decision
	Params   []Decision
}

func (e *Entry) Signature() Signature {
	sig := Signature{Params: make([]Decision, len(e.Params))}
	if e.HasReceiver {
		sig.Receiver = e.Receiver.Decision
	}
	for i := range e.Params {
		sig.Params[i] = e.Params[i].Decision
	}
	return sig
}

func (s Signature) Equal(o Signature) bool {
	if s.Receiver != o.Receiver || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

func (e *Entry) clone() *Entry {
	cp := *e
	cp.Params = append([]Slot(nil), e.Params...)
	return &cp
}

// Trait holds declared trait methods with their pinned modes.
type Trait struct {
	Name    string
	Methods map[string]*Entry
	Order   []string
	Span    source.Span
}
