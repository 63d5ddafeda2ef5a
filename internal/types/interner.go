package types

import (
	"fmt"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Unknown TypeID
	Unit    TypeID
	Bool    TypeID
	Char    TypeID
	Int     TypeID
	Uint    TypeID
	Float   TypeID
	Str     TypeID
	String  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// It is shared by resolution workers, so every method takes the lock.
type Interner struct {
	mu       sync.RWMutex
	types    []Type
	index    map[typeKey]TypeID
	named    []NamedInfo
	tuples   []TupleInfo
	params   []ParamInfo
	compound map[string]TypeID // named/tuple/param signature -> id
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[typeKey]TypeID, 64),
		compound: make(map[string]TypeID, 64),
		named:    []NamedInfo{{}},
		tuples:   []TupleInfo{{}},
		params:   []ParamInfo{{}},
	}
	in.internRaw(Type{Kind: KindInvalid}) // reserve 0
	in.builtins.Unknown = in.Intern(Type{Kind: KindUnknown})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.Float = in.Intern(MakeFloat(WidthAny))
	in.builtins.Str = in.Intern(Type{Kind: KindStr})
	in.builtins.String = in.Named("String")
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
// Named, tuple and param descriptors must go through their constructors.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[typeKey(t)]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor без проверки map; caller holds the lock.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Kind is a shortcut that yields KindInvalid for unknown ids.
func (in *Interner) Kind(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// Reference interns &elem / &mut elem.
func (in *Interner) Reference(elem TypeID, mutable bool) TypeID {
	return in.Intern(MakeReference(elem, mutable))
}

// Array interns [elem; count]; count == ArrayDynamicLength gives a slice.
func (in *Interner) Array(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// Named interns a nominal type application such as Vec<String>.
func (in *Interner) Named(name string, args ...TypeID) TypeID {
	key := "n:" + name + argsKey(args)
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.compound[key]; ok {
		return id
	}
	slot := appendSlot(&in.named, NamedInfo{Name: name, Args: cloneTypeArgs(args)})
	id := in.internRaw(Type{Kind: KindNamed, Payload: slot})
	in.compound[key] = id
	return id
}

// Tuple interns a tuple; an empty tuple is unit.
func (in *Interner) Tuple(elems ...TypeID) TypeID {
	if len(elems) == 0 {
		return in.builtins.Unit
	}
	key := "t:" + argsKey(elems)
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.compound[key]; ok {
		return id
	}
	slot := appendSlot(&in.tuples, TupleInfo{Elems: cloneTypeArgs(elems)})
	id := in.internRaw(Type{Kind: KindTuple, Payload: slot})
	in.compound[key] = id
	return id
}

// Param interns a generic parameter. Parameters with the same name and
// bounds are the same type.
func (in *Interner) Param(name string, bounds ...string) TypeID {
	bs := append([]string(nil), bounds...)
	key := "p:" + name + ":" + strings.Join(bs, "+")
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.compound[key]; ok {
		return id
	}
	slot := appendSlot(&in.params, ParamInfo{Name: name, Bounds: bs})
	id := in.internRaw(Type{Kind: KindParam, Payload: slot})
	in.compound[key] = id
	return id
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Mutable bool
	Payload uint32
}

func argsKey(args []TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", a)
	}
	b.WriteByte('>')
	return b.String()
}

func appendSlot[T any](table *[]T, info T) uint32 {
	*table = append(*table, info)
	slot, err := safecast.Conv[uint32](len(*table) - 1)
	if err != nil {
		panic(fmt.Errorf("type info overflow: %w", err))
	}
	return slot
}

func cloneTypeArgs(args []TypeID) []TypeID {
	if len(args) == 0 {
		return nil
	}
	return append([]TypeID(nil), args...)
}
