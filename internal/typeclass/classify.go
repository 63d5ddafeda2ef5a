package typeclass

import (
	"sync"

	"ownc/internal/types"
)

// Class tells whether a type is duplicated by copying or moved.
type Class uint8

const (
	Value Class = iota
	Unique
)

func (c Class) String() string {
	if c == Value {
		return "value"
	}
	return "unique"
}

// heapOwning are unique-by-construction library types.
var heapOwning = map[string]bool{
	"String":   true,
	"Vec":      true,
	"Box":      true,
	"HashMap":  true,
	"HashSet":  true,
	"BTreeMap": true,
	"BTreeSet": true,
	"VecDeque": true,
	"Rc":       true,
	"Arc":      true,
	"RefCell":  true,
	"Mutex":    true,
}

// cloneable library types whose clone needs every argument cloneable.
var cloneContainers = map[string]bool{
	"Vec":      true,
	"Box":      true,
	"HashMap":  true,
	"HashSet":  true,
	"BTreeMap": true,
	"BTreeSet": true,
	"VecDeque": true,
	"Option":   true,
	"Result":   true,
	"RefCell":  true,
}

// maxDepth bounds expansion of polymorphically recursive declarations.
const maxDepth = 128

// Classifier memoizes Classify and Duplicable. Safe for concurrent use.
type Classifier struct {
	types *types.Interner
	decls *Table

	mu      sync.Mutex
	classes map[types.TypeID]Class
	dups    map[types.TypeID]bool
}

func New(in *types.Interner, decls *Table) *Classifier {
	if decls == nil {
		decls = NewTable()
	}
	return &Classifier{
		types:   in,
		decls:   decls,
		classes: make(map[types.TypeID]Class, 64),
		dups:    make(map[types.TypeID]bool, 32),
	}
}

func (c *Classifier) Types() *types.Interner { return c.types }

func (c *Classifier) Decls() *Table { return c.decls }

// Classify returns Value or Unique for id. Deterministic for a given table.
func (c *Classifier) Classify(id types.TypeID) Class {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classify(id, make(map[types.TypeID]bool))
}

// IsValue is Classify(id) == Value.
func (c *Classifier) IsValue(id types.TypeID) bool {
	return c.Classify(id) == Value
}

func (c *Classifier) classify(id types.TypeID, visiting map[types.TypeID]bool) Class {
	if cls, ok := c.classes[id]; ok {
		return cls
	}
	if visiting[id] || len(visiting) > maxDepth {
		// рекурсивный тип не может копироваться
		return Unique
	}
	visiting[id] = true
	cls := c.compute(id, visiting)
	delete(visiting, id)
	c.classes[id] = cls
	return cls
}

func (c *Classifier) compute(id types.TypeID, visiting map[types.TypeID]bool) Class {
	tt, ok := c.types.Lookup(id)
	if !ok {
		return Unique
	}
	if tt.Kind.IsPrimitive() {
		return Value
	}
	switch tt.Kind {
	case types.KindReference:
		if tt.Mutable {
			return Unique
		}
		return Value
	case types.KindArray:
		if tt.Count == types.ArrayDynamicLength {
			return Unique
		}
		return c.classify(tt.Elem, visiting)
	case types.KindTuple:
		info, _ := c.types.TupleInfo(id)
		return c.all(info.Elems, visiting)
	case types.KindParam:
		info, _ := c.types.ParamInfo(id)
		if info.HasBound("Copy") {
			return Value
		}
		return Unique
	case types.KindNamed:
		return c.classifyNamed(id, visiting)
	default:
		// str, unknown
		return Unique
	}
}

func (c *Classifier) classifyNamed(id types.TypeID, visiting map[types.TypeID]bool) Class {
	info, _ := c.types.NamedInfo(id)
	if heapOwning[info.Name] {
		return Unique
	}
	if info.Name == "Option" || info.Name == "Result" {
		return c.all(info.Args, visiting)
	}
	d, ok := c.decls.Lookup(info.Name)
	if !ok || d.Drop {
		return Unique
	}
	for _, f := range d.Fields {
		if c.classify(c.decls.Instantiate(c.types, d, id, f), visiting) == Unique {
			return Unique
		}
	}
	return Value
}

func (c *Classifier) all(ids []types.TypeID, visiting map[types.TypeID]bool) Class {
	for _, el := range ids {
		if c.classify(el, visiting) == Unique {
			return Unique
		}
	}
	return Value
}

// Duplicable reports whether a value of id can be duplicated by an explicit
// operation (clone). Value types are always duplicable.
func (c *Classifier) Duplicable(id types.TypeID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duplicable(id, 0)
}

func (c *Classifier) duplicable(id types.TypeID, depth int) bool {
	if v, ok := c.dups[id]; ok {
		return v
	}
	if depth > 64 {
		return false
	}
	v := c.computeDup(id, depth)
	c.dups[id] = v
	return v
}

func (c *Classifier) computeDup(id types.TypeID, depth int) bool {
	if c.classify(id, make(map[types.TypeID]bool)) == Value {
		return true
	}
	tt, ok := c.types.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindArray:
		return tt.Count != types.ArrayDynamicLength && c.duplicable(tt.Elem, depth+1)
	case types.KindTuple:
		info, _ := c.types.TupleInfo(id)
		for _, el := range info.Elems {
			if !c.duplicable(el, depth+1) {
				return false
			}
		}
		return true
	case types.KindParam:
		info, _ := c.types.ParamInfo(id)
		return info.HasBound("Clone") || info.HasBound("Copy")
	case types.KindNamed:
		info, _ := c.types.NamedInfo(id)
		switch {
		case info.Name == "String", info.Name == "Rc", info.Name == "Arc":
			return true
		case cloneContainers[info.Name]:
			for _, a := range info.Args {
				if !c.duplicable(a, depth+1) {
					return false
				}
			}
			return true
		}
		d, found := c.decls.Lookup(info.Name)
		return found && (d.Clone || d.derives("Clone") || d.derives("Copy"))
	default:
		return false
	}
}
