package types

// NamedInfo describes a nominal type application.
type NamedInfo struct {
	Name string
	Args []TypeID
}

// TupleInfo stores the element types for a tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// ParamInfo describes a generic parameter with its trait bounds.
type ParamInfo struct {
	Name   string
	Bounds []string
}

// HasBound reports whether the parameter is bounded by trait.
func (p *ParamInfo) HasBound(trait string) bool {
	if p == nil {
		return false
	}
	for _, b := range p.Bounds {
		if b == trait {
			return true
		}
	}
	return false
}

// NamedInfo returns the name and arguments of a named type.
func (in *Interner) NamedInfo(id TypeID) (NamedInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return NamedInfo{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindNamed || int(tt.Payload) >= len(in.named) {
		return NamedInfo{}, false
	}
	return in.named[tt.Payload], true
}

// TupleInfo returns the element types for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (TupleInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return TupleInfo{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindTuple || int(tt.Payload) >= len(in.tuples) {
		return TupleInfo{}, false
	}
	return in.tuples[tt.Payload], true
}

// ParamInfo returns the name and bounds of a generic parameter.
func (in *Interner) ParamInfo(id TypeID) (ParamInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return ParamInfo{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindParam || int(tt.Payload) >= len(in.params) {
		return ParamInfo{}, false
	}
	return in.params[tt.Payload], true
}

// NameOf returns the nominal name of a named type, or "".
func (in *Interner) NameOf(id TypeID) string {
	info, ok := in.NamedInfo(id)
	if !ok {
		return ""
	}
	return info.Name
}

// Deref strips any number of reference layers.
func (in *Interner) Deref(id TypeID) TypeID {
	for {
		tt, ok := in.Lookup(id)
		if !ok || tt.Kind != KindReference {
			return id
		}
		id = tt.Elem
	}
}

// Substitute replaces generic parameters by name. Types without parameters
// come back unchanged.
func (in *Interner) Substitute(id TypeID, subst map[string]TypeID) TypeID {
	if len(subst) == 0 {
		return id
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindParam:
		info, _ := in.ParamInfo(id)
		if repl, found := subst[info.Name]; found {
			return repl
		}
		return id
	case KindReference:
		return in.Reference(in.Substitute(tt.Elem, subst), tt.Mutable)
	case KindArray:
		return in.Array(in.Substitute(tt.Elem, subst), tt.Count)
	case KindTuple:
		info, _ := in.TupleInfo(id)
		elems := make([]TypeID, len(info.Elems))
		for i, el := range info.Elems {
			elems[i] = in.Substitute(el, subst)
		}
		return in.Tuple(elems...)
	case KindNamed:
		info, _ := in.NamedInfo(id)
		if len(info.Args) == 0 {
			return id
		}
		args := make([]TypeID, len(info.Args))
		for i, a := range info.Args {
			args[i] = in.Substitute(a, subst)
		}
		return in.Named(info.Name, args...)
	default:
		return id
	}
}
