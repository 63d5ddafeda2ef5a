package types

// IterElem returns the element type produced by iterating over id
// (the referent is iterated for references). Unknown for non-iterables.
func (in *Interner) IterElem(id TypeID) TypeID {
	base := in.Deref(id)
	tt, ok := in.Lookup(base)
	if !ok {
		return in.builtins.Unknown
	}
	switch tt.Kind {
	case KindArray:
		return tt.Elem
	case KindNamed:
		info, _ := in.NamedInfo(base)
		switch info.Name {
		case "Vec", "VecDeque", "HashSet", "BTreeSet", "Option":
			if len(info.Args) == 1 {
				return info.Args[0]
			}
		case "HashMap", "BTreeMap":
			if len(info.Args) == 2 {
				return in.Tuple(info.Args[0], info.Args[1])
			}
		case "Range":
			if len(info.Args) == 1 {
				return info.Args[0]
			}
			return in.builtins.Int
		}
	}
	return in.builtins.Unknown
}

// IndexElem returns the element type of id[...]; maps index by key.
func (in *Interner) IndexElem(id TypeID) TypeID {
	base := in.Deref(id)
	tt, ok := in.Lookup(base)
	if !ok {
		return in.builtins.Unknown
	}
	switch tt.Kind {
	case KindArray:
		return tt.Elem
	case KindNamed:
		info, _ := in.NamedInfo(base)
		switch info.Name {
		case "Vec", "VecDeque":
			if len(info.Args) == 1 {
				return info.Args[0]
			}
		case "HashMap", "BTreeMap":
			if len(info.Args) == 2 {
				return info.Args[1]
			}
		}
	}
	return in.builtins.Unknown
}

// PayloadOf returns the single argument of Option/Box-like wrappers,
// which is what a `Some(x)` pattern binds.
func (in *Interner) PayloadOf(id TypeID, variant string) []TypeID {
	info, ok := in.NamedInfo(in.Deref(id))
	if !ok {
		return nil
	}
	switch info.Name {
	case "Option":
		if variant == "Some" && len(info.Args) == 1 {
			return []TypeID{info.Args[0]}
		}
	case "Result":
		if len(info.Args) == 2 {
			switch variant {
			case "Ok":
				return []TypeID{info.Args[0]}
			case "Err":
				return []TypeID{info.Args[1]}
			}
		}
	}
	return nil
}
