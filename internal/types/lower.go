package types

import (
	"ownc/internal/ast"
)

// Env is the lowering context: Self and generic parameters in scope.
type Env struct {
	Self   TypeID
	Params map[string]TypeID
	parent *Env
}

// NewEnv creates an environment from the generic params of an item.
func NewEnv(in *Interner, b *ast.Builder, self TypeID, generics []ast.GenericParam) *Env {
	env := &Env{Self: self}
	env.declare(in, b, generics)
	return env
}

// Child extends env with more generic params (method generics inside an impl).
func (env *Env) Child(in *Interner, b *ast.Builder, generics []ast.GenericParam) *Env {
	child := &Env{parent: env}
	if env != nil {
		child.Self = env.Self
	}
	child.declare(in, b, generics)
	return child
}

func (env *Env) declare(in *Interner, b *ast.Builder, generics []ast.GenericParam) {
	if len(generics) == 0 {
		return
	}
	env.Params = make(map[string]TypeID, len(generics))
	for _, g := range generics {
		bounds := make([]string, 0, len(g.Bounds))
		for _, bound := range g.Bounds {
			bounds = append(bounds, b.Name(bound))
		}
		name := b.Name(g.Name)
		env.Params[name] = in.Param(name, bounds...)
	}
}

func (env *Env) lookup(name string) (TypeID, bool) {
	for e := env; e != nil; e = e.parent {
		if id, ok := e.Params[name]; ok {
			return id, true
		}
	}
	return NoTypeID, false
}

// Lower converts a written type into an interned type. A missing type
// (NoTypeID) lowers to unit.
func (in *Interner) Lower(b *ast.Builder, env *Env, id ast.TypeID) TypeID {
	if !id.IsValid() {
		return in.builtins.Unit
	}
	te := b.Types.Get(id)
	if te == nil {
		return in.builtins.Unknown
	}
	switch te.Kind {
	case ast.TypeExprSelf:
		if env != nil && env.Self != NoTypeID {
			return env.Self
		}
		return in.builtins.Unknown
	case ast.TypeExprRef:
		return in.Reference(in.Lower(b, env, te.Elem), te.Mutable)
	case ast.TypeExprTuple:
		elems := make([]TypeID, len(te.Args))
		for i, a := range te.Args {
			elems[i] = in.Lower(b, env, a)
		}
		return in.Tuple(elems...)
	case ast.TypeExprArray:
		elem := in.Lower(b, env, te.Elem)
		if te.Len < 0 || te.Len >= int64(ArrayDynamicLength) {
			return in.Array(elem, ArrayDynamicLength)
		}
		return in.Array(elem, uint32(te.Len))
	case ast.TypeExprNamed:
		name := b.Name(te.Name)
		if len(te.Args) == 0 {
			if prim, ok := in.primitive(name); ok {
				return prim
			}
			if param, ok := env.lookup(name); ok {
				return param
			}
			if name == "Self" && env != nil && env.Self != NoTypeID {
				return env.Self
			}
		}
		args := make([]TypeID, len(te.Args))
		for i, a := range te.Args {
			args[i] = in.Lower(b, env, a)
		}
		return in.Named(name, args...)
	default:
		return in.builtins.Unknown
	}
}

var widths = map[string]Width{
	"8": Width8, "16": Width16, "32": Width32, "64": Width64, "128": Width128, "size": WidthAny,
}

func (in *Interner) primitive(name string) (TypeID, bool) {
	switch name {
	case "bool":
		return in.builtins.Bool, true
	case "char":
		return in.builtins.Char, true
	case "int":
		return in.builtins.Int, true
	case "uint":
		return in.builtins.Uint, true
	case "float":
		return in.builtins.Float, true
	case "str":
		return in.builtins.Str, true
	case "_":
		return in.builtins.Unknown, true
	}
	if len(name) < 2 {
		return NoTypeID, false
	}
	w, ok := widths[name[1:]]
	if !ok {
		return NoTypeID, false
	}
	switch name[0] {
	case 'i':
		return in.Intern(MakeInt(w)), true
	case 'u':
		return in.Intern(MakeUint(w)), true
	case 'f':
		if w == Width32 || w == Width64 {
			return in.Intern(MakeFloat(w)), true
		}
	}
	return NoTypeID, false
}
