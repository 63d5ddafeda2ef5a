package usage

import (
	"ownc/internal/ast"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/types"
)

// stdMethods are methods every type bounded by the trait provides.
var stdMethods = map[string][]string{
	"clone":       {"Clone"},
	"to_string":   {"Display", "ToString"},
	"eq":          {"PartialEq", "Eq"},
	"ne":          {"PartialEq", "Eq"},
	"cmp":         {"Ord"},
	"partial_cmp": {"PartialOrd", "Ord"},
	"hash":        {"Hash"},
	"fmt":         {"Debug", "Display"},
	"default":     {"Default"},
}

func (w *walker) call(id ast.ExprID, u use) types.TypeID {
	bt := w.in.Builtins()
	data, _ := w.b.Exprs.Call(id)
	name, owner, local := w.calleeName(data.Callee)
	if local != NoBindingID {
		// closure stored in a binding
		w.usePlace(data.Callee, place{root: local, ty: w.binding(local).Type}, use{ctx: ctxRead})
		w.args(data.Args, nil, registry.Borrowed, 0)
		return bt.Unknown
	}
	if name == "" {
		w.expr(data.Callee, use{ctx: ctxRead})
		w.args(data.Args, nil, registry.Borrowed, 0)
		return bt.Unknown
	}

	entry := w.lookupCall(name, owner)
	switch w.classifyCall(data.Callee, name, owner, entry) {
	case callDiverging:
		w.args(data.Args, nil, registry.Borrowed, 0)
		w.step(Step{Kind: StepExit, Exit: ExitPanic, Span: w.b.Exprs.Get(id).Span})
		return bt.Unknown
	case callVoid:
		if entry != nil {
			w.callee(entry.ID)
			w.args(data.Args, entry, registry.Borrowed, 0)
		} else {
			w.args(data.Args, nil, registry.Borrowed, 0)
		}
		return bt.Unit
	case callWrapper:
		if entry != nil {
			w.callee(entry.ID)
		}
		var tys []types.TypeID
		for i, arg := range data.Args {
			au := use{ctx: ctxOwned, arg: i}
			if entry != nil {
				au.callee = entry.ID
				au.ctx = effectCtx(entry.ArgEffect(i))
			}
			if u.ctx.inReturn() {
				au.ctx = ctxReturnWrapped
			}
			tys = append(tys, w.expr(arg, au))
		}
		if entry != nil {
			return entry.ReturnType
		}
		return w.constructed(name, owner, tys)
	}

	if entry == nil {
		if w.isVariant(name, owner) {
			var tys []types.TypeID
			for i, arg := range data.Args {
				tys = append(tys, w.expr(arg, use{ctx: u.ctx.wrapped(), arg: i}))
			}
			return w.constructed(name, owner, tys)
		}
		eff := registry.Borrowed
		if w.a.calls.consuming[name] || (owner != "" && w.a.calls.consuming[owner+"::"+name]) {
			eff = registry.Owned
		}
		w.args(data.Args, nil, eff, 0)
		if owner != "" {
			if _, ok := w.a.decls.Lookup(owner); ok || owner == "String" || owner == "Vec" || owner == "HashMap" {
				return w.in.Named(owner)
			}
		}
		return bt.Unknown
	}

	w.callee(entry.ID)
	if entry.HasReceiver && owner != "" && len(data.Args) > 0 {
		// Type::method(recv, args...)
		w.expr(data.Args[0], use{ctx: effectCtx(entry.ReceiverEffect()), callee: entry.ID, arg: -1})
		for i, arg := range data.Args[1:] {
			w.expr(arg, use{ctx: effectCtx(entry.ArgEffect(i)), callee: entry.ID, arg: i})
		}
	} else {
		w.args(data.Args, entry, registry.Borrowed, 0)
	}
	return w.returnType(entry, types.NoTypeID)
}

// calleeName splits a callee into name and owner; local is set when the
// callee is a binding in scope.
func (w *walker) calleeName(callee ast.ExprID) (name, owner string, local BindingID) {
	if id, ok := w.b.Exprs.Ident(callee); ok {
		name = w.b.Name(id.Name)
		if bid, ok := w.sc.lookup(name); ok {
			return "", "", bid
		}
		return name, "", NoBindingID
	}
	if p, ok := w.b.Exprs.Path(callee); ok && len(p.Segments) >= 2 {
		n := len(p.Segments)
		return w.b.Name(p.Segments[n-1]), w.owner(w.b.Name(p.Segments[n-2])), NoBindingID
	}
	return "", "", NoBindingID
}

func (w *walker) lookupCall(name, owner string) *registry.Entry {
	reg := w.a.reg
	if owner == "" {
		if e, ok := reg.Lookup(registry.FuncID(name)); ok {
			return e
		}
		return nil
	}
	if e, ok := reg.Method(owner, name); ok {
		return e
	}
	if e, ok := reg.TraitMethod(owner, name); ok {
		return e
	}
	return nil
}

func (w *walker) classifyCall(callee ast.ExprID, name, owner string, entry *registry.Entry) callKind {
	if entry != nil {
		switch entry.Return {
		case registry.Void:
			return callVoid
		case registry.WrapsArgument:
			return callWrapper
		}
		return callPlain
	}
	if owner == "" {
		if w.a.calls.diverging[name] {
			return callDiverging
		}
		if w.a.calls.void[name] {
			return callVoid
		}
	}
	if registry.IsWrapperConstructor(w.b, w.a.decls, callee) {
		return callWrapper
	}
	return callPlain
}

func (w *walker) isVariant(name, owner string) bool {
	if owner != "" {
		d, ok := w.a.decls.Lookup(owner)
		if !ok || !d.Enum {
			return false
		}
		_, ok = d.Variant(name)
		return ok
	}
	_, ok := w.a.decls.EnumOfVariant(name)
	return ok
}

// constructed types a constructor call.
func (w *walker) constructed(name, owner string, args []types.TypeID) types.TypeID {
	bt := w.in.Builtins()
	arg := bt.Unknown
	if len(args) > 0 {
		arg = args[0]
	}
	switch {
	case name == "Some" && (owner == "" || owner == "Option"):
		return w.in.Named("Option", arg)
	case (name == "Ok" || name == "Err") && (owner == "" || owner == "Result"):
		if name == "Ok" {
			return w.in.Named("Result", arg, bt.Unknown)
		}
		return w.in.Named("Result", bt.Unknown, arg)
	}
	if owner != "" {
		return w.in.Named(owner)
	}
	if d, ok := w.a.decls.EnumOfVariant(name); ok {
		return w.in.Named(d.Name)
	}
	return bt.Unknown
}

// returnType resolves `Self` in a trait method result to the receiver type.
func (w *walker) returnType(e *registry.Entry, recv types.TypeID) types.TypeID {
	if recv != types.NoTypeID {
		if info, ok := w.in.ParamInfo(e.ReturnType); ok && info.Name == "Self" {
			return w.in.Deref(recv)
		}
	}
	return e.ReturnType
}

func (w *walker) methodCall(id ast.ExprID, u use) types.TypeID {
	data, _ := w.b.Exprs.MethodCall(id)
	name := w.b.Name(data.Method)
	sp := w.b.Exprs.Get(id).Span

	p, isPlace := w.place(data.Receiver)
	var recvTy types.TypeID
	if isPlace {
		recvTy = p.ty
	} else {
		recvTy = w.expr(data.Receiver, use{ctx: ctxRead})
	}

	entry := w.resolveMethod(recvTy, name)
	var eff registry.Decision
	if entry != nil {
		w.callee(entry.ID)
		eff = entry.ReceiverEffect()
	} else {
		eff = w.a.calls.methodEffect(name)
		if isPlace {
			w.checkGeneric(p, recvTy, name, sp)
		}
	}

	if isPlace {
		ru := use{arg: -1}
		if entry != nil {
			ru.callee = entry.ID
		}
		switch eff {
		case registry.MutBorrowed:
			w.record(MutatingCall, p.root, data.Receiver, sp, p.path, ru, -1)
		case registry.Owned:
			ru.ctx = ctxOwned
			w.usePlace(data.Receiver, p, ru)
		default:
			ru.ctx = ctxRead
			if entry != nil {
				ru.ctx = ctxBorrow
			}
			w.usePlace(data.Receiver, p, ru)
		}
	}

	if entry != nil {
		w.args(data.Args, entry, registry.Borrowed, 0)
		return w.returnType(entry, recvTy)
	}
	if w.a.calls.push[name] && eff == registry.MutBorrowed {
		for i, arg := range data.Args {
			w.expr(arg, use{ctx: ctxStore, arg: i})
		}
	} else {
		w.args(data.Args, nil, registry.Borrowed, 0)
	}
	return w.builtinResult(recvTy, name)
}

// resolveMethod finds the registry entry for recv.method: by the nominal
// type, then through the bounds of a generic parameter.
func (w *walker) resolveMethod(recv types.TypeID, method string) *registry.Entry {
	base := w.in.Deref(recv)
	if name := w.in.NameOf(base); name != "" {
		if e, ok := w.a.reg.Method(name, method); ok {
			return e
		}
		return nil
	}
	if info, ok := w.in.ParamInfo(base); ok {
		for _, bound := range info.Bounds {
			if e, ok := w.a.reg.TraitMethod(bound, method); ok {
				return e
			}
		}
	}
	return nil
}

// checkGeneric records an ambiguity for a method on a generic binding that
// none of its bounds provides.
func (w *walker) checkGeneric(p place, recv types.TypeID, method string, sp source.Span) {
	info, ok := w.in.ParamInfo(w.in.Deref(recv))
	if !ok {
		return
	}
	for _, trait := range stdMethods[method] {
		if info.HasBound(trait) {
			return
		}
	}
	if w.a.calls.reading[method] {
		return
	}
	w.res.Ambiguities = append(w.res.Ambiguities, Ambiguity{
		Binding: p.root,
		Span:    sp,
		Method:  method,
		Bounds:  append([]string(nil), info.Bounds...),
	})
}

// builtinResult types the result of a method unknown to the registry.
func (w *walker) builtinResult(recv types.TypeID, method string) types.TypeID {
	bt := w.in.Builtins()
	base := w.in.Deref(recv)
	switch method {
	case "clone", "to_owned", "iter", "iter_mut", "into_iter", "drain", "keys", "values", "rev", "cloned":
		return base
	case "to_string", "to_uppercase", "to_lowercase", "trim", "format":
		return bt.String
	case "len", "count", "capacity":
		return bt.Uint
	case "is_empty", "contains", "contains_key", "starts_with", "ends_with", "is_some", "is_none", "is_ok", "is_err", "any", "all":
		return bt.Bool
	case "get", "first", "last", "get_mut":
		return w.in.Named("Option", w.in.IndexElem(base))
	case "pop", "pop_front", "pop_back":
		return w.in.Named("Option", w.in.IterElem(base))
	case "unwrap", "expect", "unwrap_or", "unwrap_or_default", "unwrap_or_else":
		return w.unwrapped(base)
	}
	return bt.Unknown
}
