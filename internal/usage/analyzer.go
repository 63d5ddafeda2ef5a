package usage

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"ownc/internal/ast"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/typeclass"
	"ownc/internal/types"
)

// Analyzer records usage facts of function bodies against one frozen
// registry snapshot. It holds no per-function state and may be shared by
// workers.
type Analyzer struct {
	b     *ast.Builder
	types *types.Interner
	cls   *typeclass.Classifier
	decls *typeclass.Table
	reg   *registry.Registry
	calls *callTables
}

func New(b *ast.Builder, cls *typeclass.Classifier, reg *registry.Registry, opts Options) *Analyzer {
	return &Analyzer{
		b:     b,
		types: cls.Types(),
		cls:   cls,
		decls: cls.Decls(),
		reg:   reg,
		calls: newCallTables(opts),
	}
}

// WithRegistry returns an analyzer reading another snapshot.
func (a *Analyzer) WithRegistry(reg *registry.Registry) *Analyzer {
	cp := *a
	cp.reg = reg
	return &cp
}

func (a *Analyzer) Registry() *registry.Registry { return a.reg }

// Result is everything recorded for one function body.
type Result struct {
	Func        registry.FuncID
	Bindings    []Binding
	Facts       []Fact
	Flow        []Step
	Loops       []LoopSite
	Matches     []MatchSite
	Indexes     []IndexSite
	Ambiguities []Ambiguity
	// Callees are registry entries called from the body, sorted.
	Callees  []registry.FuncID
	Receiver BindingID
	Params   []BindingID
}

func (r *Result) Binding(id BindingID) *Binding {
	if id == NoBindingID || int(id) > len(r.Bindings) {
		return nil
	}
	return &r.Bindings[id-1]
}

// FactsOf returns the facts of one binding in source order.
func (r *Result) FactsOf(id BindingID) []*Fact {
	b := r.Binding(id)
	if b == nil {
		return nil
	}
	out := make([]*Fact, 0, len(b.Facts))
	for _, idx := range b.Facts {
		out = append(out, &r.Facts[idx])
	}
	return out
}

// Named returns the first binding declared with name.
func (r *Result) Named(name string) (*Binding, bool) {
	for i := range r.Bindings {
		if r.Bindings[i].Name == name {
			return &r.Bindings[i], true
		}
	}
	return nil, false
}

// RequiresOwnership reports whether fact f forces its binding to own the
// value: the kind itself, a consuming loop or a consuming match scrutinee.
func (r *Result) RequiresOwnership(f *Fact) bool {
	switch f.Kind {
	case LoopIterated:
		return f.Site >= 0 && f.Site < len(r.Loops) && r.Loops[f.Site].Eligible() && r.Loops[f.Site].NeedsOwned
	case Read:
		return f.Site >= 0 && f.Site < len(r.Matches) && r.Matches[f.Site].Consumes && r.Matches[f.Site].Fact == f.Order
	}
	return f.RequiresOwnership()
}

// Analyze walks the body of e once. Entries without a body yield an empty
// result.
func (a *Analyzer) Analyze(e *registry.Entry) *Result {
	res := &Result{Func: e.ID}
	fn, ok := a.b.Items.Fn(e.Item)
	if !ok || !fn.HasBody() {
		return res
	}
	w := &walker{
		a:       a,
		b:       a.b,
		in:      a.types,
		e:       e,
		res:     res,
		callees: make(map[registry.FuncID]struct{}),
	}
	w.cur = &res.Flow
	w.sc.push()
	if e.HasReceiver {
		res.Receiver = w.declare("self", BindReceiver, e.Receiver.Type, e.Receiver.Mutable, e.Receiver.Span, ast.NoPatternID)
	}
	for i, p := range e.Params {
		id := w.declare(p.Name, BindParam, p.Type, p.Mutable, p.Span, ast.NoPatternID)
		w.binding(id).Param = i
		res.Params = append(res.Params, id)
	}
	tail := use{ctx: ctxRead}
	if e.Return != registry.Void {
		tail = use{ctx: ctxReturn}
	}
	w.block(fn.Body, tail, true)
	w.finish()
	return res
}

// ctx is how the value of an expression is used by its parent.
type ctx uint8

const (
	ctxRead ctx = iota
	ctxBorrow
	ctxMutBorrow
	ctxOwned
	ctxStore
	ctxReturn
	ctxReturnWrapped
)

func (c ctx) inReturn() bool { return c == ctxReturn || c == ctxReturnWrapped }

func (c ctx) consumes() bool { return c >= ctxOwned }

// wrapped is the context of an element of a literal or wrapper call.
func (c ctx) wrapped() ctx {
	if c.inReturn() {
		return ctxReturnWrapped
	}
	return ctxStore
}

type use struct {
	ctx    ctx
	callee registry.FuncID
	arg    int
}

type walker struct {
	a   *Analyzer
	b   *ast.Builder
	in  *types.Interner
	e   *registry.Entry
	res *Result

	sc        scopes
	cur       *[]Step
	loopDepth int
	closure   int
	// captureReturn: the innermost closure is itself returned.
	captureReturn bool
	callees       map[registry.FuncID]struct{}
	levels        []int // closure level per binding
	// moves out of outer bindings, emitted where the closure of that depth is created
	captures map[int][]Step
}

func (w *walker) binding(id BindingID) *Binding { return w.res.Binding(id) }

func (w *walker) declare(name string, kind BindingKind, ty types.TypeID, mutable bool, sp source.Span, pat ast.PatternID) BindingID {
	n, err := safecast.Conv[uint32](len(w.res.Bindings) + 1)
	if err != nil {
		panic(fmt.Errorf("binding table overflow: %w", err))
	}
	id := BindingID(n)
	w.res.Bindings = append(w.res.Bindings, Binding{
		ID:      id,
		Name:    name,
		Kind:    kind,
		Type:    ty,
		Mutable: mutable,
		Param:   -1,
		Site:    -1,
		Depth:   w.loopDepth,
		Pattern: pat,
		Span:    sp,
	})
	w.levels = append(w.levels, w.closure)
	w.sc.declare(name, id)
	if kind != BindParam && kind != BindReceiver {
		w.step(Step{Kind: StepDecl, Binding: id, Span: sp})
	}
	return id
}

func (w *walker) step(s Step) {
	*w.cur = append(*w.cur, s)
}

// record appends a fact and its flow step.
func (w *walker) record(kind FactKind, id BindingID, expr ast.ExprID, sp source.Span, path []string, u use, site int) int {
	movedAt := 0
	if lvl := w.levels[id-1]; lvl < w.closure {
		kind = w.captured(kind)
		if kind.IsConsuming() {
			movedAt = lvl + 1
		}
	}
	idx := len(w.res.Facts)
	w.res.Facts = append(w.res.Facts, Fact{
		Kind:      kind,
		Binding:   id,
		Span:      sp,
		Expr:      expr,
		Path:      path,
		Callee:    u.callee,
		Arg:       u.arg,
		Order:     idx,
		Site:      site,
		InClosure: w.closure > 0,
	})
	b := w.binding(id)
	b.Facts = append(b.Facts, idx)
	st := Step{Kind: StepFact, Fact: idx, Span: sp}
	if movedAt > 0 {
		if w.captures == nil {
			w.captures = make(map[int][]Step)
		}
		w.captures[movedAt] = append(w.captures[movedAt], st)
		return idx
	}
	w.step(st)
	return idx
}

// captured maps a use of an outer binding inside a closure body. A
// consuming use moves the value into the closure; mutations are kept.
func (w *walker) captured(kind FactKind) FactKind {
	switch {
	case kind.IsMutation():
		return kind
	case w.captureReturn:
		return ReturnedViaWrapper
	case kind.IsConsuming():
		return MovedIntoClosure
	}
	return CapturedByClosure
}

// nested runs fn with a fresh step list and returns it.
func (w *walker) nested(fn func()) []Step {
	saved := w.cur
	var steps []Step
	w.cur = &steps
	fn()
	w.cur = saved
	return steps
}

func (w *walker) callee(id registry.FuncID) {
	w.callees[id] = struct{}{}
}

func (w *walker) finish() {
	w.res.Callees = make([]registry.FuncID, 0, len(w.callees))
	for id := range w.callees {
		w.res.Callees = append(w.res.Callees, id)
	}
	sort.Slice(w.res.Callees, func(i, j int) bool { return w.res.Callees[i] < w.res.Callees[j] })
	w.finishLoops()
	w.finishMatches()
}
