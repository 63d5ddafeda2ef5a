package ownership

import (
	"fmt"
	"strings"

	"ownc/internal/diag"
	"ownc/internal/registry"
	"ownc/internal/typeclass"
	"ownc/internal/usage"
)

// Resolver turns usage facts into passing-mode decisions.
type Resolver struct {
	cls *typeclass.Classifier
}

func New(cls *typeclass.Classifier) *Resolver {
	return &Resolver{cls: cls}
}

// Decide applies the decision procedure to one parameter or receiver of
// res. slot may be nil for bindings without a signature slot.
//
// Порядок правил: фиксированный слот (явный маркер или пин трейта),
// value-тип, мутация, владение, индексное чтение, заимствование.
func (r *Resolver) Decide(res *usage.Result, b *usage.Binding, facts []*usage.Fact, slot *registry.Slot) registry.Decision {
	if slot != nil && slot.Fixed && slot.Decision != registry.Unresolved {
		return slot.Decision
	}
	if r.cls.IsValue(b.Type) {
		return registry.Owned
	}
	for _, f := range facts {
		if f.Kind.IsMutation() {
			return registry.MutBorrowed
		}
	}
	for _, f := range facts {
		if res.RequiresOwnership(f) {
			return registry.Owned
		}
	}
	return registry.Borrowed
}

// Resolve decides every binding of one analyzed function.
func (r *Resolver) Resolve(e *registry.Entry, res *usage.Result) *Resolution {
	out := &Resolution{
		Func:      e.ID,
		Entry:     e,
		Usage:     res,
		Loops:     make([]LoopDecision, len(res.Loops)),
		Matches:   make([]bool, len(res.Matches)),
		decisions: make([]registry.Decision, len(res.Bindings)),
		byValue:   make([]bool, len(res.Bindings)),
	}
	for i := range out.Loops {
		out.Loops[i].Site = i
	}
	// bindings are numbered in declaration order, so a loop or match root
	// is always decided before the bindings it introduces
	for i := range res.Bindings {
		b := &res.Bindings[i]
		out.decisions[i] = r.binding(out, b)
		out.byValue[i] = r.cls.IsValue(b.Type) && !fixed(e, b)
	}
	for i := range res.Loops {
		out.Loops[i].Consumes = r.loopConsumes(out, &res.Loops[i])
	}
	for i := range res.Matches {
		out.Matches[i] = matchConsumes(out, &res.Matches[i])
	}
	for _, site := range res.Indexes {
		if site.Let {
			out.Hints = append(out.Hints, Hint{Kind: HintInsertRef, Span: site.Span, Expr: site.Expr, Binding: site.Root})
		}
	}
	return out
}

func fixed(e *registry.Entry, b *usage.Binding) bool {
	switch b.Kind {
	case usage.BindReceiver:
		return e.Receiver.Fixed
	case usage.BindParam:
		return b.Param >= 0 && b.Param < len(e.Params) && e.Params[b.Param].Fixed
	}
	return false
}

func (r *Resolver) binding(out *Resolution, b *usage.Binding) registry.Decision {
	res := out.Usage
	facts := res.FactsOf(b.ID)
	switch b.Kind {
	case usage.BindReceiver:
		return r.Decide(out.Usage, b, facts, &out.Entry.Receiver)
	case usage.BindParam:
		var slot *registry.Slot
		if b.Param >= 0 && b.Param < len(out.Entry.Params) {
			slot = &out.Entry.Params[b.Param]
		}
		return r.Decide(out.Usage, b, facts, slot)
	case usage.BindLoop:
		return r.loopBinding(out, b, facts)
	case usage.BindMatch:
		if b.Site < 0 || b.Site >= len(res.Matches) {
			return registry.Borrowed
		}
		consumes := matchConsumes(out, &res.Matches[b.Site])
		switch {
		case r.cls.IsValue(b.Type), consumes:
			return registry.Owned
		case mutated(facts):
			return registry.MutBorrowed
		}
		return registry.Borrowed
	case usage.BindLet:
		if b.View == usage.ViewIndex {
			return registry.Borrowed
		}
		return registry.Owned
	default:
		return registry.Owned
	}
}

// loopBinding decides a loop variable. A consuming loop needs an eligible
// site and a root that owns its value.
func (r *Resolver) loopBinding(out *Resolution, b *usage.Binding, facts []*usage.Fact) registry.Decision {
	res := out.Usage
	if b.Site < 0 || b.Site >= len(res.Loops) {
		return registry.Borrowed
	}
	site := &res.Loops[b.Site]
	ld := &out.Loops[b.Site]
	ld.Consumes = r.loopConsumes(out, site)
	d := registry.Borrowed
	switch {
	case r.cls.IsValue(b.Type), ld.Consumes, site.Owning:
		d = registry.Owned
	case site.MutRef, mutated(facts):
		d = registry.MutBorrowed
	}
	ld.Binding = ld.Binding.Join(d)
	return d
}

func (r *Resolver) loopConsumes(out *Resolution, site *usage.LoopSite) bool {
	if !site.Eligible() || !out.Owns(site.Root) {
		return false
	}
	return !r.cls.IsValue(out.Usage.Binding(site.Root).Type)
}

func matchConsumes(out *Resolution, m *usage.MatchSite) bool {
	return m.Consumes && out.Owns(m.Root)
}

func mutated(facts []*usage.Fact) bool {
	for _, f := range facts {
		if f.Kind.IsMutation() {
			return true
		}
	}
	return false
}

// ReportAmbiguities emits AmbiguousOwnership for capabilities that cannot
// be derived from usage.
func ReportAmbiguities(res *usage.Result, rep diag.Reporter) {
	for _, a := range res.Ambiguities {
		name := "value"
		if b := res.Binding(a.Binding); b != nil {
			name = b.Name
		}
		bounds := "no bounds"
		if len(a.Bounds) > 0 {
			bounds = "bounds `" + strings.Join(a.Bounds, " + ") + "`"
		}
		diag.ReportError(rep, diag.OwnAmbiguousOwnership, a.Span,
			fmt.Sprintf("cannot infer ownership of `%s`: method `%s` is not provided by its %s", name, a.Method, bounds)).
			WithFix(fmt.Sprintf("add a trait bound that declares `%s`", a.Method)).
			Emit()
	}
}
