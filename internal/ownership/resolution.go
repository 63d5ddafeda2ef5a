package ownership

import (
	"ownc/internal/ast"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/usage"
)

type HintKind uint8

const (
	// HintInsertRef: take a reference at an indexing site instead of moving
	// the element out.
	HintInsertRef HintKind = iota
)

func (k HintKind) String() string {
	switch k {
	case HintInsertRef:
		return "insert-ref"
	default:
		return "hint?"
	}
}

type Hint struct {
	Kind    HintKind
	Span    source.Span
	Expr    ast.ExprID
	Binding usage.BindingID
}

// LoopDecision is the resolved mode of one loop site.
type LoopDecision struct {
	Site int
	// Consumes: the loop takes ownership of its root (into_iter).
	Consumes bool
	Binding  registry.Decision
}

// Resolution holds the decisions of one function against one snapshot.
type Resolution struct {
	Func    registry.FuncID
	Entry   *registry.Entry
	Usage   *usage.Result
	Loops   []LoopDecision
	Matches []bool // match site consumes its scrutinee
	Hints   []Hint

	decisions []registry.Decision
	byValue   []bool
}

// Decision returns the decision of a binding; Unresolved for unknown ids.
func (r *Resolution) Decision(id usage.BindingID) registry.Decision {
	if id == usage.NoBindingID || int(id) > len(r.decisions) {
		return registry.Unresolved
	}
	return r.decisions[id-1]
}

// ByValue reports bindings passed by value whatever their decision says
// (value types with an inferred mode).
func (r *Resolution) ByValue(id usage.BindingID) bool {
	if id == usage.NoBindingID || int(id) > len(r.byValue) {
		return false
	}
	return r.byValue[id-1]
}

// Owns reports whether the binding holds its value rather than a view.
func (r *Resolution) Owns(id usage.BindingID) bool {
	return r.Decision(id) == registry.Owned
}

func (r *Resolution) Receiver() registry.Decision {
	return r.Decision(r.Usage.Receiver)
}

func (r *Resolution) Param(i int) registry.Decision {
	if i < 0 || i >= len(r.Usage.Params) {
		return registry.Unresolved
	}
	return r.Decision(r.Usage.Params[i])
}

// Signature is what the driver publishes for the next round.
func (r *Resolution) Signature() registry.Signature {
	e := r.Entry
	sig := registry.Signature{Params: make([]registry.Decision, len(e.Params))}
	if e.HasReceiver {
		sig.Receiver = e.Receiver.Decision
		if !e.Receiver.Fixed && r.Usage.Receiver != usage.NoBindingID {
			sig.Receiver = r.Receiver()
		}
	}
	for i := range e.Params {
		sig.Params[i] = e.Params[i].Decision
		if !e.Params[i].Fixed && i < len(r.Usage.Params) {
			sig.Params[i] = r.Param(i)
		}
	}
	return sig
}
