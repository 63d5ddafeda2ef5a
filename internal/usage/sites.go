package usage

import (
	"ownc/internal/ast"
	"ownc/internal/source"
	"ownc/internal/types"
)

// LoopSite is a `for` loop over an iterable.
type LoopSite struct {
	Stmt ast.StmtID
	Span source.Span
	// Root is the binding the iterable is rooted at, if any.
	Root BindingID
	// Field: the iterable is a field access; the loop always borrows.
	Field bool
	// BorrowOnly: the root is used after the loop, the iterable is a
	// field access, or the loop sits inside another loop that does not
	// own the root. Consuming iteration is not allowed.
	BorrowOnly bool
	// Explicit: the iterable is `&xs` or `&mut xs`.
	Explicit bool
	// MutRef: elements are yielded by mutable reference.
	MutRef bool
	// Owning: the iterable is a temporary (call result, range, into_iter)
	// whose elements the loop owns.
	Owning bool
	// NeedsOwned: a loop binding is consumed inside the body.
	NeedsOwned bool
	Bindings   []BindingID
	ElemType   types.TypeID
	Fact       int // LoopIterated fact, -1 without root
	Depth      int
	endOrder   int
}

// Eligible reports whether the loop may consume its root.
func (l *LoopSite) Eligible() bool { return l.Root != NoBindingID && !l.BorrowOnly }

// MatchSite is a match statement; Root is set when the scrutinee is a bare
// binding.
type MatchSite struct {
	Stmt      ast.StmtID
	Span      source.Span
	Scrutinee ast.ExprID
	Type      types.TypeID
	Root      BindingID
	// Consumes: the match moves the scrutinee into its arm bindings.
	// Otherwise arm bindings are borrowed views.
	Consumes bool
	Bindings []BindingID
	Arms     []ast.PatternID
	Guarded  []bool
	Fact     int // fact recorded for the scrutinee, -1 if none
	Depth    int
	endOrder int
}

// IndexSite is an index expression producing a unique element.
type IndexSite struct {
	Expr ast.ExprID
	Span source.Span
	Root BindingID
	Elem types.TypeID
	// Let: `let x = coll[i]`, a reference is inserted at the index.
	Let bool
	// Consumed: the element is moved out (passed owned, returned, stored).
	Consumed bool
}

// Ambiguity is a capability that cannot be derived from usage.
type Ambiguity struct {
	Binding BindingID
	Span    source.Span
	Method  string
	Bounds  []string
}
