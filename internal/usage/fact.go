package usage

import (
	"ownc/internal/ast"
	"ownc/internal/registry"
	"ownc/internal/source"
)

// FactKind is the kind of a usage fact.
type FactKind uint8

const (
	Read FactKind = iota
	FieldRead
	FieldWrite
	WholeWrite
	PassedBorrowed
	PassedMutBorrowed
	PassedOwned
	ReturnedDirectly
	ReturnedViaWrapper
	CapturedByClosure
	IndexedElementRead
	LoopIterated
	// MutatingCall is a method call that mutates its receiver.
	MutatingCall
	// StoredInContainer is a literal element, push-like argument or field store.
	StoredInContainer
	// MovedIntoClosure is a consuming use inside a closure body; the move
	// happens where the closure is created.
	MovedIntoClosure
)

var factKindNames = [...]string{
	Read:               "Read",
	FieldRead:          "FieldRead",
	FieldWrite:         "FieldWrite",
	WholeWrite:         "WholeWrite",
	PassedBorrowed:     "PassedBorrowed",
	PassedMutBorrowed:  "PassedMutBorrowed",
	PassedOwned:        "PassedOwned",
	ReturnedDirectly:   "ReturnedDirectly",
	ReturnedViaWrapper: "ReturnedViaWrapper",
	CapturedByClosure:  "CapturedByClosure",
	IndexedElementRead: "IndexedElementRead",
	LoopIterated:       "LoopIterated",
	MutatingCall:       "MutatingCall",
	StoredInContainer:  "StoredInContainer",
	MovedIntoClosure:   "MovedIntoClosure",
}

func (k FactKind) String() string {
	if int(k) < len(factKindNames) {
		return factKindNames[k]
	}
	return "Fact?"
}

// IsMutation: the binding (or a part of it) is written.
func (k FactKind) IsMutation() bool {
	switch k {
	case FieldWrite, WholeWrite, MutatingCall, PassedMutBorrowed:
		return true
	default:
		return false
	}
}

// IsConsuming: the kind moves the binding when it is owned.
func (k FactKind) IsConsuming() bool {
	switch k {
	case PassedOwned, ReturnedDirectly, ReturnedViaWrapper, StoredInContainer, MovedIntoClosure:
		return true
	default:
		return false
	}
}

// Fact is one observation of a binding at one program point.
type Fact struct {
	Kind    FactKind
	Binding BindingID
	Span    source.Span
	Expr    ast.ExprID
	// Path is the field path below the binding ("inner", "value"); "[]"
	// stands for an index step and "*" for a dereference.
	Path   []string
	Callee registry.FuncID
	Arg    int // argument index, -1 for a receiver
	Order  int
	// Site is the loop, match or index site that produced the fact, or -1.
	Site int
	// InClosure marks facts recorded inside a closure body.
	InClosure bool
}

// RequiresOwnership reports kinds that force an Owned decision (rule 4)
// on their own. Consuming loops and matches are known to the Result.
func (f *Fact) RequiresOwnership() bool { return f.Kind.IsConsuming() }

// IsConsuming reports facts that move the binding when it is owned.
// Consuming loop iteration and by-value matches are decided by the resolver.
func (f *Fact) IsConsuming() bool { return f.Kind.IsConsuming() }

// IsFieldPath: the fact touches a part of the binding.
func (f *Fact) IsFieldPath() bool { return len(f.Path) > 0 }
