package registry

import "ownc/internal/ast"

// Decision is the passing mode of a parameter, receiver or loop binding.
// The order Unresolved < Borrowed < Owned < MutBorrowed is the join order
// used while propagating signatures between rounds.
type Decision uint8

const (
	Unresolved Decision = iota
	Borrowed
	Owned
	MutBorrowed
)

func (d Decision) String() string {
	switch d {
	case Borrowed:
		return "Borrowed"
	case Owned:
		return "Owned"
	case MutBorrowed:
		return "MutBorrowed"
	default:
		return "Unresolved"
	}
}

// Join returns the stronger of two decisions.
func (d Decision) Join(other Decision) Decision {
	if other > d {
		return other
	}
	return d
}

// Sigil is the target-language marker: "", "&" or "&mut ".
func (d Decision) Sigil() string {
	switch d {
	case Borrowed:
		return "&"
	case MutBorrowed:
		return "&mut "
	default:
		return ""
	}
}

// FromReceiver maps an explicit receiver marker; Inferred yields Unresolved.
func FromReceiver(kind ast.ReceiverKind) Decision {
	switch kind {
	case ast.ReceiverOwned:
		return Owned
	case ast.ReceiverRef:
		return Borrowed
	case ast.ReceiverMutRef:
		return MutBorrowed
	default:
		return Unresolved
	}
}

// FromHint maps an explicit parameter hint; Inferred yields Unresolved.
func FromHint(hint ast.OwnershipHint) Decision {
	switch hint {
	case ast.HintOwned:
		return Owned
	case ast.HintRef:
		return Borrowed
	case ast.HintMut:
		return MutBorrowed
	default:
		return Unresolved
	}
}

// ReceiverMarker renders a decision as a receiver ("&self").
func ReceiverMarker(d Decision) string {
	switch d {
	case Owned:
		return "self"
	case MutBorrowed:
		return "&mut self"
	default:
		return "&self"
	}
}
