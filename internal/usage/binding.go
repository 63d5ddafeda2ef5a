package usage

import (
	"ownc/internal/ast"
	"ownc/internal/source"
	"ownc/internal/types"
)

// BindingID is 1-based; 0 means none.
type BindingID uint32

const NoBindingID BindingID = 0

type BindingKind uint8

const (
	BindParam BindingKind = iota
	BindReceiver
	BindLet
	BindLoop
	BindMatch
	BindClosureParam
)

func (k BindingKind) String() string {
	switch k {
	case BindParam:
		return "parameter"
	case BindReceiver:
		return "receiver"
	case BindLet:
		return "local"
	case BindLoop:
		return "loop variable"
	case BindMatch:
		return "pattern binding"
	case BindClosureParam:
		return "closure parameter"
	default:
		return "binding"
	}
}

// ViewKind tells what a binding borrows from, if anything.
type ViewKind uint8

const (
	ViewNone ViewKind = iota
	// ViewLoop: element of a loop site; borrowed unless the site consumes.
	ViewLoop
	// ViewMatch: payload of a match site; borrowed unless the match consumes.
	ViewMatch
	// ViewIndex: `let x = coll[i]` with a reference inserted at the index.
	ViewIndex
)

type Binding struct {
	ID      BindingID
	Name    string
	Kind    BindingKind
	Type    types.TypeID
	Mutable bool
	// Uninit: declared by `let x;`, the first whole write initialises it.
	Uninit  bool
	Param   int // parameter index for BindParam
	View    ViewKind
	Site    int // loop/match/index site for views, -1 otherwise
	Depth   int // number of enclosing loops at the declaration
	Pattern ast.PatternID
	Span    source.Span
	Facts   []int
}

type scope struct {
	names map[string]BindingID
}

type scopes struct {
	stack []scope
}

func (s *scopes) push() {
	s.stack = append(s.stack, scope{names: make(map[string]BindingID, 4)})
}

func (s *scopes) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *scopes) declare(name string, id BindingID) {
	if len(s.stack) == 0 {
		s.push()
	}
	s.stack[len(s.stack)-1].names[name] = id
}

func (s *scopes) lookup(name string) (BindingID, bool) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if id, ok := s.stack[i].names[name]; ok {
			return id, true
		}
	}
	return NoBindingID, false
}
