package ast

import "ownc/internal/source"

type PatternKind uint8

const (
	PatWildcard PatternKind = iota
	PatBinding
	PatTuple
	PatVariant
	PatLiteral
)

// Pattern keeps all kinds in one record:
// Binding: Name, Mutable; Tuple: Elems; Variant: Path, Elems; Literal: Value.
type Pattern struct {
	Kind    PatternKind
	Span    source.Span
	Name    source.StringID
	Mutable bool
	Path    []source.StringID
	Elems   []PatternID
	Value   ExprID
}

type Patterns struct {
	Arena *Arena[Pattern]
}

func NewPatterns(capHint uint) *Patterns {
	return &Patterns{Arena: NewArena[Pattern](capHint)}
}

func (p *Patterns) Get(id PatternID) *Pattern {
	return p.Arena.Get(uint32(id))
}

func (p *Patterns) NewWildcard(span source.Span) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatWildcard, Span: span}))
}

func (p *Patterns) NewBinding(span source.Span, name source.StringID, mutable bool) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatBinding, Span: span, Name: name, Mutable: mutable}))
}

func (p *Patterns) NewTuple(span source.Span, elems ...PatternID) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatTuple, Span: span, Elems: elems}))
}

func (p *Patterns) NewVariant(span source.Span, path []source.StringID, elems ...PatternID) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatVariant, Span: span, Path: path, Elems: elems}))
}

func (p *Patterns) NewLiteral(span source.Span, value ExprID) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatLiteral, Span: span, Value: value}))
}

// IsCatchAll reports whether the pattern matches every value.
func (p *Patterns) IsCatchAll(id PatternID) bool {
	pat := p.Get(id)
	if pat == nil {
		return false
	}
	switch pat.Kind {
	case PatWildcard, PatBinding:
		return true
	case PatTuple:
		for _, el := range pat.Elems {
			if !p.IsCatchAll(el) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Bindings collects binding sub-patterns in left-to-right order.
func (p *Patterns) Bindings(id PatternID) []PatternID {
	var out []PatternID
	var walk func(PatternID)
	walk = func(cur PatternID) {
		pat := p.Get(cur)
		if pat == nil {
			return
		}
		if pat.Kind == PatBinding {
			out = append(out, cur)
			return
		}
		for _, el := range pat.Elems {
			walk(el)
		}
	}
	walk(id)
	return out
}
