package ast

import (
	"ownc/internal/source"
)

type Hints struct{ Files, Items, Stmts, Exprs, Patterns, Types uint }

// Builder owns every arena of one compilation unit. The parser collaborator
// (or astio) fills it; the engine only reads it.
type Builder struct {
	Strings  *source.Interner
	Files    *Files
	Items    *Items
	Stmts    *Stmts
	Exprs    *Exprs
	Patterns *Patterns
	Types    *TypeExprs
}

func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 2
	}
	if hints.Items == 0 {
		hints.Items = 1 << 6
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Patterns == 0 {
		hints.Patterns = 1 << 6
	}
	if hints.Types == 0 {
		hints.Types = 1 << 7
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Strings:  strings,
		Files:    NewFiles(hints.Files),
		Items:    NewItems(hints.Items),
		Stmts:    NewStmts(hints.Stmts),
		Exprs:    NewExprs(hints.Exprs),
		Patterns: NewPatterns(hints.Patterns),
		Types:    NewTypeExprs(hints.Types),
	}
}

// Intern is a shortcut for b.Strings.Intern.
func (b *Builder) Intern(s string) source.StringID {
	return b.Strings.Intern(s)
}

// Name resolves an interned identifier; unknown IDs yield "_".
func (b *Builder) Name(id source.StringID) string {
	if s, ok := b.Strings.Lookup(id); ok && s != "" {
		return s
	}
	return "_"
}

func (b *Builder) NewFile(sp source.Span, path string) FileID {
	return b.Files.New(sp, path)
}

func (b *Builder) PushItem(file FileID, item ItemID) {
	f := b.Files.Get(file)
	if f == nil {
		return
	}
	f.Items = append(f.Items, item)
}

// AllItems returns the top-level items of every file in declaration order.
func (b *Builder) AllItems() []ItemID {
	var out []ItemID
	for _, f := range b.Files.Arena.Slice() {
		out = append(out, f.Items...)
	}
	return out
}
