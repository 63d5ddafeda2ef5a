// Package annot renders resolved ownership into the document code
// generation consumes: passing modes of parameters, receivers and loop
// bindings, reference hints at indexing sites and inserted duplications.
package annot

import (
	"sort"

	"ownc/internal/borrowck"
	"ownc/internal/ownership"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/types"
	"ownc/internal/usage"
)

// FormatVersion is bumped on incompatible document changes.
const FormatVersion = 1

type Location struct {
	File  string `json:"file"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Line  uint32 `json:"line"`
	Col   uint32 `json:"col"`
}

// Pass is how code generation passes or binds a value.
type Pass string

const (
	PassValue  Pass = "value" // copied, whatever the decision says
	PassMove   Pass = "move"
	PassRef    Pass = "ref"
	PassMutRef Pass = "mut_ref"
)

type Slot struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Decision string   `json:"decision"`
	Pass     Pass     `json:"pass"`
	Fixed    bool     `json:"fixed,omitempty"`
	Location Location `json:"location"`
}

type Loop struct {
	// Iter: into_iter, iter or iter_mut.
	Iter     string   `json:"iter"`
	Root     string   `json:"root,omitempty"`
	Bindings []Slot   `json:"bindings,omitempty"`
	Location Location `json:"location"`
}

type Match struct {
	// Mode: move or ref.
	Mode     string   `json:"mode"`
	Root     string   `json:"root,omitempty"`
	Location Location `json:"location"`
}

type Hint struct {
	Kind     string   `json:"kind"`
	Binding  string   `json:"binding,omitempty"`
	Location Location `json:"location"`
}

type Duplication struct {
	Name     string   `json:"name"`
	Reason   string   `json:"reason"`
	Location Location `json:"location"`
}

type Function struct {
	ID           string        `json:"id"`
	Receiver     *Slot         `json:"receiver,omitempty"`
	Params       []Slot        `json:"params"`
	Loops        []Loop        `json:"loops,omitempty"`
	Matches      []Match       `json:"matches,omitempty"`
	Hints        []Hint        `json:"hints,omitempty"`
	Duplications []Duplication `json:"duplications,omitempty"`
	Location     Location      `json:"location"`
}

// Document is the annotated output of one unit.
type Document struct {
	Version   int        `json:"version"`
	Unit      string     `json:"unit"`
	Strict    bool       `json:"strict,omitempty"`
	Functions []Function `json:"functions"`
}

// Builder converts resolutions of one unit.
type Builder struct {
	in *types.Interner
	fs *source.FileSet
}

func NewBuilder(in *types.Interner, fs *source.FileSet) *Builder {
	return &Builder{in: in, fs: fs}
}

func (b *Builder) location(sp source.Span) Location {
	loc := Location{Start: sp.Start, End: sp.End}
	if f := b.fs.Get(sp.File); f != nil {
		loc.File = f.Path
	}
	start, _ := b.fs.Resolve(sp)
	loc.Line, loc.Col = start.Line, start.Col
	return loc
}

// Function annotates one resolved and validated function; v may be nil
// when validation was skipped.
func (b *Builder) Function(r *ownership.Resolution, v *borrowck.Result) Function {
	u := r.Usage
	fn := Function{ID: string(r.Func), Params: make([]Slot, 0, len(u.Params))}
	if r.Entry != nil {
		fn.Location = b.location(r.Entry.Span)
	}
	if u.Receiver != usage.NoBindingID {
		s := b.slot(r, u.Receiver)
		fn.Receiver = &s
	}
	for _, id := range u.Params {
		fn.Params = append(fn.Params, b.slot(r, id))
	}

	for i := range u.Loops {
		site := &u.Loops[i]
		lp := Loop{Iter: "iter", Location: b.location(site.Span)}
		if root := u.Binding(site.Root); root != nil {
			lp.Root = root.Name
		}
		consumes := i < len(r.Loops) && r.Loops[i].Consumes
		switch {
		case consumes || (site.Owning && !site.Explicit):
			lp.Iter = "into_iter"
		case site.MutRef, i < len(r.Loops) && r.Loops[i].Binding == registry.MutBorrowed:
			lp.Iter = "iter_mut"
		}
		for _, id := range site.Bindings {
			lp.Bindings = append(lp.Bindings, b.slot(r, id))
		}
		fn.Loops = append(fn.Loops, lp)
	}

	for i := range u.Matches {
		site := &u.Matches[i]
		if site.Root == usage.NoBindingID {
			continue
		}
		m := Match{Mode: "ref", Root: u.Binding(site.Root).Name, Location: b.location(site.Span)}
		if i < len(r.Matches) && r.Matches[i] {
			m.Mode = "move"
		}
		fn.Matches = append(fn.Matches, m)
	}

	for _, h := range r.Hints {
		hint := Hint{Kind: h.Kind.String(), Location: b.location(h.Span)}
		if bd := u.Binding(h.Binding); bd != nil {
			hint.Binding = bd.Name
		}
		fn.Hints = append(fn.Hints, hint)
	}

	if v != nil {
		for _, d := range v.Duplications {
			reason := "use-after-move"
			if d.OutOfBorrow {
				reason = "out-of-borrow"
			}
			fn.Duplications = append(fn.Duplications, Duplication{Name: d.Name, Reason: reason, Location: b.location(d.Span)})
		}
	}
	return fn
}

func (b *Builder) slot(r *ownership.Resolution, id usage.BindingID) Slot {
	bd := r.Usage.Binding(id)
	d := r.Decision(id)
	s := Slot{
		Name:     bd.Name,
		Type:     b.in.Label(bd.Type),
		Decision: d.String(),
		Pass:     passOf(d, r.ByValue(id)),
		Location: b.location(bd.Span),
	}
	if e := r.Entry; e != nil {
		switch {
		case bd.Kind == usage.BindReceiver && e.HasReceiver:
			s.Fixed = e.Receiver.Fixed
		case bd.Kind == usage.BindParam && bd.Param >= 0 && bd.Param < len(e.Params):
			s.Fixed = e.Params[bd.Param].Fixed
		}
	}
	return s
}

func passOf(d registry.Decision, byValue bool) Pass {
	if byValue {
		return PassValue
	}
	switch d {
	case registry.Borrowed:
		return PassRef
	case registry.MutBorrowed:
		return PassMutRef
	default:
		return PassMove
	}
}

// Sort orders functions by id so documents are reproducible.
func (d *Document) Sort() {
	sort.Slice(d.Functions, func(i, j int) bool { return d.Functions[i].ID < d.Functions[j].ID })
}
