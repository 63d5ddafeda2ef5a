package borrowck

import (
	"fmt"
	"strings"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/types"
	"ownc/internal/typeclass"
)

// ExhaustivenessChecker decides pattern coverage of a match. Missing
// returns short names of uncovered cases, empty when every value is
// matched. Guarded arms are not passed in.
type ExhaustivenessChecker interface {
	Missing(scrutinee types.TypeID, arms []ast.PatternID) []string
}

// PatternChecker covers bool, Option, Result, tuples and user enums; any
// other type needs a catch-all arm.
type PatternChecker struct {
	b     *ast.Builder
	in    *types.Interner
	decls *typeclass.Table
}

func NewPatternChecker(b *ast.Builder, in *types.Interner, decls *typeclass.Table) *PatternChecker {
	return &PatternChecker{b: b, in: in, decls: decls}
}

type ctor struct {
	name    string
	payload []types.TypeID
	tuple   bool
}

const maxPatternDepth = 32

func (p *PatternChecker) Missing(scrutinee types.TypeID, arms []ast.PatternID) []string {
	rows := make([][]ast.PatternID, len(arms))
	for i, a := range arms {
		rows[i] = []ast.PatternID{a}
	}
	if p.in.Kind(p.in.Deref(scrutinee)) == types.KindUnknown {
		scrutinee = p.guess(arms)
	}
	ctors, ok := p.constructors(scrutinee)
	if !ok || !p.refutable(rows) {
		if p.exhaustive([]types.TypeID{scrutinee}, rows, 0) {
			return nil
		}
		return []string{"_"}
	}
	var missing []string
	for _, ct := range ctors {
		sub := p.specialize(rows, ct)
		if p.exhaustive(ct.payload, sub, 1) {
			continue
		}
		name := ct.name
		switch {
		case ct.tuple:
			name = "(..)"
		case len(sub) > 0 && len(ct.payload) > 0:
			name += "(..)"
		}
		missing = append(missing, name)
	}
	return missing
}

// exhaustive: rows cover every vector of values of tys.
func (p *PatternChecker) exhaustive(tys []types.TypeID, rows [][]ast.PatternID, depth int) bool {
	if len(rows) == 0 {
		return false
	}
	if len(tys) == 0 {
		return true
	}
	ctors, ok := p.constructors(tys[0])
	if !ok || depth > maxPatternDepth || !p.refutable(rows) {
		return p.exhaustive(tys[1:], p.defaults(rows), depth+1)
	}
	for _, ct := range ctors {
		next := append(append([]types.TypeID(nil), ct.payload...), tys[1:]...)
		if !p.exhaustive(next, p.specialize(rows, ct), depth+1) {
			return false
		}
	}
	return true
}

// refutable: some row restricts the first column.
func (p *PatternChecker) refutable(rows [][]ast.PatternID) bool {
	for _, row := range rows {
		if len(row) > 0 && !p.catchAll(row[0]) {
			return true
		}
	}
	return false
}

func (p *PatternChecker) catchAll(id ast.PatternID) bool {
	return !id.IsValid() || p.b.Patterns.IsCatchAll(id)
}

func (p *PatternChecker) defaults(rows [][]ast.PatternID) [][]ast.PatternID {
	var out [][]ast.PatternID
	for _, row := range rows {
		if len(row) > 0 && p.catchAll(row[0]) {
			out = append(out, row[1:])
		}
	}
	return out
}

// specialize keeps rows matching ct and expands its sub-patterns in front.
func (p *PatternChecker) specialize(rows [][]ast.PatternID, ct ctor) [][]ast.PatternID {
	var out [][]ast.PatternID
	n := len(ct.payload)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		head, rest := row[0], row[1:]
		var elems []ast.PatternID
		switch pat := p.b.Patterns.Get(head); {
		case p.catchAll(head):
		case pat == nil:
			continue
		case pat.Kind == ast.PatTuple && ct.tuple:
			elems = pat.Elems
		case pat.Kind == ast.PatVariant && len(pat.Path) > 0 && p.b.Name(pat.Path[len(pat.Path)-1]) == ct.name:
			elems = pat.Elems
		case pat.Kind == ast.PatLiteral && p.literal(pat.Value) == ct.name:
		default:
			continue
		}
		expanded := make([]ast.PatternID, n, n+len(rest))
		copy(expanded, elems)
		out = append(out, append(expanded, rest...))
	}
	return out
}

func (p *PatternChecker) literal(id ast.ExprID) string {
	lit, ok := p.b.Exprs.Literal(id)
	if !ok || lit.Kind != ast.LitBool {
		return ""
	}
	return p.b.Name(lit.Value)
}

// constructors lists the cases of enumerable types.
func (p *PatternChecker) constructors(ty types.TypeID) ([]ctor, bool) {
	base := p.in.Deref(ty)
	switch p.in.Kind(base) {
	case types.KindBool:
		return []ctor{{name: "true"}, {name: "false"}}, true
	case types.KindTuple:
		info, ok := p.in.TupleInfo(base)
		if !ok {
			return nil, false
		}
		return []ctor{{payload: info.Elems, tuple: true}}, true
	case types.KindNamed:
	default:
		return nil, false
	}
	info, ok := p.in.NamedInfo(base)
	if !ok {
		return nil, false
	}
	switch info.Name {
	case "Option":
		return []ctor{{name: "Some", payload: p.in.PayloadOf(base, "Some")}, {name: "None"}}, true
	case "Result":
		return []ctor{
			{name: "Ok", payload: p.in.PayloadOf(base, "Ok")},
			{name: "Err", payload: p.in.PayloadOf(base, "Err")},
		}, true
	}
	d, ok := p.decls.Lookup(info.Name)
	if !ok || !d.Enum {
		return nil, false
	}
	out := make([]ctor, 0, len(d.Variants))
	for _, v := range d.Variants {
		payload := make([]types.TypeID, len(v.Payload))
		for i, t := range v.Payload {
			payload[i] = p.decls.Instantiate(p.in, d, base, t)
		}
		out = append(out, ctor{name: v.Name, payload: payload})
	}
	return out, true
}

// guess recovers the enum from variant patterns when the scrutinee type is
// not known.
func (p *PatternChecker) guess(arms []ast.PatternID) types.TypeID {
	bi := p.in.Builtins()
	for _, a := range arms {
		pat := p.b.Patterns.Get(a)
		if pat == nil {
			continue
		}
		switch pat.Kind {
		case ast.PatLiteral:
			if p.literal(pat.Value) != "" {
				return bi.Bool
			}
		case ast.PatVariant:
			if len(pat.Path) == 0 {
				continue
			}
			name := p.b.Name(pat.Path[len(pat.Path)-1])
			switch name {
			case "Some", "None":
				return p.in.Named("Option", bi.Unknown)
			case "Ok", "Err":
				return p.in.Named("Result", bi.Unknown, bi.Unknown)
			}
			if len(pat.Path) > 1 {
				if d, ok := p.decls.Lookup(p.b.Name(pat.Path[0])); ok && d.Enum {
					return p.in.Named(d.Name)
				}
			}
			if d, ok := p.decls.EnumOfVariant(name); ok {
				return p.in.Named(d.Name)
			}
		}
	}
	return bi.Unknown
}

// matches reports every match site whose unguarded arms leave values
// uncovered.
func (c *checker) matches() {
	for i := range c.u.Matches {
		site := &c.u.Matches[i]
		arms := make([]ast.PatternID, 0, len(site.Arms))
		for j, a := range site.Arms {
			if j < len(site.Guarded) && site.Guarded[j] {
				continue
			}
			arms = append(arms, a)
		}
		missing := c.v.opts.Exhaustiveness.Missing(site.Type, arms)
		if len(missing) == 0 {
			continue
		}
		c.res.Errors++
		quoted := make([]string, len(missing))
		for j, m := range missing {
			quoted[j] = "`" + m + "`"
		}
		diag.ReportError(c.rep, diag.OwnNonExhaustiveMatch, site.Span,
			fmt.Sprintf("non-exhaustive match: %s not covered", strings.Join(quoted, ", "))).
			WithFix("add the missing arms or a `_` arm").
			Emit()
	}
}
