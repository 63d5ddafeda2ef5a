// Package borrowck replays the control-flow skeleton of a resolved function
// and checks that moves, mutations and match patterns are consistent with
// the decided ownership.
package borrowck

import (
	"sort"

	"ownc/internal/ast"
	"ownc/internal/diag"
	"ownc/internal/ownership"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/typeclass"
	"ownc/internal/usage"
)

// Options of one validation pass.
type Options struct {
	// Strict turns implicit duplications into UseAfterMove errors.
	Strict bool
	// Exhaustiveness overrides the pattern coverage checker.
	Exhaustiveness ExhaustivenessChecker
}

// Duplication is an implicit `.clone()` inserted at a consuming site.
type Duplication struct {
	Binding usage.BindingID
	Name    string // binding name with the moved path, e.g. "p.name"
	Fact    int
	Expr    ast.ExprID
	Span    source.Span
	// OutOfBorrow: the value is moved out of a view rather than used after a move.
	OutOfBorrow bool
}

// Result of validating one function.
type Result struct {
	Func         registry.FuncID
	Duplications []Duplication
	Errors       int
}

// Validator is stateless between calls; Validate may run concurrently for
// different functions.
type Validator struct {
	b    *ast.Builder
	cls  *typeclass.Classifier
	opts Options
}

func New(b *ast.Builder, cls *typeclass.Classifier, opts Options) *Validator {
	if opts.Exhaustiveness == nil {
		opts.Exhaustiveness = NewPatternChecker(b, cls.Types(), cls.Decls())
	}
	return &Validator{b: b, cls: cls, opts: opts}
}

func (v *Validator) Strict() bool { return v.opts.Strict }

// Validate checks one resolved function and reports through rep.
func (v *Validator) Validate(r *ownership.Resolution, rep diag.Reporter) *Result {
	c := &checker{
		v:        v,
		r:        r,
		u:        r.Usage,
		rep:      rep,
		reported: make(map[int]bool),
		dupped:   make(map[int]bool),
		res:      &Result{Func: r.Func},
	}
	c.mutability()
	c.run(c.u.Flow, newState())
	c.matches()
	sort.SliceStable(c.res.Duplications, func(i, j int) bool {
		return c.res.Duplications[i].Fact < c.res.Duplications[j].Fact
	})
	return c.res
}

type loopFrame struct {
	breaks    []*state
	continues []*state
}

type checker struct {
	v   *Validator
	r   *ownership.Resolution
	u   *usage.Result
	rep diag.Reporter

	reported map[int]bool // use facts already reported
	dupped   map[int]bool // consuming facts turned into copies
	loops    []*loopFrame
	res      *Result
}

// run replays steps from cur and returns the state at the end, nil when
// every path diverges.
func (c *checker) run(steps []usage.Step, cur *state) *state {
	for i := range steps {
		if cur == nil {
			return nil
		}
		st := &steps[i]
		switch st.Kind {
		case usage.StepDecl:
			delete(cur.moves, st.Binding)
		case usage.StepFact:
			c.fact(st.Fact, cur)
		case usage.StepBranch:
			cur = c.branch(st, cur)
		case usage.StepLoop:
			cur = c.loop(st, cur)
		case usage.StepExit:
			c.exit(st, cur)
			cur = nil
		}
	}
	return cur
}

func (c *checker) branch(st *usage.Step, cur *state) *state {
	outs := make([]*state, 0, len(st.Arms)+1)
	for _, arm := range st.Arms {
		outs = append(outs, c.run(arm, cur.clone()))
	}
	if !st.Complete {
		outs = append(outs, cur)
	}
	return join(outs...)
}

// loop replays the body twice: the second pass sees what the first one
// moved, which is enough for a use in iteration n+1 of a value moved in n.
func (c *checker) loop(st *usage.Step, entry *state) *state {
	frame := &loopFrame{}
	c.loops = append(c.loops, frame)
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	var exits []*state
	if st.MayNotRun {
		exits = append(exits, entry)
	}
	in := entry
	for pass := 0; pass < 2; pass++ {
		frame.continues = nil
		end := c.run(st.Body, in.clone())
		next := join(append([]*state{end}, frame.continues...)...)
		if next == nil {
			break
		}
		if st.MayNotRun {
			exits = append(exits, next)
		}
		in = join(entry, next)
	}
	exits = append(exits, frame.breaks...)
	return join(exits...)
}

func (c *checker) exit(st *usage.Step, cur *state) {
	if len(c.loops) == 0 {
		return
	}
	frame := c.loops[len(c.loops)-1]
	switch st.Exit {
	case usage.ExitBreak:
		frame.breaks = append(frame.breaks, cur)
	case usage.ExitContinue:
		frame.continues = append(frame.continues, cur)
	}
}
