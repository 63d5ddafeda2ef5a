package usage

import "ownc/internal/source"

// StepKind enumerates flow skeleton steps.
type StepKind uint8

const (
	StepFact StepKind = iota
	// StepDecl (re)declares a binding; a declaration inside a loop body is a
	// fresh value on every iteration.
	StepDecl
	StepBranch
	StepLoop
	StepExit
)

type ExitKind uint8

const (
	ExitReturn ExitKind = iota
	ExitBreak
	ExitContinue
	// ExitPanic: diverging call (panic, unreachable, ...).
	ExitPanic
)

// Step is one node of the flow skeleton the validator replays. Facts keep
// source order; branches and loops keep their structure.
type Step struct {
	Kind    StepKind
	Fact    int       // StepFact
	Binding BindingID // StepDecl
	// Arms of a branch. Complete means one arm always runs; an incomplete
	// branch (if without else) has an implicit empty arm.
	Arms     [][]Step
	Complete bool
	// Body of a loop. MayNotRun is set for `for` and `while`.
	Body      []Step
	MayNotRun bool
	Exit      ExitKind
	Span      source.Span
}
