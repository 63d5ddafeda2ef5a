package driver

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ownc/internal/annot"
	"ownc/internal/borrowck"
	"ownc/internal/diag"
	"ownc/internal/ownership"
	"ownc/internal/registry"
	"ownc/internal/source"
	"ownc/internal/trace"
)

// Result of checking one unit. Document is nil while any fatal
// diagnostic is open: code generation never sees a rejected unit.
type Result struct {
	Path     string
	Bag      *diag.Bag
	Files    *source.FileSet
	Registry *registry.Registry
	Rounds   int
	// Converged is false when max_rounds cut resolution short.
	Converged   bool
	CacheHit    bool
	Resolutions map[registry.FuncID]*ownership.Resolution
	Validations map[registry.FuncID]*borrowck.Result
	Document    *annot.Document
}

func (r *Result) Failed() bool {
	return r == nil || r.Bag == nil || r.Bag.HasErrors()
}

type counter struct{ n atomic.Int64 }

func (c *counter) inc() int { return int(c.n.Add(1)) }

// Finish validates every resolved function against the final snapshot and
// collects the unit's diagnostics.
func (s *Session) Finish(ctx context.Context) *Result {
	started := time.Now()
	phase := s.opts.Timer.Begin("validate")
	sp := trace.Begin(ctx, trace.ScopePass, "validate")

	bag := diag.NewBag(s.opts.MaxDiagnostics)
	bag.Merge(s.register)
	// повторный проход по циклам может сообщить одно и то же дважды
	dedup := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	rep := diag.NewSyncReporter(dedup)

	for _, id := range s.unsettled {
		e, _ := s.reg.Lookup(id)
		diag.ReportError(rep, diag.OwnAmbiguousOwnership, e.Span,
			fmt.Sprintf("ownership of `%s` did not settle after %d rounds", e.Name, s.rounds)).
			WithFix("write the passing modes of its parameters explicitly").
			Emit()
	}

	ids := s.bodies()
	results := make([]*borrowck.Result, len(ids))
	var done counter
	g := new(errgroup.Group)
	g.SetLimit(min(s.opts.Jobs, max(len(ids), 1)))
	for i, id := range ids {
		r, ok := s.res[id]
		if !ok {
			continue
		}
		g.Go(func() error {
			fsp := trace.Begin(trace.Within(ctx, sp), trace.ScopeFunction, "fn:"+string(id))
			ownership.ReportAmbiguities(r.Usage, rep)
			results[i] = s.v.Validate(r, rep)
			fsp.End("")
			s.opts.progress(ProgressEvent{Unit: s.unit.Path, Stage: StageValidate, Done: done.inc(), Total: len(ids)})
			return nil
		})
	}
	// воркеры ошибок не возвращают
	_ = g.Wait()
	bag.Sort()
	if n := dedup.Suppressed(); n > 0 {
		s.opts.Logger.Debug("repeated findings dropped", "unit", s.unit.Path, "count", n)
	}

	out := &Result{
		Path:        s.unit.Path,
		Bag:         bag,
		Files:       s.unit.Files,
		Registry:    s.reg,
		Rounds:      s.rounds,
		Converged:   len(s.unsettled) == 0,
		Resolutions: make(map[registry.FuncID]*ownership.Resolution, len(s.res)),
		Validations: make(map[registry.FuncID]*borrowck.Result, len(ids)),
	}
	for i, id := range ids {
		if r, ok := s.res[id]; ok {
			out.Resolutions[id] = r
		}
		if results[i] != nil {
			out.Validations[id] = results[i]
		}
	}
	errs := bag.Count(diag.SevError)
	sp.With("errors", strconv.Itoa(errs)).End("")
	s.opts.Timer.End(phase, strconv.Itoa(errs)+" errors")

	if !bag.HasErrors() {
		out.Document = s.annotate(ids, out)
	}
	s.opts.progress(ProgressEvent{Unit: s.unit.Path, Stage: StageDone, Errors: errs, Elapsed: time.Since(started)})
	return out
}

func (s *Session) annotate(ids []registry.FuncID, res *Result) *annot.Document {
	ab := annot.NewBuilder(s.types, s.unit.Files)
	doc := &annot.Document{Version: annot.FormatVersion, Unit: s.unit.Path, Strict: s.opts.Strict}
	for _, id := range ids {
		r, ok := res.Resolutions[id]
		if !ok {
			continue
		}
		doc.Functions = append(doc.Functions, ab.Function(r, res.Validations[id]))
	}
	doc.Sort()
	return doc
}
