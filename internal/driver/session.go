package driver

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"ownc/internal/astio"
	"ownc/internal/borrowck"
	"ownc/internal/diag"
	"ownc/internal/ownership"
	"ownc/internal/registry"
	"ownc/internal/trace"
	"ownc/internal/typeclass"
	"ownc/internal/types"
	"ownc/internal/usage"
)

// Session keeps the engine state of one unit between checks so single
// functions can be re-resolved without starting over.
type Session struct {
	opts Options
	unit *astio.Unit

	types *types.Interner
	cls   *typeclass.Classifier
	an    *usage.Analyzer
	rs    *ownership.Resolver
	v     *borrowck.Validator
	reg   *registry.Registry
	// base is the registration snapshot; Recheck restarts from it.
	base *registry.Registry

	// register holds registration findings (trait signature mismatches).
	register *diag.Bag
	res      map[registry.FuncID]*ownership.Resolution
	// callers[f] lists functions whose bodies call f.
	callers map[registry.FuncID][]registry.FuncID

	rounds    int
	unsettled []registry.FuncID
}

// NewSession runs the registration barrier: every declaration of the unit
// is registered and frozen before any body is looked at.
func NewSession(ctx context.Context, u *astio.Unit, opts Options) (*Session, error) {
	opts = opts.normalized()
	s := &Session{
		opts:     opts,
		unit:     u,
		types:    types.NewInterner(),
		register: diag.NewBag(opts.MaxDiagnostics),
		res:      make(map[registry.FuncID]*ownership.Resolution),
		callers:  make(map[registry.FuncID][]registry.FuncID),
	}
	started := time.Now()
	phase := opts.Timer.Begin("register")
	sp := trace.Begin(ctx, trace.ScopePass, "register")

	decls := typeclass.Collect(u.Builder, s.types)
	reg, err := registry.Collect(u.Builder, s.types, decls, opts.Registry, diag.BagReporter{Bag: s.register})
	if err != nil {
		sp.End(err.Error())
		opts.Timer.End(phase, "failed")
		return nil, fmt.Errorf("register %s: %w", u.Path, err)
	}
	s.reg = reg
	s.base = reg
	s.cls = typeclass.New(s.types, decls)
	s.an = usage.New(u.Builder, s.cls, reg, opts.Usage)
	s.rs = ownership.New(s.cls)
	s.v = borrowck.New(u.Builder, s.cls, borrowck.Options{Strict: opts.Strict, Exhaustiveness: opts.Exhaustiveness})

	note := strconv.Itoa(reg.Len()) + " entries"
	sp.With("entries", strconv.Itoa(reg.Len())).End("")
	opts.Timer.End(phase, note)
	opts.progress(ProgressEvent{Unit: u.Path, Stage: StageRegister, Total: reg.Len(), Elapsed: time.Since(started)})
	return s, nil
}

func (s *Session) Registry() *registry.Registry { return s.reg }

func (s *Session) Resolution(id registry.FuncID) (*ownership.Resolution, bool) {
	r, ok := s.res[id]
	return r, ok
}

// Rounds is the number of rounds the last settle took.
func (s *Session) Rounds() int { return s.rounds }

// bodies lists entries with a body in registration order.
func (s *Session) bodies() []registry.FuncID {
	var out []registry.FuncID
	for _, id := range s.reg.IDs() {
		if e, ok := s.reg.Lookup(id); ok && e.HasBody {
			out = append(out, id)
		}
	}
	return out
}

// Resolve runs rounds over every function until no visible signature
// changes.
func (s *Session) Resolve(ctx context.Context) error {
	return s.settle(ctx, s.bodies())
}

// Recheck re-resolves ids after their bodies changed. The ids and all of
// their transitive callers are reset to their registration signatures and
// settled again, so an edit can lower a decision as well as raise it.
func (s *Session) Recheck(ctx context.Context, ids ...registry.FuncID) (*Result, error) {
	for _, id := range ids {
		e, ok := s.reg.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("recheck: unknown function %s", id)
		}
		if !e.HasBody {
			return nil, fmt.Errorf("recheck: %s has no body", id)
		}
	}
	affected := s.affectedBy(ids)
	next, _ := s.reg.Reset(s.base, affected)
	s.reg = next
	s.an = s.an.WithRegistry(next)
	s.opts.Logger.Debug("recheck", "unit", s.unit.Path, "edited", len(ids), "reset", len(affected))
	if err := s.settle(ctx, affected); err != nil {
		return nil, err
	}
	return s.Finish(ctx), nil
}

// affectedBy returns ids and their transitive callers in registration
// order.
func (s *Session) affectedBy(ids []registry.FuncID) []registry.FuncID {
	want := make(map[registry.FuncID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, c := range s.callersOf(ids, true) {
		want[c] = true
	}
	var out []registry.FuncID
	for _, id := range s.reg.IDs() {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}

// seed publishes signatures known from a previous run so rounds start
// from them.
func (s *Session) seed(sigs map[registry.FuncID]registry.Signature) []registry.FuncID {
	next, changed := s.reg.Publish(sigs)
	s.reg = next
	s.an = s.an.WithRegistry(next)
	return changed
}

func (s *Session) settle(ctx context.Context, pending []registry.FuncID) error {
	s.rounds = 0
	s.unsettled = nil
	phase := s.opts.Timer.Begin("resolve")
	defer func() { s.opts.Timer.End(phase, strconv.Itoa(s.rounds)+" rounds") }()

	for len(pending) > 0 {
		if s.rounds == s.opts.MaxRounds {
			s.unsettled = pending
			s.opts.Logger.Warn("resolution did not settle", "unit", s.unit.Path, "rounds", s.rounds, "pending", len(pending))
			return nil
		}
		s.rounds++
		sp := trace.Begin(ctx, trace.ScopePass, "resolve/round-"+strconv.Itoa(s.rounds))
		resolved, err := s.round(trace.Within(ctx, sp), pending)
		if err != nil {
			sp.End(err.Error())
			return err
		}

		updates := make(map[registry.FuncID]registry.Signature, len(resolved))
		for _, r := range resolved {
			s.res[r.Func] = r
			s.link(r)
			updates[r.Func] = r.Signature()
		}
		next, changed := s.reg.Publish(updates)
		s.reg = next
		s.an = s.an.WithRegistry(next)

		pending = s.callersOf(changed, false)
		sp.With("functions", strconv.Itoa(len(resolved))).
			With("changed", strconv.Itoa(len(changed))).
			End("")
		if len(changed) > 0 {
			s.opts.Logger.Debug("signatures changed", "unit", s.unit.Path, "round", s.rounds, "changed", len(changed), "rerun", len(pending))
		}
	}
	s.opts.Logger.Debug("resolution settled", "unit", s.unit.Path, "rounds", s.rounds)
	return nil
}

// round resolves ids in parallel against one frozen snapshot.
func (s *Session) round(ctx context.Context, ids []registry.FuncID) ([]*ownership.Resolution, error) {
	reg, an := s.reg, s.an
	out := make([]*ownership.Resolution, len(ids))
	total := len(ids)
	var done counter

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.opts.Jobs, max(total, 1)))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, ok := reg.Lookup(id)
			if !ok {
				return fmt.Errorf("resolve: no entry %s", id)
			}
			sp := trace.Begin(ctx, trace.ScopeFunction, "fn:"+string(id))
			out[i] = s.rs.Resolve(e, an.Analyze(e))
			sp.End("")
			s.opts.progress(ProgressEvent{Unit: s.unit.Path, Stage: StageResolve, Round: s.rounds, Done: done.inc(), Total: total})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) link(r *ownership.Resolution) {
	for _, callee := range r.Usage.Callees {
		if !slices.Contains(s.callers[callee], r.Func) {
			s.callers[callee] = append(s.callers[callee], r.Func)
		}
	}
}

// callersOf returns the callers of changed in registration order; with
// transitive set, callers of callers too.
func (s *Session) callersOf(changed []registry.FuncID, transitive bool) []registry.FuncID {
	if len(changed) == 0 {
		return nil
	}
	want := make(map[registry.FuncID]bool)
	queue := append([]registry.FuncID(nil), changed...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range s.callers[id] {
			if want[c] {
				continue
			}
			want[c] = true
			if transitive {
				queue = append(queue, c)
			}
		}
	}
	var out []registry.FuncID
	for _, id := range s.reg.IDs() {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}
