package driver

import (
	"context"
	"crypto/sha256"
	"slices"
	"strings"
	"sync"
	"testing"

	"ownc/internal/annot"
	"ownc/internal/ast"
	"ownc/internal/astio"
	"ownc/internal/diag"
	"ownc/internal/registry"
	"ownc/internal/testkit"
	"ownc/internal/trace"
)

func unitOf(u *testkit.Unit, name string) *astio.Unit {
	u.Finish()
	return &astio.Unit{
		Path:    name,
		Builder: u.B,
		File:    u.File,
		Files:   u.Files,
		Digest:  sha256.Sum256([]byte(name)),
	}
}

// chain: outer(x) -> inner(y) -> take(z: owned). outer only learns that x
// is consumed once inner's signature is published.
func chain(innerTakes bool) (*testkit.Unit, ast.ItemID) {
	u := testkit.NewUnit()
	u.Struct("Item").Field("name", u.T("String")).Add()
	u.Fn("take").ParamHint("z", u.T("Item"), ast.HintOwned).Add()
	callee := "println"
	if innerTakes {
		callee = "take"
	}
	inner := u.Fn("inner").Param("y", u.T("Item")).Body(u.E(u.Call(callee, u.Id("y")))).Add()
	u.Fn("outer").Param("x", u.T("Item")).Body(u.E(u.Call("inner", u.Id("x")))).Add()
	return u, inner
}

func codes(bag *diag.Bag, sev diag.Severity) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		if d.Severity == sev {
			out = append(out, d.Code)
		}
	}
	return out
}

func param(t *testing.T, reg *registry.Registry, id registry.FuncID) registry.Decision {
	t.Helper()
	e, ok := reg.Lookup(id)
	if !ok || len(e.Params) == 0 {
		t.Fatalf("no entry %s with params", id)
	}
	return e.Params[0].Decision
}

func TestRoundsPropagateSignatures(t *testing.T) {
	u, _ := chain(true)
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)

	res, err := Check(ctx, unitOf(u, "chain"), Options{Jobs: 2})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected diagnostics: %+v", res.Bag.Items())
	}
	if res.Rounds != 2 || !res.Converged {
		t.Fatalf("expected 2 rounds to converge, got %d (converged=%v)", res.Rounds, res.Converged)
	}
	if got := param(t, res.Registry, "outer"); got != registry.Owned {
		t.Fatalf("outer.x: expected Owned after propagation, got %s", got)
	}
	if res.Document == nil || len(res.Document.Functions) != 2 {
		t.Fatalf("expected annotations for 2 bodies, got %+v", res.Document)
	}

	var names []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin {
			names = append(names, ev.Name)
		}
	}
	for _, want := range []string{"register", "resolve/round-1", "resolve/round-2", "validate"} {
		if !slices.Contains(names, want) {
			t.Fatalf("missing %q span in %v", want, names)
		}
	}
}

func TestMaxRoundsReportsAmbiguity(t *testing.T) {
	u, _ := chain(true)
	res, err := Check(context.Background(), unitOf(u, "capped"), Options{MaxRounds: 1})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Converged {
		t.Fatalf("one round cannot settle the chain")
	}
	if got := codes(res.Bag, diag.SevError); !slices.Contains(got, diag.OwnAmbiguousOwnership) {
		t.Fatalf("expected AmbiguousOwnership, got %v", got)
	}
	if res.Document != nil {
		t.Fatalf("annotations must not be produced for a failed unit")
	}
}

func TestFatalDiagnosticsBlockAnnotations(t *testing.T) {
	u := testkit.NewUnit()
	u.Struct("Item").Field("name", u.T("String")).Add()
	u.Fn("take").ParamHint("z", u.T("Item"), ast.HintOwned).Add()
	u.Fn("twice").Body(
		u.Let("a", u.StructLit("Item", u.FI("name", u.Str("x")))),
		u.E(u.Call("take", u.Id("a"))),
		u.E(u.Call("take", u.Id("a"))),
	).Add()
	res, err := Check(context.Background(), unitOf(u, "twice"), Options{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := codes(res.Bag, diag.SevError); len(got) != 1 || got[0] != diag.OwnUseAfterMove {
		t.Fatalf("expected one UseAfterMove, got %v", got)
	}
	if !res.Failed() || res.Document != nil {
		t.Fatalf("failed unit must carry no document")
	}
}

func TestDiagnosticsLimitKeepsTheGate(t *testing.T) {
	u := testkit.NewUnit()
	u.Struct("Item").Field("name", u.T("String")).Derive("Clone").Add()
	u.Fn("take").ParamHint("z", u.T("Item"), ast.HintOwned).Add()
	item := func() ast.ExprID { return u.StructLit("Item", u.FI("name", u.Str("x"))) }
	u.Fn("a_dups").Body(
		u.Let("a", item()),
		u.E(u.Call("take", u.Id("a"))),
		u.E(u.Call("take", u.Id("a"))),
	).Add()
	u.Fn("b_bad").Body(
		u.Let("v", item()),
		u.Assign(u.Sel("v.name"), u.Str("y")),
	).Add()

	for _, limit := range []int{1, 200} {
		res, err := Check(context.Background(), unitOf(u, "limited"), Options{Jobs: 1, MaxDiagnostics: limit})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !res.Failed() || res.Document != nil {
			t.Fatalf("limit %d: the mutation error must fail the unit", limit)
		}
		if got := codes(res.Bag, diag.SevError); !slices.Contains(got, diag.OwnImmutableMutation) {
			t.Fatalf("limit %d: the error must stay visible, got %v", limit, res.Bag.Items())
		}
		if res.Bag.Count(diag.SevInfo) != 1 {
			t.Fatalf("limit %d: the duplication must still be counted", limit)
		}
	}
}

func TestRecheckRerunsTransitiveCallers(t *testing.T) {
	u, inner := chain(false)
	u.Fn("top").Param("w", u.T("Item")).Body(u.E(u.Call("outer", u.Id("w")))).Add()
	ctx := context.Background()
	s, err := NewSession(ctx, unitOf(u, "recheck"), Options{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := s.Resolve(ctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res := s.Finish(ctx); res.Failed() {
		t.Fatalf("unexpected diagnostics: %+v", res.Bag.Items())
	}
	if got := param(t, s.Registry(), "top"); got != registry.Borrowed {
		t.Fatalf("top.w: expected Borrowed before the edit, got %s", got)
	}

	// inner now consumes its argument
	fn, _ := u.B.Items.Fn(inner)
	fn.Body = u.Block(u.E(u.Call("take", u.Id("y"))))

	res, err := s.Recheck(ctx, "inner")
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	for _, id := range []registry.FuncID{"inner", "outer", "top"} {
		if got := param(t, res.Registry, id); got != registry.Owned {
			t.Fatalf("%s: expected Owned after recheck, got %s", id, got)
		}
	}
	top, _ := s.Resolution("top")
	if top.Param(0) != registry.Owned {
		t.Fatalf("top must have been re-resolved")
	}
	if _, err := s.Recheck(ctx, "nope"); err == nil {
		t.Fatalf("expected an error for an unknown function")
	}
}

func TestRecheckLowersSignatures(t *testing.T) {
	u, inner := chain(true)
	ctx := context.Background()
	s, err := NewSession(ctx, unitOf(u, "lower"), Options{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := s.Resolve(ctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := param(t, s.Registry(), "outer"); got != registry.Owned {
		t.Fatalf("outer.x: expected Owned before the edit, got %s", got)
	}

	// inner stops consuming its argument
	fn, _ := u.B.Items.Fn(inner)
	fn.Body = u.Block(u.E(u.Call("println", u.Id("y"))))

	res, err := s.Recheck(ctx, "inner")
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected diagnostics: %+v", res.Bag.Items())
	}
	for _, id := range []registry.FuncID{"inner", "outer"} {
		if got := param(t, res.Registry, id); got != registry.Borrowed {
			t.Fatalf("%s: expected Borrowed after recheck, got %s", id, got)
		}
		r, _ := s.Resolution(id)
		if r.Param(0) != registry.Borrowed {
			t.Fatalf("%s: resolution disagrees with the registry: %s", id, r.Param(0))
		}
	}
	if got := param(t, res.Registry, "take"); got != registry.Owned {
		t.Fatalf("fixed slots survive a reset, got %s", got)
	}
	for _, f := range res.Document.Functions {
		if f.ID == "outer" && f.Params[0].Pass == annot.PassMove {
			t.Fatalf("outer must no longer move into inner: %+v", f.Params[0])
		}
	}
}

func TestDiskCacheSeedsSignatures(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	opts := Options{Cache: cache}

	u1, _ := chain(true)
	first, err := Check(context.Background(), unitOf(u1, "cached"), opts)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if first.CacheHit || first.Rounds != 2 {
		t.Fatalf("first run: hit=%v rounds=%d", first.CacheHit, first.Rounds)
	}

	u2, _ := chain(true)
	second, err := Check(context.Background(), unitOf(u2, "cached"), opts)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !second.CacheHit || second.Rounds != 1 {
		t.Fatalf("second run should start from cached signatures: hit=%v rounds=%d", second.CacheHit, second.Rounds)
	}
	if got := param(t, second.Registry, "outer"); got != registry.Owned {
		t.Fatalf("outer.x: expected Owned, got %s", got)
	}

	strict := opts
	strict.Strict = true
	u3, _ := chain(true)
	third, err := Check(context.Background(), unitOf(u3, "cached"), strict)
	if err != nil {
		t.Fatalf("third check: %v", err)
	}
	if third.CacheHit {
		t.Fatalf("strict mode must use its own cache key")
	}
}

func TestCheckFilesReportsProgress(t *testing.T) {
	var (
		mu     sync.Mutex
		stages = map[string][]Stage{}
	)
	sink := ProgressFunc(func(ev ProgressEvent) {
		mu.Lock()
		stages[ev.Unit] = append(stages[ev.Unit], ev.Stage)
		mu.Unlock()
	})
	missing := t.TempDir() + "/missing.json"
	results, err := CheckFiles(context.Background(), []string{missing}, Options{Progress: sink})
	if err != nil {
		t.Fatalf("check files: %v", err)
	}
	if len(results) != 1 || !results[0].Failed() {
		t.Fatalf("missing unit must fail")
	}
	if got := codes(results[0].Bag, diag.SevError); len(got) != 1 || got[0] != diag.IOLoadFileError {
		t.Fatalf("expected a load error, got %v", got)
	}
	if s := stages[missing]; len(s) == 0 || s[len(s)-1] != StageDone {
		t.Fatalf("progress must end with done, got %v", s)
	}
}

func TestDocumentCarriesStrictFlag(t *testing.T) {
	u, _ := chain(true)
	res, err := Check(context.Background(), unitOf(u, "strict"), Options{Strict: true})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Document == nil || !res.Document.Strict {
		t.Fatalf("expected a strict document")
	}
	var outer *annot.Function
	for i := range res.Document.Functions {
		if res.Document.Functions[i].ID == "outer" {
			outer = &res.Document.Functions[i]
		}
	}
	if outer == nil || outer.Params[0].Pass != annot.PassMove {
		t.Fatalf("outer.x should be passed by move, got %+v", outer)
	}
}

func TestTimingsAttachInfoDiagnostic(t *testing.T) {
	u, _ := chain(true)
	res, err := Check(context.Background(), unitOf(u, "timed"), Options{Timings: true})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Failed() {
		t.Fatalf("timings must not fail the unit")
	}
	infos := codes(res.Bag, diag.SevInfo)
	if !slices.Contains(infos, diag.IOInfo) {
		t.Fatalf("expected a timing info diagnostic, got %v", infos)
	}
	for _, d := range res.Bag.Items() {
		if d.Code == diag.IOInfo && (len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, `"phases"`)) {
			t.Fatalf("timing note should hold the JSON report: %+v", d.Notes)
		}
	}
}
