package driver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ownc/internal/astio"
	"ownc/internal/diag"
	"ownc/internal/observ"
	"ownc/internal/source"
	"ownc/internal/trace"
)

// Check runs the whole engine over one decoded unit.
func Check(ctx context.Context, u *astio.Unit, opts Options) (*Result, error) {
	opts = opts.normalized()
	if opts.Timings && opts.Timer == nil {
		opts.Timer = observ.NewTimer()
	}
	sp := trace.Begin(ctx, trace.ScopeDriver, "check "+u.Path)
	defer sp.End("")
	ctx = trace.Within(ctx, sp)

	s, err := NewSession(ctx, u, opts)
	if err != nil {
		return nil, err
	}

	key := cacheKey(u.Digest, opts)
	hit := false
	if opts.Cache != nil {
		var payload DiskPayload
		ok, err := opts.Cache.Get(key, &payload)
		switch {
		case err != nil:
			opts.Logger.Warn("cache read failed", "unit", u.Path, "err", err)
		case ok && !payload.Broken:
			if sigs := payload.signatures(); sigs != nil {
				s.seed(sigs)
				hit = true
				opts.Logger.Debug("cache hit", "unit", u.Path, "signatures", len(sigs))
			}
		default:
			opts.Logger.Debug("cache miss", "unit", u.Path)
		}
	}

	if err := s.Resolve(ctx); err != nil {
		return nil, err
	}
	res := s.Finish(ctx)
	res.CacheHit = hit

	if opts.Cache != nil && res.Converged {
		if err := opts.Cache.Put(key, newPayload(u.Path, res)); err != nil {
			opts.Logger.Warn("cache write failed", "unit", u.Path, "err", err)
		}
	}
	if opts.Timings {
		appendTimingDiagnostic(res.Bag, u.Path, opts.Timer.Report())
	}
	return res, nil
}

// CheckFile loads and checks one unit file. Load failures are returned as
// a result carrying one IO diagnostic, not as an error.
func CheckFile(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.normalized()
	if opts.Timings && opts.Timer == nil {
		// один таймер на юнит: загрузка попадает в тот же отчёт
		opts.Timer = observ.NewTimer()
	}
	if inner := opts.Progress; inner != nil {
		// события юнита помечаются путём файла, а не путём из документа
		opts.Progress = ProgressFunc(func(ev ProgressEvent) {
			ev.Unit = path
			inner.OnProgress(ev)
		})
	}
	started := time.Now()
	phase := opts.Timer.Begin("load")
	u, err := astio.Load(path)
	if err != nil {
		opts.Timer.End(phase, "failed")
		opts.progress(ProgressEvent{Unit: path, Stage: StageDone, Errors: 1, Err: err, Elapsed: time.Since(started)})
		return loadFailure(path, err, opts.MaxDiagnostics), nil
	}
	opts.Timer.End(phase, "")
	opts.progress(ProgressEvent{Unit: path, Stage: StageLoad, Elapsed: time.Since(started)})
	return Check(ctx, u, opts)
}

// CheckFiles checks independent units in parallel; results keep the order
// of paths.
func CheckFiles(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	opts = opts.normalized()
	out := make([]*Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.Jobs, max(len(paths), 1)))
	for i, path := range paths {
		g.Go(func() error {
			res, err := CheckFile(gctx, path, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func loadFailure(path string, err error, maxDiagnostics int) *Result {
	bag := diag.NewBag(maxDiagnostics)
	bag.Add(diag.NewError(astio.Code(err), source.Span{}, err.Error()))
	return &Result{Path: path, Bag: bag, Files: source.NewFileSet()}
}
