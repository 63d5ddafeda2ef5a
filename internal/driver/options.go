package driver

import (
	"io"
	"runtime"

	"github.com/charmbracelet/log"

	"ownc/internal/borrowck"
	"ownc/internal/config"
	"ownc/internal/observ"
	"ownc/internal/registry"
	"ownc/internal/usage"
)

type Options struct {
	Strict         bool
	MaxRounds      int
	Jobs           int
	MaxDiagnostics int

	Usage          usage.Options
	Registry       registry.Options
	Exhaustiveness borrowck.ExhaustivenessChecker
	// Timings attaches a per-unit phase report to the bag as an info
	// diagnostic.
	Timings bool

	// Cache, Progress, Timer and Logger are optional.
	Cache    *DiskCache
	Progress ProgressSink
	Timer    *observ.Timer
	Logger   *log.Logger
}

// FromConfig maps ownc.toml onto driver options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Strict:         cfg.Engine.Strict,
		MaxRounds:      cfg.Engine.MaxRounds,
		Jobs:           cfg.Engine.Jobs,
		MaxDiagnostics: cfg.Diagnostics.Max,
		Usage:          cfg.Usage(),
		Registry:       cfg.Registry(),
	}
}

func (o Options) normalized() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = config.DefaultMaxRounds
	}
	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = config.DefaultMaxDiagnostics
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

func (o Options) progress(ev ProgressEvent) {
	if o.Progress != nil {
		o.Progress.OnProgress(ev)
	}
}
