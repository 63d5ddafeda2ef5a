package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
}

// Enabled is false for nil tracers and LevelOff.
func Enabled(t Tracer) bool {
	return t != nil && t.Level() > LevelOff
}

type Config struct {
	Level Level
	// Output wins over OutputPath. With neither set events go to a ring
	// buffer only.
	Output     io.Writer
	OutputPath string // "-" is stderr
	Format     Format
	RingSize   int
}

// New builds the tracer described by cfg. A stream tracer is always paired
// with a ring so the last events can be dumped after a crash.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	ring := NewRingTracer(cfg.RingSize, cfg.Level)
	if cfg.Output == nil && cfg.OutputPath == "" {
		return ring, nil
	}
	w := cfg.Output
	if w == nil {
		if cfg.OutputPath == "-" {
			w = os.Stderr
		} else {
			f, err := os.Create(cfg.OutputPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open trace output: %w", err)
			}
			w = f
		}
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") || strings.HasSuffix(cfg.OutputPath, ".jsonl") {
			format = FormatNDJSON
		}
	}
	return NewMultiTracer(cfg.Level, NewStreamTracer(w, cfg.Level, format), ring), nil
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }
func (nopTracer) Level() Level { return LevelOff }

var Nop Tracer = nopTracer{}
