// Package trace records what the engine is doing while it runs: the
// registration barrier, every resolution round, validation, and with a
// finer level each function resolved inside a round.
//
// Enable it from the command line:
//
//	ownc check --trace=- --trace-level=function unit.json
//
// Tracers travel in a context.Context:
//
//	ctx = trace.WithTracer(ctx, t)
//	sp := trace.Begin(ctx, trace.ScopePass, "validate")
//	defer sp.End("")
//
// Levels filter by scope: phase keeps driver and pass events, function adds
// per-function spans, debug keeps everything.
package trace
