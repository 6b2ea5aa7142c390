// Package trace records what the runtime does while it loads extension
// modules and registers their symbols.
//
// # Usage
//
//	kestrel import --trace=- --trace-level=detail counter
//
// # Tracers
//
//   - Nop: used whenever tracing is off
//   - StreamTracer: writes each event as it arrives
//   - RingTracer: keeps the last N events for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Each event carries a scope. The level decides which scopes are emitted:
//
//   - LevelPhase: ScopeDriver and ScopeLoader (CLI commands, load requests)
//   - LevelDetail: adds ScopeModule (resolve/open/init of one module)
//   - LevelDebug: adds ScopeSymbol (every namespace and symbol registration)
//
// Tracers and the current span travel through a context. Spans opened under
// the same root share a track, so each load gets its own lane in Chrome output:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopeLoader, "load:counter")
//	defer span.End("")
//	open := span.Child(trace.ScopeModule, "open:counter")
package trace
