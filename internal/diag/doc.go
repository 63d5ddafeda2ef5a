// Package diag defines the diagnostic model shared by the ownership engine.
//
// Findings of the usage analyzer, the registry cross-check and the
// move/borrow validator are never returned as Go errors. Phases emit them
// through a Reporter (usually a BagReporter over a per-function Bag) and the
// driver merges, sorts and deduplicates the bags once all workers have
// finished. Go errors are reserved for infrastructure failures.
//
// # Data model
//
//   - Severity – Info, Warning, Error. Only errors are fatal; an automatic
//     duplication is reported as Info so the cost stays visible.
//   - Code – numeric identifier with a stable string form (OWN1002). Each
//     engine code maps to one ErrorKind.
//   - Primary – the span of the offending use.
//   - Notes – related locations ("moved here", "trait declares &self here").
//   - Fixes – suggestions; the first one is the record's suggestion.
//
// Rendering lives in internal/diagfmt.
package diag
