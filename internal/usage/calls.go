package usage

import (
	"strings"

	"ownc/internal/registry"
)

// Builtin callee sets. Extra names come from Options.
var (
	printLike   = []string{"print", "println", "eprint", "eprintln", "format", "write", "writeln", "dbg"}
	assertLike  = []string{"assert", "assert_eq", "assert_ne", "debug_assert", "debug_assert_eq", "debug_assert_ne"}
	panicLike   = []string{"panic", "todo", "unimplemented", "unreachable"}
	pushLike    = []string{"push", "push_back", "push_front", "insert", "push_str", "extend", "append", "add"}
	mutating    = []string{"push", "pop", "insert", "remove", "clear", "append", "extend", "push_front", "push_back", "pop_front", "pop_back", "retain", "dedup", "sort", "sort_by", "sort_by_key", "reverse", "swap", "push_str", "truncate", "drain", "entry", "get_mut", "iter_mut", "set", "add", "resize", "fill"}
	consumingMs = []string{"into_iter", "into_inner", "into_boxed_slice", "into_bytes", "into_keys", "into_values", "unwrap", "expect", "unwrap_or", "unwrap_or_default", "unwrap_or_else", "ok_or", "map_err"}
)

func setOf(lists ...[]string) map[string]bool {
	out := make(map[string]bool)
	for _, l := range lists {
		for _, s := range l {
			out[s] = true
		}
	}
	return out
}

// Options extends the builtin call and method tables.
type Options struct {
	// Void lists extra callees whose arguments never return ownership.
	Void []string
	// Consuming lists unknown callees that take their arguments by value.
	Consuming []string
	// MutatingMethods, ConsumingMethods and ReadingMethods override the
	// builtin method tables by name.
	MutatingMethods  []string
	ConsumingMethods []string
	ReadingMethods   []string
}

type callTables struct {
	void      map[string]bool
	diverging map[string]bool
	consuming map[string]bool
	mutating  map[string]bool
	consumeMs map[string]bool
	reading   map[string]bool
	push      map[string]bool
}

func newCallTables(opts Options) *callTables {
	t := &callTables{
		void:      setOf(printLike, assertLike, panicLike, opts.Void),
		diverging: setOf(panicLike),
		consuming: setOf(opts.Consuming),
		mutating:  setOf(mutating, opts.MutatingMethods),
		consumeMs: setOf(consumingMs, opts.ConsumingMethods),
		reading:   setOf(opts.ReadingMethods),
		push:      setOf(pushLike),
	}
	for name := range t.reading {
		delete(t.mutating, name)
		delete(t.consumeMs, name)
	}
	return t
}

// methodEffect classifies a method unknown to the registry by name.
func (t *callTables) methodEffect(name string) registry.Decision {
	switch {
	case t.reading[name]:
		return registry.Borrowed
	case t.mutating[name], strings.HasSuffix(name, "_mut"):
		return registry.MutBorrowed
	case t.consumeMs[name], strings.HasPrefix(name, "into_"):
		return registry.Owned
	default:
		return registry.Borrowed
	}
}

// callKind is the structural class of a call site.
type callKind uint8

const (
	callPlain callKind = iota
	callVoid
	callWrapper
	callDiverging
)
