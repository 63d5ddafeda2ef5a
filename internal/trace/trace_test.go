package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	ctx := WithTracer(context.Background(), ring)

	pass := Begin(ctx, ScopePass, "validate")
	fn := Begin(Within(ctx, pass), ScopeFunction, "fn:walk")
	fn.End("")
	pass.With("functions", "1").End("")

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("phase level should keep only the pass span, got %d events", len(events))
	}
	if events[1].Kind != KindSpanEnd || events[1].Extra["functions"] != "1" {
		t.Fatalf("unexpected end event %+v", events[1])
	}
}

func TestParentLinksAndFormats(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelFunction, Output: &buf, Format: FormatNDJSON, RingSize: 8})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := WithTracer(context.Background(), tr)
	round := Begin(ctx, ScopePass, "resolve/round-1")
	Begin(Within(ctx, round), ScopeFunction, "fn:take").End("")
	round.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 ndjson lines, got %d: %q", len(lines), buf.String())
	}
	var inner jsonEvent
	if err := json.Unmarshal([]byte(lines[1]), &inner); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inner.Name != "fn:take" || inner.ParentID != round.ID() {
		t.Fatalf("function span should hang under the round, got %+v", inner)
	}
	ring := tr.(*MultiTracer).Ring()
	if ring == nil || len(ring.Snapshot()) != 4 {
		t.Fatalf("stream tracer must be paired with a ring")
	}
	var text bytes.Buffer
	if err := ring.Dump(&text, FormatText); err != nil || !strings.Contains(text.String(), "→ resolve/round-1") {
		t.Fatalf("text dump: %v %q", err, text.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelOff, "phase": LevelPhase, "FUNCTION": LevelFunction, "debug": LevelDebug} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected an error for unknown level")
	}
}
