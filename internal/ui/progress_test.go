package ui

import (
	"errors"
	"strings"
	"testing"

	"ownc/internal/driver"
)

func TestApplyEventTracksUnits(t *testing.T) {
	events := make(chan driver.ProgressEvent)
	m := NewProgressModel("checking", []string{"a.json", "b.json"}, events).(*progressModel)

	m.applyEvent(driver.ProgressEvent{Unit: "a.json", Stage: driver.StageResolve, Round: 2, Done: 1, Total: 2})
	m.applyEvent(driver.ProgressEvent{Unit: "b.json", Stage: driver.StageDone, Err: errors.New("boom")})
	m.applyEvent(driver.ProgressEvent{Unit: "unknown.json", Stage: driver.StageDone})

	if got := m.items[0].status; got != "round 2" {
		t.Fatalf("a.json status: %q", got)
	}
	if got := m.items[1].status; got != "error" {
		t.Fatalf("b.json status: %q", got)
	}
	// (0.1 + 0.5*0.5 + 1) / 2
	if got := m.percent(); got < 0.674 || got > 0.676 {
		t.Fatalf("percent: %v", got)
	}

	view := m.View()
	for _, want := range []string{"checking", "round 2", "a.json", "b.json"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
	long := truncate("a/very/long/unit.json", 10)
	if !strings.HasPrefix(long, "a/") || !strings.HasSuffix(long, "...") || len(long) > 10 {
		t.Fatalf("long path: %q", long)
	}
}
