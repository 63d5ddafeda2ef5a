package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestString(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	origNoColor := color.NoColor
	defer func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
		color.NoColor = origNoColor
	}()
	color.NoColor = true

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "ownc 0.1.0-dev"},
		{"1.2.3", "abc123", "", "ownc 1.2.3 (abc123)"},
		{"1.2.3", "abc123", "2026-01-15", "ownc 1.2.3 (abc123) built 2026-01-15"},
		{"nightly", "", "", "ownc nightly"},
	}
	for _, tt := range tests {
		Version, GitCommit, BuildDate = tt.version, tt.commit, tt.date
		if got := String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}
