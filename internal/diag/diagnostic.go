package diag

import (
	"ownc/internal/source"
)

// Note is a related location with a short message ("moved here").
type Note struct {
	Span source.Span
	Msg  string
}

type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggestion. Edits may be empty when the fix is advisory only.
type Fix struct {
	Title string
	Edits []FixEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

// Suggestion returns the title of the first fix or "".
func (d *Diagnostic) Suggestion() string {
	if d == nil || len(d.Fixes) == 0 {
		return ""
	}
	return d.Fixes[0].Title
}

// IsFatal: errors block code generation.
func (d *Diagnostic) IsFatal() bool {
	return d != nil && d.Severity >= SevError
}
