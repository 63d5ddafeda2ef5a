package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"

	"ownc/internal/annot"
)

// Annotations prints an annotated document for humans: one block per
// function with its passing modes, loop and match modes, reference hints
// and inserted duplications.
func Annotations(w io.Writer, doc *annot.Document, opts PrettyOpts) {
	if doc == nil {
		return
	}
	pal := newPalette(opts.Color)
	head := doc.Unit
	if doc.Strict {
		head += " (strict)"
	}
	fmt.Fprintf(w, "%s %s\n", pal.code.Sprint("unit"), head)

	loc := func(l annot.Location) string {
		path := l.File
		switch opts.PathMode {
		case PathModeBasename:
			path = filepath.Base(path)
		case PathModeRelative:
			if rel, err := filepath.Rel(opts.BaseDir, path); err == nil && opts.BaseDir != "" {
				path = filepath.ToSlash(rel)
			}
		}
		return pal.loc.Sprintf("%s:%d:%d", path, l.Line, l.Col)
	}
	slot := func(kind string, s annot.Slot) {
		fixed := ""
		if s.Fixed {
			fixed = " (written)"
		}
		fmt.Fprintf(w, "  %s %s: %s  %s -> %s%s\n", kind, s.Name, s.Type, s.Decision, pal.info.Sprint(string(s.Pass)), fixed)
	}

	for i := range doc.Functions {
		fn := &doc.Functions[i]
		fmt.Fprintf(w, "%s %s  %s\n", pal.code.Sprint("fn"), fn.ID, loc(fn.Location))
		if fn.Receiver != nil {
			slot("self", *fn.Receiver)
		}
		for _, p := range fn.Params {
			slot("param", p)
		}
		for _, lp := range fn.Loops {
			over := ""
			if lp.Root != "" {
				over = " over " + lp.Root
			}
			fmt.Fprintf(w, "  loop %s%s  %s\n", pal.info.Sprint(lp.Iter), over, loc(lp.Location))
			for _, b := range lp.Bindings {
				fmt.Fprintf(w, "    bind %s: %s  %s -> %s\n", b.Name, b.Type, b.Decision, pal.info.Sprint(string(b.Pass)))
			}
		}
		for _, m := range fn.Matches {
			fmt.Fprintf(w, "  match %s on %s  %s\n", pal.info.Sprint(m.Mode), m.Root, loc(m.Location))
		}
		for _, h := range fn.Hints {
			on := ""
			if h.Binding != "" {
				on = " " + h.Binding
			}
			fmt.Fprintf(w, "  hint %s%s  %s\n", h.Kind, on, loc(h.Location))
		}
		for _, d := range fn.Duplications {
			fmt.Fprintf(w, "  %s %s (%s)  %s\n", pal.warn.Sprint("dup"), d.Name, d.Reason, loc(d.Location))
		}
	}
}
