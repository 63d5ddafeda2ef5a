package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ownc/internal/diag"
	"ownc/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info *color.Color
	code, loc, ruler *color.Color
	note, fix, add, del *color.Color
}

func newPalette(on bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan, color.Bold),
		code:  color.New(color.Bold),
		loc:   color.New(color.FgWhite, color.Faint),
		ruler: color.New(color.FgBlue),
		note:  color.New(color.FgCyan),
		fix:   color.New(color.FgGreen),
		add:   color.New(color.FgGreen),
		del:   color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.loc, p.ruler, p.note, p.fix, p.add, p.del} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и Fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	pr := &printer{w: w, fs: fs, opts: opts, pal: newPalette(opts.Color)}
	items := bag.Items()
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	for i := range n {
		pr.diagnostic(&items[i])
	}
	if n < len(items) {
		fmt.Fprintf(w, "... and %d more\n", len(items)-n)
	}
	if d := bag.Dropped(); d > 0 {
		fmt.Fprintf(w, "... %d more suppressed by the diagnostics limit (%d)\n", d, bag.Cap())
	}
}

type printer struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
	pal  palette
}

func (p *printer) location(sp source.Span) (string, bool) {
	f := p.fs.Get(sp.File)
	if f == nil {
		return "", false
	}
	start, _ := p.fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", formatPath(f, p.opts.PathMode, p.opts.BaseDir), start.Line, start.Col), true
}

func (p *printer) diagnostic(d *diag.Diagnostic) {
	sev := p.pal.severity(d.Severity)
	loc, ok := p.location(d.Primary)
	if ok {
		fmt.Fprintf(p.w, "%s: ", p.pal.loc.Sprint(loc))
	}
	fmt.Fprintf(p.w, "%s %s: %s\n", sev.Sprint(d.Severity.String()), p.pal.code.Sprint(d.Code.ID()), d.Message)
	if ok {
		p.snippet(d.Primary, sev)
	}

	if p.opts.ShowNotes || d.Code == diag.IOInfo {
		for _, n := range d.Notes {
			if nloc, ok := p.location(n.Span); ok && !n.Span.Empty() {
				fmt.Fprintf(p.w, "  %s %s: %s\n", p.pal.note.Sprint("note:"), nloc, n.Msg)
			} else {
				fmt.Fprintf(p.w, "  %s %s\n", p.pal.note.Sprint("note:"), n.Msg)
			}
		}
	}

	if !p.opts.ShowFixes {
		if s := d.Suggestion(); s != "" {
			fmt.Fprintf(p.w, "  %s %s\n", p.pal.fix.Sprint("help:"), s)
		}
		return
	}
	for i, fx := range d.Fixes {
		fmt.Fprintf(p.w, "  %s %s\n", p.pal.fix.Sprint("fix #"+strconv.Itoa(i+1)+":"), fx.Title)
		for _, e := range fx.Edits {
			eloc, _ := p.location(e.Span)
			fmt.Fprintf(p.w, "    apply=%q at %s\n", e.NewText, eloc)
			if !p.opts.ShowPreview {
				continue
			}
			pv, err := buildFixEditPreview(p.fs, e)
			if err != nil {
				continue
			}
			fmt.Fprintln(p.w, "    preview:")
			for _, l := range pv.before {
				fmt.Fprintf(p.w, "      %s\n", p.pal.del.Sprint("- "+l))
			}
			for _, l := range pv.after {
				fmt.Fprintf(p.w, "      %s\n", p.pal.add.Sprint("+ "+l))
			}
		}
	}
}

// snippet печатает строку(и) span'а с контекстом и подчёркиванием.
func (p *printer) snippet(sp source.Span, sev *color.Color) {
	f := p.fs.Get(sp.File)
	if f == nil || f.Flags&source.FileNoContent != 0 || len(f.Content) == 0 {
		return
	}
	start, end := p.fs.Resolve(sp)
	ctx := uint32(max(p.opts.Context, 0))
	first := start.Line - min(ctx, start.Line-1)
	last := start.Line + ctx
	gutter := len(strconv.FormatUint(uint64(last), 10))

	for ln := first; ln <= last; ln++ {
		text := f.GetLine(ln)
		if ln > start.Line && text == "" {
			break
		}
		text = expandTabs(text)
		if p.opts.Width > 0 {
			text = runewidth.Truncate(text, int(p.opts.Width), "…")
		}
		fmt.Fprintf(p.w, "  %s %s %s\n", p.pal.ruler.Sprintf("%*d", gutter, ln), p.pal.ruler.Sprint("|"), text)
		if ln != start.Line {
			continue
		}
		raw := f.GetLine(ln)
		pad := displayWidth(raw, int(start.Col)-1)
		width := 1
		if end.Line == start.Line && end.Col > start.Col {
			width = displayWidth(raw, int(end.Col)-1) - pad
		} else if end.Line > start.Line {
			width = max(runewidth.StringWidth(expandTabs(raw))-pad, 1)
		}
		mark := "^" + strings.Repeat("~", max(width-1, 0))
		fmt.Fprintf(p.w, "  %s %s %s%s\n", strings.Repeat(" ", gutter), p.pal.ruler.Sprint("|"), strings.Repeat(" ", pad), sev.Sprint(mark))
	}
}

// displayWidth is the terminal width of the first n bytes of line.
func displayWidth(line string, n int) int {
	n = min(max(n, 0), len(line))
	return runewidth.StringWidth(expandTabs(line[:n]))
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			pad := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}
