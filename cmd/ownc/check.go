package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ownc/internal/astio"
	"ownc/internal/diag"
	"ownc/internal/diagfmt"
	"ownc/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit.json|unit.owb|directory>",
	Short: "Infer ownership and report move and mutation errors",
	Long: `Decode one unit document, or every *.json and *.owb unit in a directory,
run ownership inference and validation, and print the diagnostics`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

// init registers flags shared by check and annotate.
func init() {
	for _, cmd := range []*cobra.Command{checkCmd, annotateCmd} {
		f := cmd.Flags()
		f.String("format", "", "diagnostics format (pretty|json|short, default from config)")
		f.Bool("strict", false, "reject every would-be automatic duplication")
		f.Int("jobs", 0, "max parallel workers (0=from config, then GOMAXPROCS)")
		f.Int("max-rounds", 0, "bound on resolution rounds (0=from config)")
		f.Bool("cache", false, "reuse resolved signatures from the disk cache")
		f.String("ui", "auto", "progress view for several units (auto|on|off)")
		f.Bool("timings", false, "report phase timings as info diagnostics")
		f.Bool("with-notes", false, "include diagnostic notes in output")
		f.Bool("suggest", false, "include fix suggestions with their edits")
		f.Bool("preview", false, "show fix previews (implies --suggest)")
		f.Bool("fullpath", false, "emit absolute file paths in output")
		f.Bool("errors-only", false, "print fatal diagnostics only")
	}
}

type checkRun struct {
	opts    driver.Options
	format  string
	uiMode  string
	notes   bool
	fixes   bool
	preview bool
	errOnly bool
	paths   diagfmt.PathMode
}

// newCheckRun reads the shared flags over the loaded config.
func newCheckRun(cmd *cobra.Command) (*checkRun, error) {
	cfg := app.cfg
	f := cmd.Flags()
	var err error

	if f.Changed("strict") {
		if cfg.Engine.Strict, err = f.GetBool("strict"); err != nil {
			return nil, err
		}
	}
	if f.Changed("jobs") {
		if cfg.Engine.Jobs, err = f.GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	if f.Changed("max-rounds") {
		if cfg.Engine.MaxRounds, err = f.GetInt("max-rounds"); err != nil {
			return nil, err
		}
		if cfg.Engine.MaxRounds < 1 {
			return nil, fmt.Errorf("--max-rounds must be at least 1")
		}
	}
	if f.Changed("format") {
		if cfg.Diagnostics.Format, err = f.GetString("format"); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	run := &checkRun{opts: driver.FromConfig(&cfg), format: cfg.Diagnostics.Format}
	run.opts.Logger = app.logger
	if run.opts.Timings, err = f.GetBool("timings"); err != nil {
		return nil, err
	}
	if run.uiMode, err = f.GetString("ui"); err != nil {
		return nil, err
	}
	if run.notes, err = f.GetBool("with-notes"); err != nil {
		return nil, err
	}
	if run.fixes, err = f.GetBool("suggest"); err != nil {
		return nil, err
	}
	if run.preview, err = f.GetBool("preview"); err != nil {
		return nil, err
	}
	run.fixes = run.fixes || run.preview
	if run.errOnly, err = f.GetBool("errors-only"); err != nil {
		return nil, err
	}
	fullPath, err := f.GetBool("fullpath")
	if err != nil {
		return nil, err
	}
	run.paths = diagfmt.PathModeAuto
	if fullPath {
		run.paths = diagfmt.PathModeAbsolute
	}

	useCache, err := f.GetBool("cache")
	if err != nil {
		return nil, err
	}
	if useCache {
		cache, err := driver.OpenDiskCache("ownc")
		if err != nil {
			app.logger.Warn("disk cache unavailable", "err", err)
		} else {
			app.logger.Debug("disk cache", "dir", cache.Dir())
			run.opts.Cache = cache
		}
	}
	return run, nil
}

// unitPaths expands a directory into its unit files.
func unitPaths(target string) ([]string, error) {
	st, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	if !st.IsDir() {
		return []string{target}, nil
	}
	paths, err := astio.Discover(target)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no unit files (*.json, *.owb) in %s", target)
	}
	return paths, nil
}

func (r *checkRun) check(cmd *cobra.Command, target string) ([]*driver.Result, error) {
	defer dumpTraceOnPanic()

	paths, err := unitPaths(target)
	if err != nil {
		return nil, err
	}
	showUI := false
	if len(paths) > 1 && r.format == "pretty" {
		if showUI, err = autoMode(r.uiMode, os.Stderr); err != nil {
			return nil, fmt.Errorf("--ui: %w", err)
		}
	}

	var results []*driver.Result
	if showUI {
		results, err = checkWithUI(cmd.Context(), "checking "+filepath.ToSlash(target), paths, r.opts)
	} else {
		results, err = driver.CheckFiles(cmd.Context(), paths, r.opts)
	}
	if err != nil {
		return nil, fmt.Errorf("check failed: %w", err)
	}

	var errs, warns int
	for _, res := range results {
		errs += res.Bag.Count(diag.SevError)
		warns += res.Bag.Count(diag.SevWarning)
		if res.CacheHit {
			app.logger.Debug("signatures reused from cache", "unit", res.Path, "rounds", res.Rounds)
		}
	}
	app.logger.Debug("checked", "units", len(results), "errors", errs, "warnings", warns)
	return results, nil
}

func (r *checkRun) print(w io.Writer, results []*driver.Result) error {
	if r.errOnly {
		// ошибки остаются в Bag, код выхода тот же
		for _, res := range results {
			res.Bag.Filter((*diag.Diagnostic).IsFatal)
		}
	}
	if r.format == "short" {
		for _, res := range results {
			if out := diag.FormatShortDiagnostics(res.Bag.Items(), res.Files, r.notes); out != "" {
				fmt.Fprintln(w, out)
			}
			if d := res.Bag.Dropped(); d > 0 {
				fmt.Fprintf(w, "... %d more suppressed by the diagnostics limit\n", d)
			}
		}
		return nil
	}
	if r.format == "json" {
		out := make([]diagfmt.DiagnosticsOutput, 0, len(results))
		for _, res := range results {
			o := diagfmt.BuildDiagnosticsOutput(res.Bag, res.Files, diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         r.paths,
				IncludeNotes:     r.notes,
				IncludeFixes:     r.fixes,
				IncludePreviews:  r.preview,
			})
			o.Unit = res.Path
			out = append(out, o)
		}
		return diagfmt.JSONUnits(w, out)
	}
	opts := diagfmt.PrettyOpts{
		Color:       app.color,
		Context:     2,
		PathMode:    r.paths,
		ShowNotes:   r.notes,
		ShowFixes:   r.fixes,
		ShowPreview: r.preview,
	}
	for _, res := range results {
		diagfmt.Pretty(w, res.Bag, res.Files, opts)
	}
	return nil
}

func failed(results []*driver.Result) bool {
	for _, res := range results {
		if res.Failed() {
			return true
		}
	}
	return false
}

func runCheck(cmd *cobra.Command, args []string) error {
	run, err := newCheckRun(cmd)
	if err != nil {
		return err
	}
	results, err := run.check(cmd, args[0])
	if err != nil {
		return err
	}
	if err := run.print(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if run.format == "pretty" {
		summary(cmd.ErrOrStderr(), results)
	}
	if failed(results) {
		return exitCode(1)
	}
	return nil
}

func summary(w io.Writer, results []*driver.Result) {
	var errs, warns int
	for _, res := range results {
		errs += res.Bag.Count(diag.SevError)
		warns += res.Bag.Count(diag.SevWarning)
	}
	units := "unit"
	if len(results) != 1 {
		units = "units"
	}
	parts := []string{fmt.Sprintf("%d %s", len(results), units)}
	if errs > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errs))
	}
	if warns > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warns))
	}
	if errs == 0 && warns == 0 {
		parts = append(parts, "ok")
	}
	fmt.Fprintf(w, "checked %s\n", strings.Join(parts, ", "))
}
