package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ownc/internal/annot"
	"ownc/internal/diagfmt"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [flags] <unit.json|unit.owb|directory>",
	Short: "Check units and emit ownership annotations",
	Long: `Run the same checks as check and, for every unit without fatal
diagnostics, print the annotations code generation consumes.
Diagnostics go to stderr so stdout carries only annotations`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringP("output", "o", "", "write annotations to a file (.owb for MessagePack); single unit only")
	annotateCmd.Flags().Bool("text", false, "print annotations for humans instead of JSON")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	run, err := newCheckRun(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	asText, err := cmd.Flags().GetBool("text")
	if err != nil {
		return fmt.Errorf("failed to get text flag: %w", err)
	}

	results, err := run.check(cmd, args[0])
	if err != nil {
		return err
	}
	if output != "" && len(results) != 1 {
		return fmt.Errorf("--output needs a single unit, got %d", len(results))
	}
	if err := run.print(cmd.ErrOrStderr(), results); err != nil {
		return err
	}

	for _, res := range results {
		if res.Document == nil {
			continue
		}
		switch {
		case output != "":
			if err := writeDocument(output, res.Document); err != nil {
				return err
			}
			app.logger.Info("annotations written", "unit", res.Path, "file", output)
		case asText:
			diagfmt.Annotations(cmd.OutOrStdout(), res.Document, diagfmt.PrettyOpts{Color: app.color, PathMode: run.paths})
		default:
			if err := annot.WriteJSON(cmd.OutOrStdout(), res.Document); err != nil {
				return err
			}
		}
	}
	if failed(results) {
		return exitCode(1)
	}
	return nil
}

func writeDocument(path string, doc *annot.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".owb") {
		data, err := annot.MarshalMsgpack(doc)
		if err == nil {
			_, err = f.Write(data)
		}
		if err != nil {
			_ = f.Close()
			return err
		}
	} else if err := annot.WriteJSON(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
