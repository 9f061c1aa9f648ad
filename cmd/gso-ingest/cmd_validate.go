package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gso-bench/gso-ingest/internal/trajectory"
	"github.com/gso-bench/gso-ingest/internal/validation"
)

func newValidateCommand() *cobra.Command {
	var kindName string

	kinds := make([]string, len(validation.Kinds))
	for i, k := range validation.Kinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check trajectories, reports or the model registry against their schemas",
		Long: `Validate files against the embedded JSON schemas.

With --kind trajectory (the default) every non-blank line of the file is checked
on its own; compressed output.jsonl.gz and .zst files are accepted. Other kinds
validate the whole file as one document.

Kinds: ` + strings.Join(kinds, ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validation.ParseKind(kindName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				ok, err := validateFile(out, kind, path)
				if err != nil {
					return err
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", string(validation.KindTrajectory), "Schema to validate against")

	return cmd
}

//nolint:errcheck
func validateFile(out io.Writer, kind validation.Kind, path string) (bool, error) {
	if kind != validation.KindTrajectory {
		data, err := os.ReadFile(path)
		if err != nil {
			return false, fmt.Errorf("reading %s: %w", path, err)
		}
		issues := validation.ValidateBytes(kind, data)
		printIssues(out, path, issues)
		return len(issues) == 0, nil
	}

	lines, _, err := trajectory.ReadFile(path)
	if err != nil {
		return false, err
	}
	bad := 0
	for _, line := range lines {
		issues := validation.ValidateBytes(kind, line.Data)
		if len(issues) == 0 {
			continue
		}
		bad++
		printIssues(out, fmt.Sprintf("%s:%d", path, line.Number), issues)
	}
	if bad == 0 {
		fmt.Fprintf(out, "✓ %s (%d lines)\n", path, len(lines))
	}
	return bad == 0, nil
}

//nolint:errcheck
func printIssues(out io.Writer, where string, issues []string) {
	if len(issues) == 0 {
		fmt.Fprintf(out, "✓ %s\n", where)
		return
	}
	fmt.Fprintf(out, "✗ %s\n", where)
	for _, issue := range issues {
		fmt.Fprintf(out, "    %s\n", issue)
	}
}
