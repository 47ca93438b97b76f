package cli

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/roach88/immutag/internal/project"
)

// lineDiff renders a line-level diff of a dry-run document change.
func lineDiff(path, before, after string) string {
	return labeledDiff(path, path+" (dry run)", before, after)
}

func labeledDiff(from, to, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", from, to)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// splitLines splits text into lines without their terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ChangeResult is the JSON payload of a mutating command.
type ChangeResult struct {
	Path    string `json:"path"`
	DryRun  bool   `json:"dry_run"`
	Changed bool   `json:"changed"`
	Diff    string `json:"diff,omitempty"`
}

// reportChange prints the outcome of a mutation. Dry runs print the diff;
// otherwise text output is the summary line.
func reportChange(f *OutputFormatter, change project.Change, summary string) error {
	result := ChangeResult{Path: change.Path, DryRun: change.DryRun, Changed: change.Changed()}
	if change.DryRun {
		result.Diff = lineDiff(change.Path, change.Before, change.After)
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	if change.DryRun {
		fmt.Fprint(f.Writer, result.Diff)
		return nil
	}
	fmt.Fprintln(f.Writer, summary)
	return nil
}
