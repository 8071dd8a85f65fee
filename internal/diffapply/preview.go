package diffapply

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Preview renders a human-readable unified-style diff between old and new
// content; no pipeline stage attaches it to ExecutionResult notes or
// stream progress events. Adapted
// from the teacher's internal/diff/diff.go Engine: its hunk/cache machinery
// (built for an interactive TUI diff viewer) is dropped in favor of a
// single line-oriented render, since nothing downstream consumes Hunk
// structs — only a printable string.
func Preview(path, oldContent, newContent string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", path, path)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&out, "%s%s\n", prefix, line)
		}
	}
	return out.String()
}
