package workspace

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Preview is a line diff of one planned change.
type Preview struct {
	Path    string
	Action  Action
	Text    string
	Added   int
	Deleted int
}

// PreviewChange renders change as a unified-style line diff without
// touching the file.
func PreviewChange(change *Change) Preview {
	before, after := deref(change.Before), deref(change.After)
	p := Preview{Path: change.Rel, Action: change.Action}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", change.Rel, change.Rel)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, l := range splitKeep(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(l)
			if !strings.HasSuffix(l, "\n") {
				sb.WriteString("\n\\ No newline at end of file\n")
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				p.Added++
			case diffmatchpatch.DiffDelete:
				p.Deleted++
			}
		}
	}
	p.Text = sb.String()
	return p
}

// splitKeep splits text into lines, each keeping its newline.
func splitKeep(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
