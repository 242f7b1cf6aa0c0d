// Package diff renders readable differences between documents and values.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Lines returns a line diff turning before into after, or "" when they are equal.
func Lines(before, after string) string {
	if before == after {
		return ""
	}
	return diff.Diff(before, after) + "\n"
}

// DiffExportedOnly pretty prints the exported fields of want and got and
// returns their difference, or "" when they match.
func DiffExportedOnly[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)

	lines := diff.Diff(printer.Sprint(got), printer.Sprint(want))
	if lines == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nto convert ACTUAL to EXPECTED:\n\n")
	b.WriteString("add:    +\n")
	b.WriteString("remove: -\n\n")
	b.WriteString(lines)
	return b.String()
}
