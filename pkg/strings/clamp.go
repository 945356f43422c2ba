// Package strings carries small formatting helpers shared by the CLI
// output surfaces.
package strings

import "strings"

// DefaultCellWidth is the widest a table cell is rendered before clamping.
const DefaultCellWidth = 60

// minClampWidth leaves room for at least one rune plus the trailing "...".
const minClampWidth = 4

// ClampCell flattens s to a single line (runs of whitespace, including
// newlines, collapse to one space) and clamps it to width runes,
// appending "..." when anything was cut. Clamping counts runes rather
// than bytes so multi-byte characters are never split. A width below
// minClampWidth is raised to it.
func ClampCell(s string, width int) string {
	if width < minClampWidth {
		width = minClampWidth
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
