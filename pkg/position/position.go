package position

import (
	"fmt"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
)

// Position is a zero-based line and byte column inside a document.
type Position struct {
	Line int `json:"line" yaml:"line"`
	Col  int `json:"col" yaml:"col"`
}

func New(line, col int) Position {
	return Position{Line: line, Col: col}
}

// Compare returns -1, 0 or 1 depending on whether p sorts before, equal to or after o.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Col < o.Col:
		return -1
	case p.Col > o.Col:
		return 1
	}
	return 0
}

func (p Position) Less(o Position) bool {
	return p.Compare(o) < 0
}

func Min(a, b Position) Position {
	if b.Less(a) {
		return b
	}
	return a
}

// Diff returns the delta that turns o into p. Within one line it is a plain
// column delta; across lines the column carries the column of the later
// position, which is what Move expects.
func (p Position) Diff(o Position) Position {
	if p.Line == o.Line {
		return Position{Line: 0, Col: p.Col - o.Col}
	}
	if o.Less(p) {
		return Position{Line: p.Line - o.Line, Col: p.Col}
	}
	return Position{Line: p.Line - o.Line, Col: o.Col}
}

// Move shifts p after an edit that ended at pivot and changed the text by diff.
// Positions before the pivot are untouched.
func (p Position) Move(pivot, diff Position) Position {
	if p.Less(pivot) {
		return p
	}
	switch {
	case diff.Line == 0:
		if p.Line == pivot.Line {
			p.Col += diff.Col
		}
	case diff.Line > 0:
		if p.Line == pivot.Line {
			p.Col += diff.Col - pivot.Col
		}
		p.Line += diff.Line
	default:
		p.Line += diff.Line
		if p.Line == pivot.Line {
			p.Col += pivot.Col - diff.Col
		}
	}
	return p
}

// Advance returns the position reached after writing text starting at p.
func (p Position) Advance(text string) Position {
	nl := strings.Count(text, "\n")
	if nl == 0 {
		return Position{Line: p.Line, Col: p.Col + len(text)}
	}
	return Position{Line: p.Line + nl, Col: len(text) - strings.LastIndexByte(text, '\n') - 1}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Contains reports whether o lies inside r, bounds included.
func (r Range) Contains(o Range) bool {
	return r.Start.Compare(o.Start) <= 0 && o.End.Compare(r.End) <= 0
}

func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// RawPosition is a byte offset into a snippet body.
type RawPosition struct {
	Offset int
}

// GetLineAndColumn calculates the line and column number for a given position in the text
// Returns zero-based line and column numbers
func (p RawPosition) GetLineAndColumn(text string) (line, col int) {
	lastNewline := -1
	for i := 0; i < p.Offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			lastNewline = i
		}
	}
	return line, p.Offset - lastNewline - 1
}

// Resolve turns the raw offset into a Position inside a document where text
// was placed at start. Only the first line is shifted by the start column.
func (p RawPosition) Resolve(text string, start Position) Position {
	line, col := p.GetLineAndColumn(text)
	if line == 0 {
		return Position{Line: start.Line, Col: start.Col + col}
	}
	return Position{Line: start.Line + line, Col: col}
}

// GraphemeColumn converts a byte column on line into a count of user
// perceived characters. Columns past the end of the line are clamped.
func GraphemeColumn(line string, col int) (int, error) {
	if col > len(line) {
		col = len(line)
	}
	if col <= 0 {
		return 0, nil
	}
	return textseg.TokenCount([]byte(line[:col]), textseg.ScanGraphemeClusters)
}

// Error attaches the span of the offending text to Err.
type Error struct {
	Range Range
	Err   error
}

func (e *Error) Error() string {
	return e.Range.Start.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
