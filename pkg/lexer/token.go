package lexer

import (
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/transform"
)

//go:generate go tool -modfile=../../tools/go.mod stringer -type=Kind -trimprefix=Kind

// Kind is the closed set of snippet token kinds.
type Kind int

const (
	KindEndOfText Kind = iota
	KindEscapeChar
	KindVisual
	KindTransformation
	KindTabStop
	KindMirror
	KindPythonCode
	KindVimLCode
	KindShellCode
)

// Token is one recognised construct of a snippet body. Plain text between
// constructs produces no token.
type Token struct {
	Kind  Kind
	Start position.Position
	End   position.Position

	// Number is set for tabstops, mirrors and transformations.
	Number int
	// Text is the escaped character, or the default text of a tabstop.
	Text string
	// Code is the script of the code kinds.
	Code string
	// Alternative is what a visual placeholder shows when nothing is selected.
	Alternative string
	// Transform is set for transformations and optionally for visual placeholders.
	Transform *transform.Transform
	// Indent is the indentation stripped from python code.
	Indent string
}

func (t Token) Range() position.Range {
	return position.Range{Start: t.Start, End: t.End}
}
