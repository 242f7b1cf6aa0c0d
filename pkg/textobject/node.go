package textobject

import (
	"strconv"

	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/transform"
)

// ID addresses a node inside its Tree. IDs are stable for the life of the tree.
type ID int

// NoID is the parent of the root.
const NoID ID = -1

type Kind int

const (
	KindRoot Kind = iota
	KindTabStop
	KindMirror
	KindTransformation
	KindEscapedChar
	KindVisual
	KindShellCode
	KindPythonCode
	KindVimLCode
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindTabStop:
		return "TabStop"
	case KindMirror:
		return "Mirror"
	case KindTransformation:
		return "Transformation"
	case KindEscapedChar:
		return "EscapedChar"
	case KindVisual:
		return "Visual"
	case KindShellCode:
		return "ShellCode"
	case KindPythonCode:
		return "PythonCode"
	case KindVimLCode:
		return "VimLCode"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is a text object. Only the fields of its kind are meaningful.
type Node struct {
	ID     ID
	Kind   Kind
	Parent ID
	Start  position.Position
	End    position.Position

	// InitialText is the body of the root, the default text of a tabstop or
	// the character of an escape.
	InitialText string
	// Number of a tabstop, or of the tabstop a mirror or transformation follows.
	Number int
	// Target is the tabstop a mirror or transformation is bound to.
	Target ID
	// Transform of a transformation or a visual placeholder.
	Transform *transform.Transform
	// Code and Lang of the code kinds.
	Code   string
	Lang   script.Lang
	Indent string
	// Alternative text of a visual placeholder.
	Alternative string

	children []ID
	placed   bool
}

func (n Node) Range() position.Range {
	return position.Range{Start: n.Start, End: n.End}
}

// Placed reports whether the node has been written to the document.
func (n Node) Placed() bool {
	return n.placed
}
