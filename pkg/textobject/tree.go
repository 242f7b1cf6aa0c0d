// Package textobject holds the tree of text objects a snippet body is parsed
// into, and renders each of them into a shared document.
package textobject

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/gosnips/pkg/document"
	"github.com/walteh/gosnips/pkg/lexer"
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/script"
)

type Options struct {
	// Engines evaluate the code kinds. Without engines code renders empty.
	Engines *script.Registry
	// Visual is the text that was selected when the snippet was triggered.
	Visual string
	// Indent prefixes the continuation lines of multi-line visual text.
	Indent string
}

// Tree is an arena of text objects rendering into one document.
type Tree struct {
	doc   *document.Document
	opts  Options
	nodes []*Node
	root  ID
}

func NewTree(doc *document.Document, opts Options) *Tree {
	return &Tree{doc: doc, opts: opts, root: NoID}
}

func (t *Tree) Document() *document.Document {
	return t.doc
}

func (t *Tree) Root() ID {
	return t.root
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id ID) Node {
	n := *t.nodes[id]
	n.children = nil
	return n
}

// Children returns the ordered children of id.
func (t *Tree) Children(id ID) []ID {
	return append([]ID(nil), t.nodes[id].children...)
}

// CurrentText is the document text currently covered by id.
func (t *Tree) CurrentText(id ID) string {
	n := t.nodes[id]
	return t.doc.Text(n.Start, n.End)
}

// add stores n and attaches it to its parent, keeping siblings ordered by start.
func (t *Tree) add(n *Node) ID {
	n.ID = ID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	if n.Parent == NoID {
		return n.ID
	}

	p := t.nodes[n.Parent]
	at := len(p.children)
	for i, c := range p.children {
		if n.Start.Less(t.nodes[c].Start) {
			at = i
			break
		}
	}
	p.children = append(p.children, NoID)
	copy(p.children[at+1:], p.children[at:])
	p.children[at] = n.ID
	return n.ID
}

// NewRoot creates the root object owning body, currently spanning start to end.
func (t *Tree) NewRoot(start, end position.Position, body string) ID {
	t.root = t.add(&Node{Kind: KindRoot, Parent: NoID, Target: NoID, Start: start, End: end, InitialText: body})
	return t.root
}

func (t *Tree) NewTabStop(parent ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindTabStop, Parent: parent, Target: NoID, Start: tok.Start, End: tok.End, Number: tok.Number, InitialText: tok.Text})
}

// NewEmptyTabStop creates a zero width tabstop at p.
func (t *Tree) NewEmptyTabStop(parent ID, number int, p position.Position) ID {
	return t.add(&Node{Kind: KindTabStop, Parent: parent, Target: NoID, Start: p, End: p, Number: number})
}

func (t *Tree) NewMirror(parent, target ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindMirror, Parent: parent, Target: target, Start: tok.Start, End: tok.End, Number: tok.Number})
}

func (t *Tree) NewTransformation(parent, target ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindTransformation, Parent: parent, Target: target, Start: tok.Start, End: tok.End, Number: tok.Number, Transform: tok.Transform})
}

func (t *Tree) NewEscapedChar(parent ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindEscapedChar, Parent: parent, Target: NoID, Start: tok.Start, End: tok.End, InitialText: tok.Text})
}

func (t *Tree) NewVisual(parent ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindVisual, Parent: parent, Target: NoID, Start: tok.Start, End: tok.End, Alternative: tok.Alternative, Transform: tok.Transform})
}

func (t *Tree) NewShellCode(parent ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindShellCode, Parent: parent, Target: NoID, Start: tok.Start, End: tok.End, Code: tok.Code, Lang: script.LangShell})
}

func (t *Tree) NewPythonCode(parent ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindPythonCode, Parent: parent, Target: NoID, Start: tok.Start, End: tok.End, Code: tok.Code, Lang: script.LangPython, Indent: tok.Indent})
}

func (t *Tree) NewVimLCode(parent ID, tok lexer.Token) ID {
	return t.add(&Node{Kind: KindVimLCode, Parent: parent, Target: NoID, Start: tok.Start, End: tok.End, Code: tok.Code, Lang: script.LangVim})
}

// Overwrite renders id, writes the result over its current span and shifts
// every object after it.
func (t *Tree) Overwrite(ctx context.Context, id ID) {
	n := t.nodes[id]
	text := t.render(ctx, n)

	oldEnd := n.End
	n.End = t.doc.Replace(n.Start, n.End, text)
	n.placed = true

	zerolog.Ctx(ctx).Trace().
		Stringer("kind", n.Kind).
		Int("id", int(id)).
		Stringer("start", n.Start).
		Stringer("old_end", oldEnd).
		Stringer("end", n.End).
		Msg("placed text object")

	if n.Parent != NoID && n.End != oldEnd {
		t.childMoved(n.Parent, id, position.Min(oldEnd, n.End), n.End.Diff(oldEnd))
	}
}

func (t *Tree) childMoved(parent, child ID, pivot, diff position.Position) {
	p := t.nodes[parent]
	p.End = p.End.Move(pivot, diff)

	after := false
	for _, c := range p.children {
		if after {
			t.move(c, pivot, diff)
		}
		if c == child {
			after = true
		}
	}

	if p.Parent != NoID {
		t.childMoved(p.Parent, parent, pivot, diff)
	}
}

func (t *Tree) move(id ID, pivot, diff position.Position) {
	n := t.nodes[id]
	n.Start = n.Start.Move(pivot, diff)
	n.End = n.End.Move(pivot, diff)
	for _, c := range n.children {
		t.move(c, pivot, diff)
	}
}

func (t *Tree) render(ctx context.Context, n *Node) string {
	switch n.Kind {
	case KindRoot, KindTabStop, KindEscapedChar:
		return n.InitialText
	case KindMirror:
		return t.CurrentText(n.Target)
	case KindTransformation:
		return n.Transform.Apply(t.CurrentText(n.Target))
	case KindVisual:
		return t.visualText(n)
	case KindShellCode, KindPythonCode, KindVimLCode:
		return t.eval(ctx, n)
	}
	return ""
}

func (t *Tree) visualText(n *Node) string {
	text := t.opts.Visual
	if text == "" {
		text = n.Alternative
	}
	if t.opts.Indent != "" {
		text = strings.ReplaceAll(text, "\n", "\n"+t.opts.Indent)
	}
	if n.Transform != nil {
		text = n.Transform.Apply(text)
	}
	return text
}

func (t *Tree) eval(ctx context.Context, n *Node) string {
	logger := zerolog.Ctx(ctx)
	if t.opts.Engines == nil {
		logger.Warn().Str("lang", string(n.Lang)).Msg("no script engines configured, rendering code empty")
		return ""
	}

	out, err := t.opts.Engines.Eval(ctx, script.Request{
		Lang:     n.Lang,
		Code:     n.Code,
		Indent:   n.Indent,
		TabStops: t.placedTabStops(),
		Visual:   t.opts.Visual,
	})
	if err != nil {
		logger.Warn().Err(err).Str("lang", string(n.Lang)).Stringer("at", n.Start).Msg("code evaluation failed, rendering empty")
		return ""
	}
	return out
}

func (t *Tree) placedTabStops() map[int]string {
	out := make(map[int]string)
	for _, n := range t.nodes {
		if n.Kind == KindTabStop && n.placed {
			if _, dup := out[n.Number]; !dup {
				out[n.Number] = t.doc.Text(n.Start, n.End)
			}
		}
	}
	return out
}
