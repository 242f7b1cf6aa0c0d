package textobject_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/document"
	"github.com/walteh/gosnips/pkg/lexer"
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/textobject"
	"github.com/walteh/gosnips/pkg/transform"
)

func tok(kind lexer.Kind, start, end position.Position) lexer.Token {
	return lexer.Token{Kind: kind, Start: start, End: end}
}

func TestChildrenStayOrderedByStart(t *testing.T) {
	tree := textobject.NewTree(document.New(""), textobject.Options{})
	root := tree.NewRoot(position.New(0, 0), position.New(0, 0), "x ${1:abc} $1 y")

	ts := tok(lexer.KindTabStop, position.New(0, 2), position.New(0, 10))
	ts.Number = 1
	mi := tok(lexer.KindMirror, position.New(0, 11), position.New(0, 13))
	mi.Number = 1

	tsID := tree.NewTabStop(root, ts)
	mirrorID := tree.NewMirror(root, tsID, mi)
	escID := tree.NewEscapedChar(root, tok(lexer.KindEscapeChar, position.New(0, 0), position.New(0, 1)))

	assert.Equal(t, []textobject.ID{escID, tsID, mirrorID}, tree.Children(root))

	children := tree.Children(root)
	children[0] = 99
	assert.Equal(t, escID, tree.Children(root)[0], "children accessor returns a copy")

	node := tree.Node(mirrorID)
	assert.Equal(t, textobject.KindMirror, node.Kind)
	assert.Equal(t, tsID, node.Target)
	assert.Equal(t, root, node.Parent)
	assert.False(t, node.Placed())
}

func TestOverwriteShiftsLaterSiblings(t *testing.T) {
	ctx := context.Background()
	doc := document.New("")
	tree := textobject.NewTree(doc, textobject.Options{})
	root := tree.NewRoot(position.New(0, 0), position.New(0, 0), "x ${1:abc} $1 y")

	ts := tok(lexer.KindTabStop, position.New(0, 2), position.New(0, 10))
	ts.Number = 1
	ts.Text = "abc"
	mi := tok(lexer.KindMirror, position.New(0, 11), position.New(0, 13))
	mi.Number = 1

	tsID := tree.NewTabStop(root, ts)
	mirrorID := tree.NewMirror(root, tsID, mi)

	tree.Overwrite(ctx, root)
	require.Equal(t, "x ${1:abc} $1 y", doc.String())
	assert.Equal(t, position.New(0, 15), tree.Node(root).End)

	tree.Overwrite(ctx, tsID)
	require.Equal(t, "x abc $1 y", doc.String())
	assert.Equal(t, position.Range{Start: position.New(0, 2), End: position.New(0, 5)}, tree.Node(tsID).Range())
	assert.Equal(t, position.Range{Start: position.New(0, 6), End: position.New(0, 8)}, tree.Node(mirrorID).Range())
	assert.Equal(t, position.New(0, 10), tree.Node(root).End)

	tree.Overwrite(ctx, mirrorID)
	require.Equal(t, "x abc abc y", doc.String())
	assert.Equal(t, position.Range{Start: position.New(0, 6), End: position.New(0, 9)}, tree.Node(mirrorID).Range())
	assert.Equal(t, position.New(0, 11), tree.Node(root).End)
	assert.Equal(t, "abc", tree.CurrentText(mirrorID))
}

func TestOverwriteAcrossLines(t *testing.T) {
	ctx := context.Background()
	doc := document.New("")
	tree := textobject.NewTree(doc, textobject.Options{})
	root := tree.NewRoot(position.New(0, 0), position.New(0, 0), "a\n${1:x\ny}\n$1")

	ts := tok(lexer.KindTabStop, position.New(1, 0), position.New(2, 2))
	ts.Number = 1
	ts.Text = "x\ny"
	mi := tok(lexer.KindMirror, position.New(3, 0), position.New(3, 2))
	mi.Number = 1

	tsID := tree.NewTabStop(root, ts)
	mirrorID := tree.NewMirror(root, tsID, mi)

	for _, id := range []textobject.ID{root, tsID, mirrorID} {
		tree.Overwrite(ctx, id)
	}

	assert.Equal(t, "a\nx\ny\nx\ny", doc.String())
	assert.Equal(t, position.Range{Start: position.New(1, 0), End: position.New(2, 1)}, tree.Node(tsID).Range())
	assert.Equal(t, position.Range{Start: position.New(3, 0), End: position.New(4, 1)}, tree.Node(mirrorID).Range())
	assert.Equal(t, position.New(4, 1), tree.Node(root).End)
}

func TestTransformationRendersBoundTabStop(t *testing.T) {
	ctx := context.Background()
	doc := document.New("")
	tree := textobject.NewTree(doc, textobject.Options{})
	root := tree.NewRoot(position.New(0, 0), position.New(0, 0), "${1:hello} ${1/l/L/g}")

	ts := tok(lexer.KindTabStop, position.New(0, 0), position.New(0, 10))
	ts.Number = 1
	ts.Text = "hello"
	tr := tok(lexer.KindTransformation, position.New(0, 11), position.New(0, 21))
	tr.Number = 1
	tr.Transform = transform.MustCompile("l", "L", "g")

	tsID := tree.NewTabStop(root, ts)
	trID := tree.NewTransformation(root, tsID, tr)

	for _, id := range []textobject.ID{root, tsID, trID} {
		tree.Overwrite(ctx, id)
	}

	assert.Equal(t, "hello heLLo", doc.String())
}

func TestVisual(t *testing.T) {
	tests := []struct {
		name  string
		opts  textobject.Options
		token lexer.Token
		want  string
	}{
		{
			name:  "selected text",
			opts:  textobject.Options{Visual: "sel"},
			token: lexer.Token{Kind: lexer.KindVisual, End: position.New(0, 9), Alternative: "alt"},
			want:  "sel",
		},
		{
			name:  "alternative when nothing is selected",
			token: lexer.Token{Kind: lexer.KindVisual, End: position.New(0, 9), Alternative: "alt"},
			want:  "alt",
		},
		{
			name:  "continuation lines are indented",
			opts:  textobject.Options{Visual: "one\ntwo", Indent: "\t"},
			token: lexer.Token{Kind: lexer.KindVisual, End: position.New(0, 9)},
			want:  "one\n\ttwo",
		},
		{
			name:  "transformed",
			opts:  textobject.Options{Visual: "abc"},
			token: lexer.Token{Kind: lexer.KindVisual, End: position.New(0, 9), Transform: transform.MustCompile("b", "B", "")},
			want:  "aBc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			doc := document.New("")
			tree := textobject.NewTree(doc, tt.opts)
			root := tree.NewRoot(position.New(0, 0), position.New(0, 0), "${VISUAL}")
			id := tree.NewVisual(root, tt.token)

			tree.Overwrite(ctx, root)
			tree.Overwrite(ctx, id)

			assert.Equal(t, tt.want, doc.String())
		})
	}
}

func TestCodeUsesEngines(t *testing.T) {
	ctx := context.Background()

	shell := &MockEngine{}
	python := &MockEngine{}
	shell.On("Eval", mock.Anything, mock.MatchedBy(func(r script.Request) bool {
		return r.Lang == script.LangShell && r.Code == "echo hi"
	})).Return("HI", nil).Once()
	python.On("Eval", mock.Anything, mock.MatchedBy(func(r script.Request) bool {
		return r.Lang == script.LangPython && r.TabStops[1] == "one" && r.Indent == "  "
	})).Return("", errors.New("boom")).Once()

	engines := script.NewRegistry()
	engines.Register(script.LangShell, shell)
	engines.Register(script.LangPython, python)

	doc := document.New("")
	tree := textobject.NewTree(doc, textobject.Options{Engines: engines})
	body := "${1:one}`echo hi``!p x`"
	root := tree.NewRoot(position.New(0, 0), position.New(0, 0), body)

	ts := tok(lexer.KindTabStop, position.New(0, 0), position.New(0, 8))
	ts.Number = 1
	ts.Text = "one"
	sh := tok(lexer.KindShellCode, position.New(0, 8), position.New(0, 17))
	sh.Code = "echo hi"
	py := tok(lexer.KindPythonCode, position.New(0, 17), position.New(0, 24))
	py.Code = "x"
	py.Indent = "  "

	ids := []textobject.ID{root, tree.NewTabStop(root, ts), tree.NewShellCode(root, sh), tree.NewPythonCode(root, py)}
	for _, id := range ids {
		tree.Overwrite(ctx, id)
	}

	assert.Equal(t, "oneHI", doc.String())
	shell.AssertExpectations(t)
	python.AssertExpectations(t)
}

func TestCodeWithoutEnginesRendersEmpty(t *testing.T) {
	ctx := context.Background()
	doc := document.New("")
	tree := textobject.NewTree(doc, textobject.Options{})
	root := tree.NewRoot(position.New(0, 0), position.New(0, 0), "a`!v 1`b")

	vim := tok(lexer.KindVimLCode, position.New(0, 1), position.New(0, 7))
	vim.Code = "1"
	id := tree.NewVimLCode(root, vim)

	tree.Overwrite(ctx, root)
	tree.Overwrite(ctx, id)

	assert.Equal(t, "ab", doc.String())
	assert.Equal(t, script.LangVim, tree.Node(id).Lang)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Transformation", textobject.KindTransformation.String())
	assert.Equal(t, "Kind(77)", textobject.Kind(77).String())
}
