// Package snippet parses snippet bodies into placed text object trees.
package snippet

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/lexer"
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/textobject"
)

// ErrUnknownTabStop is returned when a transformation follows a number that
// never occurs in the body.
var ErrUnknownTabStop = errors.New("transformation references unknown tabstop")

type Parser struct {
	// Indent is the indentation of the line the snippet is expanded on.
	Indent string
}

func NewParser(indent string) *Parser {
	return &Parser{Indent: indent}
}

type entry struct {
	parent textobject.ID
	token  lexer.Token
}

// parseContext is shared by every nested scan of one Parse call.
type parseContext struct {
	tree     *textobject.Tree
	entries  []entry
	registry map[int]textobject.ID
}

// Parse builds the subtree of root from its initial text and writes every
// object into the tree's document. With addFinal set, a zero width $0 is
// added at the end of the body unless the body already has one.
func (p *Parser) Parse(ctx context.Context, tree *textobject.Tree, root textobject.ID, addFinal bool) error {
	_, err := p.parse(ctx, tree, root, addFinal)
	return err
}

func (p *Parser) parse(ctx context.Context, tree *textobject.Tree, root textobject.ID, addFinal bool) (map[int]textobject.ID, error) {
	logger := zerolog.Ctx(ctx)

	pc := &parseContext{tree: tree, registry: make(map[int]textobject.ID)}

	if err := p.scan(pc, root); err != nil {
		return nil, err
	}
	logger.Trace().Int("tokens", len(pc.entries)).Int("tabstops", len(pc.registry)).Msg("scanned snippet")

	pc.resolveMirrors()

	if err := pc.linkTransformations(); err != nil {
		return nil, err
	}

	if addFinal {
		pc.addFinalTabStop(root)
	}

	place(ctx, tree, root)
	logger.Trace().Int("objects", tree.Len()).Msg("placed snippet")

	return pc.registry, nil
}

// scan tokenizes the text owned by parent and descends into every tabstop's
// default text, appending to one ordered list.
func (p *Parser) scan(pc *parseContext, parent textobject.ID) error {
	node := pc.tree.Node(parent)

	tokens, err := lexer.Tokenize(node.InitialText, p.Indent, node.Start)
	if err != nil {
		return err
	}

	for _, tok := range tokens {
		pc.entries = append(pc.entries, entry{parent: parent, token: tok})

		switch tok.Kind {
		case lexer.KindTabStop:
			id := pc.tree.NewTabStop(parent, tok)
			if _, ok := pc.registry[tok.Number]; !ok {
				pc.registry[tok.Number] = id
			}
			if err := p.scan(pc, id); err != nil {
				return err
			}
		case lexer.KindMirror, lexer.KindTransformation, lexer.KindEndOfText:
		case lexer.KindEscapeChar, lexer.KindVisual, lexer.KindShellCode, lexer.KindPythonCode, lexer.KindVimLCode:
			construct(pc.tree, parent, tok)
		}
	}
	return nil
}

// construct builds the leaf object for tok.
func construct(tree *textobject.Tree, parent textobject.ID, tok lexer.Token) textobject.ID {
	switch tok.Kind {
	case lexer.KindEscapeChar:
		return tree.NewEscapedChar(parent, tok)
	case lexer.KindVisual:
		return tree.NewVisual(parent, tok)
	case lexer.KindShellCode:
		return tree.NewShellCode(parent, tok)
	case lexer.KindPythonCode:
		return tree.NewPythonCode(parent, tok)
	case lexer.KindVimLCode:
		return tree.NewVimLCode(parent, tok)
	case lexer.KindEndOfText, lexer.KindTabStop, lexer.KindMirror, lexer.KindTransformation:
	}
	return textobject.NoID
}

// resolveMirrors turns every $N into a tabstop if N is not defined yet and
// into a mirror of the defining tabstop otherwise.
func (pc *parseContext) resolveMirrors() {
	for _, e := range pc.entries {
		if e.token.Kind != lexer.KindMirror {
			continue
		}
		if target, ok := pc.registry[e.token.Number]; ok {
			pc.tree.NewMirror(e.parent, target, e.token)
			continue
		}
		pc.registry[e.token.Number] = pc.tree.NewTabStop(e.parent, e.token)
	}
}

func (pc *parseContext) linkTransformations() error {
	for _, e := range pc.entries {
		if e.token.Kind != lexer.KindTransformation {
			continue
		}
		target, ok := pc.registry[e.token.Number]
		if !ok {
			return &position.Error{Range: e.token.Range(), Err: errors.Errorf("%w: %d", ErrUnknownTabStop, e.token.Number)}
		}
		pc.tree.NewTransformation(e.parent, target, e.token)
	}
	return nil
}

func (pc *parseContext) addFinalTabStop(root textobject.ID) {
	if _, ok := pc.registry[0]; ok {
		return
	}
	end := pc.tree.Node(root).End
	if n := len(pc.entries); n > 0 {
		end = pc.entries[n-1].token.End
	}
	pc.registry[0] = pc.tree.NewEmptyTabStop(root, 0, end)
}

// place overwrites id and then its children, depth first.
func place(ctx context.Context, tree *textobject.Tree, id textobject.ID) {
	tree.Overwrite(ctx, id)
	for _, c := range tree.Children(id) {
		place(ctx, tree, c)
	}
}
