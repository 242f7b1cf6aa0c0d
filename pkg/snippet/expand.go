package snippet

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/document"
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/textobject"
)

// ErrNotConverged is returned when mirrors keep changing each other's text,
// as with a mirror placed inside its own tabstop.
var ErrNotConverged = errors.New("snippet content does not converge")

// IndentStyle controls how leading tabs of a snippet body are written.
type IndentStyle struct {
	ExpandTab bool
	Width     int
}

type Options struct {
	// Visual is the selected text ${VISUAL} expands to.
	Visual string
	// Indent is the indentation of the line the snippet is expanded on. It is
	// added to every continuation line of the body.
	Indent string
	Style  IndentStyle
	// Engines evaluate embedded code. Nil renders code empty.
	Engines              *script.Registry
	ImplicitFinalTabStop bool
}

// TabStop is the navigable view of one defined tabstop.
type TabStop struct {
	Number int            `json:"number" yaml:"number"`
	ID     textobject.ID  `json:"id" yaml:"id"`
	Range  position.Range `json:"range" yaml:"range"`
	Text   string         `json:"text" yaml:"text"`
}

// Result is one expanded snippet.
type Result struct {
	ID   uuid.UUID
	Tree *textobject.Tree
	Root textobject.ID

	registry map[int]textobject.ID
}

// Expand writes body into doc at the given position and returns the placed tree.
func Expand(ctx context.Context, doc *document.Document, at position.Position, body string, opts Options) (*Result, error) {
	id := uuid.New()
	ctx = zerolog.Ctx(ctx).With().Str("snippet", id.String()).Logger().WithContext(ctx)

	tree := textobject.NewTree(doc, textobject.Options{
		Engines: opts.Engines,
		Visual:  opts.Visual,
		Indent:  opts.Indent,
	})
	root := tree.NewRoot(at, at, PrepareBody(body, opts.Indent, opts.Style))

	registry, err := NewParser(opts.Indent).parse(ctx, tree, root, opts.ImplicitFinalTabStop)
	if err != nil {
		return nil, err
	}

	passes, err := settle(ctx, tree, root)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Stringer("at", at).
		Int("tabstops", len(registry)).
		Int("settle_passes", passes).
		Msg("expanded snippet")

	return &Result{ID: id, Tree: tree, Root: root, registry: registry}, nil
}

// PrepareBody indents the continuation lines of body and, for ExpandTab
// styles, turns leading tabs into spaces.
func PrepareBody(body, indent string, style IndentStyle) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if style.ExpandTab && style.Width > 0 {
			trimmed := strings.TrimLeft(line, "\t")
			line = strings.Repeat(" ", style.Width*(len(line)-len(trimmed))) + trimmed
		}
		if i > 0 && line != "" {
			line = indent + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// settle rewrites mirrors and transformations until the document stops
// changing, so that dependents placed before their tabstop catch up. It
// returns the number of passes made.
func settle(ctx context.Context, tree *textobject.Tree, root textobject.ID) (int, error) {
	dependents := dependentsOf(tree, root)
	if len(dependents) == 0 {
		return 0, nil
	}

	if id, ok := findCycle(tree, dependents); ok {
		n := tree.Node(id)
		return 0, &position.Error{Range: n.Range(), Err: errors.Errorf("%w: tabstop %d", ErrNotConverged, n.Number)}
	}

	doc := tree.Document()
	for pass := 1; pass <= len(dependents)+1; pass++ {
		before := doc.String()
		for _, id := range dependents {
			tree.Overwrite(ctx, id)
		}
		if doc.String() == before {
			return pass, nil
		}
	}
	return 0, errors.Errorf("%w after %d passes", ErrNotConverged, len(dependents)+1)
}

// dependentsOf lists the mirrors and transformations in the subtree of id, in
// pre-order.
func dependentsOf(tree *textobject.Tree, id textobject.ID) []textobject.ID {
	var out []textobject.ID
	var walk func(id textobject.ID)
	walk = func(id textobject.ID) {
		switch tree.Node(id).Kind {
		case textobject.KindMirror, textobject.KindTransformation:
			out = append(out, id)
		}
		for _, c := range tree.Children(id) {
			walk(c)
		}
	}
	walk(id)
	return out
}

// findCycle reports a dependent whose text feeds back into itself: it sits
// inside its own tabstop, or inside a tabstop that follows it in turn.
func findCycle(tree *textobject.Tree, dependents []textobject.ID) (textobject.ID, bool) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[textobject.ID]int, len(dependents))

	var visit func(id textobject.ID) bool
	visit = func(id textobject.ID) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, d := range dependentsOf(tree, tree.Node(id).Target) {
			if visit(d) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for _, id := range dependents {
		if visit(id) {
			return id, true
		}
	}
	return textobject.NoID, false
}

// TabStops returns every defined tabstop ordered by number.
func (r *Result) TabStops() []TabStop {
	nums := make([]int, 0, len(r.registry))
	for n := range r.registry {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := make([]TabStop, 0, len(nums))
	for _, n := range nums {
		id := r.registry[n]
		out = append(out, TabStop{
			Number: n,
			ID:     id,
			Range:  r.Tree.Node(id).Range(),
			Text:   r.Tree.CurrentText(id),
		})
	}
	return out
}

// TabStop returns the tabstop defining number.
func (r *Result) TabStop(number int) (textobject.ID, bool) {
	id, ok := r.registry[number]
	return id, ok
}

// Range is the span the whole snippet covers in the document.
func (r *Result) Range() position.Range {
	return r.Tree.Node(r.Root).Range()
}

func (r *Result) Text() string {
	return r.Tree.Document().String()
}
