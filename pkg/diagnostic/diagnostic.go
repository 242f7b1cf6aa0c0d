// Package diagnostic reports problems found in snippet bodies.
package diagnostic

import (
	"context"
	"fmt"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/snippet"
	"github.com/walteh/gosnips/pkg/textobject"
)

// Generator is responsible for generating diagnostics from an expanded snippet
type Generator interface {
	Generate(ctx context.Context, res *snippet.Result, engines *script.Registry) (*Diagnostics, error)
}

// Diagnostics represents diagnostic information that can be formatted in different ways
type Diagnostics struct {
	Errors   []Diagnostic `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Hints    []Diagnostic `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// Diagnostic represents a single diagnostic message
type Diagnostic struct {
	Message  string         `json:"message" yaml:"message"`
	Range    position.Range `json:"range" yaml:"range"`
	Severity Severity       `json:"severity" yaml:"severity"`
}

type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Hint    Severity = "hint"
)

func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Hints)
}

// All returns every diagnostic, errors first, each group ordered by position.
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, d.Len())
	for _, group := range [][]Diagnostic{d.Errors, d.Warnings, d.Hints} {
		sorted := append([]Diagnostic(nil), group...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Range.Start.Less(sorted[j].Range.Start) })
		out = append(out, sorted...)
	}
	return out
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Range.Start, d.Severity, d.Message)
}

// FromError turns a parse failure into diagnostics. Errors carrying a
// position.Error keep its span; anything else is reported at the start.
func FromError(err error) *Diagnostics {
	diag := Diagnostic{Message: err.Error(), Severity: Error}

	var perr *position.Error
	if errors.As(err, &perr) {
		diag.Message = perr.Err.Error()
		diag.Range = perr.Range
	}
	return &Diagnostics{Errors: []Diagnostic{diag}}
}

// DefaultGenerator is the default implementation of Generator
type DefaultGenerator struct{}

func NewDefaultGenerator() *DefaultGenerator {
	return &DefaultGenerator{}
}

// Generate warns about placeholders that can never be reached and code no
// engine will run, and hints at gaps in the tabstop numbering.
func (g *DefaultGenerator) Generate(ctx context.Context, res *snippet.Result, engines *script.Registry) (*Diagnostics, error) {
	if res == nil {
		return nil, errors.Errorf("snippet result is nil")
	}

	diagnostics := &Diagnostics{}

	var walk func(id textobject.ID)
	walk = func(id textobject.ID) {
		node := res.Tree.Node(id)
		switch node.Kind {
		case textobject.KindTabStop:
			if def, ok := res.TabStop(node.Number); ok && def != id {
				diagnostics.Warnings = append(diagnostics.Warnings, Diagnostic{
					Message:  fmt.Sprintf("tabstop %d is already defined at %s; this placeholder is never visited", node.Number, res.Tree.Node(def).Start),
					Range:    node.Range(),
					Severity: Warning,
				})
			}
		case textobject.KindShellCode, textobject.KindPythonCode, textobject.KindVimLCode:
			if _, ok := lookup(engines, node.Lang); !ok {
				diagnostics.Warnings = append(diagnostics.Warnings, Diagnostic{
					Message:  fmt.Sprintf("no %s engine configured; the code renders empty", node.Lang),
					Range:    node.Range(),
					Severity: Warning,
				})
			}
		}
		for _, c := range res.Tree.Children(id) {
			walk(c)
		}
	}
	walk(res.Root)

	prev := 0
	for _, ts := range res.TabStops() {
		if ts.Number == 0 {
			continue
		}
		if ts.Number > prev+1 {
			diagnostics.Hints = append(diagnostics.Hints, Diagnostic{
				Message:  skipped(prev+1, ts.Number-1),
				Range:    res.Range(),
				Severity: Hint,
			})
		}
		prev = ts.Number
	}

	return diagnostics, nil
}

func skipped(from, to int) string {
	if from == to {
		return fmt.Sprintf("tabstop %d is skipped", from)
	}
	return fmt.Sprintf("tabstops %d-%d are skipped", from, to)
}

func lookup(engines *script.Registry, lang script.Lang) (script.Engine, bool) {
	if engines == nil {
		return nil, false
	}
	return engines.Lookup(lang)
}
