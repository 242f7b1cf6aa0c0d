// Package script evaluates the code embedded in snippet bodies.
package script

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

type Lang string

const (
	LangShell  Lang = "shell"
	LangPython Lang = "python"
	LangVim    Lang = "vim"
)

// Request is everything an engine gets to evaluate one code block.
type Request struct {
	Lang   Lang
	Code   string
	Indent string
	// TabStops holds the current text of every tabstop placed so far.
	TabStops map[int]string
	Visual   string
}

// Env renders the request's tabstops and visual text as environment entries.
func (r Request) Env() []string {
	nums := make([]int, 0, len(r.TabStops))
	for n := range r.TabStops {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	env := make([]string, 0, len(nums)+1)
	for _, n := range nums {
		env = append(env, fmt.Sprintf("GOSNIPS_TABSTOP_%d=%s", n, r.TabStops[n]))
	}
	return append(env, "GOSNIPS_VISUAL="+r.Visual)
}

type Engine interface {
	Eval(ctx context.Context, req Request) (string, error)
}

// Validator is implemented by engines that depend on something outside the process.
type Validator interface {
	Validate() error
}

var ErrNoEngine = errors.New("no engine registered")

type Registry struct {
	engines map[Lang]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[Lang]Engine)}
}

// NewDefaultRegistry returns a registry with only the shell engine.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(LangShell, NewShellEngine(""))
	return r
}

func (r *Registry) Register(lang Lang, e Engine) {
	r.engines[lang] = e
}

func (r *Registry) Lookup(lang Lang) (Engine, bool) {
	e, ok := r.engines[lang]
	return e, ok
}

func (r *Registry) Eval(ctx context.Context, req Request) (string, error) {
	e, ok := r.Lookup(req.Lang)
	if !ok {
		return "", errors.Errorf("evaluating %s code: %w", req.Lang, ErrNoEngine)
	}
	return e.Eval(ctx, req)
}

// Validate checks every registered engine and reports all failures together.
func (r *Registry) Validate() error {
	langs := make([]string, 0, len(r.engines))
	for l := range r.engines {
		langs = append(langs, string(l))
	}
	sort.Strings(langs)

	var err error
	for _, l := range langs {
		v, ok := r.engines[Lang(l)].(Validator)
		if !ok {
			continue
		}
		if verr := v.Validate(); verr != nil {
			err = multierr.Append(err, errors.Errorf("engine %s: %w", l, verr))
		}
	}
	return err
}

func trimOutput(out []byte) string {
	return strings.TrimSuffix(string(out), "\n")
}

func environ(req Request) []string {
	return append(os.Environ(), req.Env()...)
}
