// Package transform implements the search/replace/options payload of snippet
// transformations.
package transform

import (
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Transform rewrites a text with a regular expression and a replacement format.
type Transform struct {
	Search  string
	Replace string
	Options string

	re     *regexp.Regexp
	format *Format
	global bool
}

// Compile validates and compiles a transformation. Recognised options are
// g (replace every match), i (ignore case) and m (multi-line anchors); other
// option characters are ignored.
func Compile(search, replace, options string) (*Transform, error) {
	var flags string
	if strings.ContainsRune(options, 'i') {
		flags += "i"
	}
	if strings.ContainsRune(options, 'm') {
		flags += "m"
	}
	pattern := search
	if flags != "" {
		pattern = "(?" + flags + ")" + search
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("compiling search %q: %w", search, err)
	}

	format, err := ParseFormat(replace)
	if err != nil {
		return nil, err
	}

	return &Transform{
		Search:  search,
		Replace: replace,
		Options: options,
		re:      re,
		format:  format,
		global:  strings.ContainsRune(options, 'g'),
	}, nil
}

func MustCompile(search, replace, options string) *Transform {
	t, err := Compile(search, replace, options)
	if err != nil {
		panic(err)
	}
	return t
}

// Apply returns text with the first (or, with the g option, every) match replaced.
func (t *Transform) Apply(text string) string {
	n := 1
	if t.global {
		n = -1
	}
	matches := t.re.FindAllStringSubmatchIndex(text, n)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(t.format.Expand(text, m))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func (t *Transform) String() string {
	return t.Search + "/" + t.Replace + "/" + t.Options
}
