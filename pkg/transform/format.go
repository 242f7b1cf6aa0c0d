package transform

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"
)

// Replacement format grammar:
//
//	$1            group reference
//	\u \l         upper/lower case the next character
//	\U \L ... \E  upper/lower case everything up to \E
//	(?1:yes:no)   conditional on group 1 having matched something
//	\x            literal x (\n \t \r are control characters)
var (
	formatLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Case", Pattern: `\\[ulULE]`},
		{Name: "Escape", Pattern: `\\[\s\S]`},
		{Name: "Group", Pattern: `\$\d+`},
		{Name: "CondStart", Pattern: `\(\?`},
		{Name: "Int", Pattern: `\d+`},
		{Name: "Colon", Pattern: `:`},
		{Name: "RParen", Pattern: `\)`},
		{Name: "Text", Pattern: `[^\\$(:)0-9]+|[\s\S]`},
	})

	formatParser = participle.MustBuild[formatAST](
		participle.Lexer(formatLexer),
		participle.UseLookahead(4),
	)
)

type formatAST struct {
	Parts []*formatPart `@@*`
}

type formatPart struct {
	Cond   *conditionAST `  @@`
	Group  *string       `| @Group`
	Case   *string       `| @Case`
	Escape *string       `| @Escape`
	Text   *string       `| @(Text | Int | Colon | RParen | CondStart)`
}

type conditionAST struct {
	Group int          `CondStart @Int Colon`
	Then  []*innerPart `@@*`
	Else  []*innerPart `( Colon @@* )? RParen`
}

// innerPart is formatPart without the separators a conditional uses.
type innerPart struct {
	Cond   *conditionAST `  @@`
	Group  *string       `| @Group`
	Case   *string       `| @Case`
	Escape *string       `| @Escape`
	Text   *string       `| @(Text | Int | CondStart)`
}

type segmentKind int

const (
	segmentText segmentKind = iota
	segmentGroup
	segmentCase
	segmentCond
)

type segment struct {
	kind  segmentKind
	text  string
	group int
	fold  byte
	then  []segment
	els   []segment
}

// Format is a compiled replacement string.
type Format struct {
	raw      string
	segments []segment
}

func ParseFormat(raw string) (*Format, error) {
	ast, err := formatParser.ParseString("", raw)
	if err != nil {
		return nil, errors.Errorf("parsing replacement %q: %w", raw, err)
	}
	segs := make([]segment, 0, len(ast.Parts))
	for _, p := range ast.Parts {
		segs = append(segs, convertPart(p.Cond, p.Group, p.Case, p.Escape, p.Text))
	}
	return &Format{raw: raw, segments: segs}, nil
}

func (f *Format) String() string {
	return f.raw
}

func convertInner(parts []*innerPart) []segment {
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, convertPart(p.Cond, p.Group, p.Case, p.Escape, p.Text))
	}
	return segs
}

func convertPart(cond *conditionAST, group, fold, escape, text *string) segment {
	switch {
	case cond != nil:
		return segment{kind: segmentCond, group: cond.Group, then: convertInner(cond.Then), els: convertInner(cond.Else)}
	case group != nil:
		n, _ := strconv.Atoi(strings.TrimPrefix(*group, "$"))
		return segment{kind: segmentGroup, group: n}
	case fold != nil:
		return segment{kind: segmentCase, fold: (*fold)[1]}
	case escape != nil:
		return segment{kind: segmentText, text: unescape((*escape)[1:])}
	case text != nil:
		return segment{kind: segmentText, text: *text}
	}
	return segment{kind: segmentText}
}

func unescape(c string) string {
	switch c {
	case "n":
		return "\n"
	case "t":
		return "\t"
	case "r":
		return "\r"
	}
	return c
}

// caser applies the pending case folding while the expansion is written.
type caser struct {
	b    strings.Builder
	next byte
	span byte
}

func (c *caser) write(s string) {
	if s == "" {
		return
	}
	switch c.span {
	case 'U':
		s = strings.ToUpper(s)
	case 'L':
		s = strings.ToLower(s)
	}
	if c.next != 0 {
		r, size := utf8.DecodeRuneInString(s)
		if c.next == 'u' {
			r = unicode.ToUpper(r)
		} else {
			r = unicode.ToLower(r)
		}
		c.b.WriteRune(r)
		s = s[size:]
		c.next = 0
	}
	c.b.WriteString(s)
}

func (c *caser) fold(f byte) {
	switch f {
	case 'u', 'l':
		c.next = f
	case 'U', 'L':
		c.span = f
	case 'E':
		c.span = 0
	}
}

// Expand renders the format for one match. groups is indexed like the result
// of regexp.FindStringSubmatchIndex.
func (f *Format) Expand(src string, groups []int) string {
	c := &caser{}
	expandInto(c, f.segments, src, groups)
	return c.b.String()
}

func group(src string, groups []int, n int) (string, bool) {
	if n < 0 || 2*n+1 >= len(groups) || groups[2*n] < 0 {
		return "", false
	}
	return src[groups[2*n]:groups[2*n+1]], true
}

func expandInto(c *caser, segs []segment, src string, groups []int) {
	for _, s := range segs {
		switch s.kind {
		case segmentText:
			c.write(s.text)
		case segmentGroup:
			g, _ := group(src, groups, s.group)
			c.write(g)
		case segmentCase:
			c.fold(s.fold)
		case segmentCond:
			if g, ok := group(src, groups, s.group); ok && g != "" {
				expandInto(c, s.then, src, groups)
			} else {
				expandInto(c, s.els, src, groups)
			}
		}
	}
}
