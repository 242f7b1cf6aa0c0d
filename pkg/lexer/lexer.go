// Package lexer turns a snippet body into the ordered token stream the
// snippet parser consumes.
package lexer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/transform"
)

const bt = "`"

var (
	codeBody  = `(?:\\` + bt + `|[^` + bt + `])*`
	slashBody = `(?:\\/|[^/])*`

	// Rules defines the stateful lexer for snippet bodies. Default text of a
	// tabstop is scanned in its own state so that braces can nest.
	Rules = lexer.Rules{
		"Root": {
			{Name: "Escape", Pattern: `\\[{}\\$` + bt + `]`},
			{Name: "Visual", Pattern: `\$\{VISUAL(?::(?:\\[/}]|[^/}])*)?(?:/` + slashBody + `/` + slashBody + `/[^}]*)?\}`},
			{Name: "Transformation", Pattern: `\$\{\d+/` + slashBody + `/` + slashBody + `/[^}]*\}`},
			{Name: "TabStopEmpty", Pattern: `\$\{\d+\}`},
			{Name: "TabStopOpen", Pattern: `\$\{\d+:`, Action: lexer.Push("Default")},
			{Name: "Mirror", Pattern: `\$\d+`},
			{Name: "PythonCode", Pattern: bt + `!p\s` + codeBody + bt},
			{Name: "VimLCode", Pattern: bt + `!v\s` + codeBody + bt},
			{Name: "ShellCode", Pattern: bt + codeBody + bt},
			{Name: "Text", Pattern: `[^\\$` + bt + `]+|[\s\S]`},
		},
		"Default": {
			{Name: "DefaultEscape", Pattern: `\\[{}]`},
			{Name: "BraceOpen", Pattern: `\{`, Action: lexer.Push("Default")},
			{Name: "BraceClose", Pattern: `\}`, Action: lexer.Pop()},
			{Name: "DefaultText", Pattern: `[^\\{}]+|\\`},
		},
	}

	// SnippetLexer is the stateful lexer for snippet bodies
	SnippetLexer = lexer.MustStateful(Rules)

	symbolNames = func() map[lexer.TokenType]string {
		names := make(map[lexer.TokenType]string)
		for name, typ := range SnippetLexer.Symbols() {
			names[typ] = name
		}
		return names
	}()

	visualParts         = regexp.MustCompile(`^\$\{VISUAL(?::((?:\\[/}]|[^/}])*))?(?:/((?:\\/|[^/])*)/((?:\\/|[^/])*)/([^}]*))?\}$`)
	transformationParts = regexp.MustCompile(`^\$\{(\d+)/((?:\\/|[^/])*)/((?:\\/|[^/])*)/([^}]*)\}$`)
	numberPart          = regexp.MustCompile(`\d+`)

	altUnescaper = strings.NewReplacer(`\/`, `/`, `\}`, `}`)
)

var ErrUnterminatedTabStop = errors.New("unterminated tabstop")

// Tokenize scans text as if it were placed in a document at start. indent is
// the indentation of the snippet's first line; python code loses it on every
// continuation line. The last token is always KindEndOfText.
func Tokenize(text, indent string, start position.Position) ([]Token, error) {
	lex, err := SnippetLexer.LexString("", text)
	if err != nil {
		return nil, errors.Errorf("lexing snippet: %w", err)
	}

	var raw []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, errors.Errorf("lexing snippet: %w", err)
		}
		if tok.EOF() {
			break
		}
		raw = append(raw, tok)
	}

	a := &assembler{text: text, indent: indent, start: start, raw: raw}
	return a.run()
}

type assembler struct {
	text   string
	indent string
	start  position.Position
	raw    []lexer.Token
	out    []Token
}

func (a *assembler) pos(offset int) position.Position {
	return position.RawPosition{Offset: offset}.Resolve(a.text, a.start)
}

func (a *assembler) run() ([]Token, error) {
	for i := 0; i < len(a.raw); i++ {
		tok := a.raw[i]
		off := tok.Pos.Offset
		val := tok.Value
		t := Token{Start: a.pos(off), End: a.pos(off + len(val))}

		switch symbolNames[tok.Type] {
		case "Escape":
			t.Kind = KindEscapeChar
			t.Text = val[1:]
		case "Visual":
			t.Kind = KindVisual
			if err := a.visual(&t, val); err != nil {
				return nil, err
			}
		case "Transformation":
			t.Kind = KindTransformation
			if err := a.transformation(&t, val); err != nil {
				return nil, err
			}
		case "TabStopEmpty":
			t.Kind = KindTabStop
			n, err := number(val)
			if err != nil {
				return nil, err
			}
			t.Number = n
		case "TabStopOpen":
			t.Kind = KindTabStop
			n, err := number(val)
			if err != nil {
				return nil, err
			}
			t.Number = n
			closing, err := a.closingBrace(i)
			if err != nil {
				return nil, &position.Error{Range: t.Range(), Err: errors.Errorf("tabstop %d: %w", n, err)}
			}
			closeOff := a.raw[closing].Pos.Offset
			t.Text = a.text[off+len(val) : closeOff]
			t.End = a.pos(closeOff + 1)
			i = closing
		case "Mirror":
			t.Kind = KindMirror
			n, err := number(val)
			if err != nil {
				return nil, err
			}
			t.Number = n
		case "PythonCode":
			t.Kind = KindPythonCode
			t.Code = a.pythonCode(val)
			t.Indent = a.indent
		case "VimLCode":
			t.Kind = KindVimLCode
			t.Code = val[4 : len(val)-1]
		case "ShellCode":
			t.Kind = KindShellCode
			t.Code = val[1 : len(val)-1]
		default:
			continue
		}

		a.out = append(a.out, t)
	}

	end := a.pos(len(a.text))
	a.out = append(a.out, Token{Kind: KindEndOfText, Start: end, End: end})
	return a.out, nil
}

// closingBrace returns the index of the raw token closing the tabstop opened at open.
func (a *assembler) closingBrace(open int) (int, error) {
	depth := 1
	for j := open + 1; j < len(a.raw); j++ {
		switch symbolNames[a.raw[j].Type] {
		case "BraceOpen":
			depth++
		case "BraceClose":
			depth--
		}
		if depth == 0 {
			return j, nil
		}
	}
	return 0, ErrUnterminatedTabStop
}

func (a *assembler) visual(t *Token, val string) error {
	m := visualParts.FindStringSubmatchIndex(val)
	if m == nil {
		return errors.Errorf("malformed visual placeholder %q", val)
	}
	if m[2] >= 0 {
		t.Alternative = altUnescaper.Replace(val[m[2]:m[3]])
	}
	if m[4] < 0 {
		return nil
	}
	tr, err := transform.Compile(val[m[4]:m[5]], val[m[6]:m[7]], val[m[8]:m[9]])
	if err != nil {
		return &position.Error{Range: t.Range(), Err: errors.Errorf("visual placeholder: %w", err)}
	}
	t.Transform = tr
	return nil
}

func (a *assembler) transformation(t *Token, val string) error {
	m := transformationParts.FindStringSubmatch(val)
	if m == nil {
		return errors.Errorf("malformed transformation %q", val)
	}
	n, err := number(m[1])
	if err != nil {
		return err
	}
	t.Number = n
	tr, err := transform.Compile(m[2], m[3], m[4])
	if err != nil {
		return &position.Error{Range: t.Range(), Err: errors.Errorf("transformation of tabstop %d: %w", n, err)}
	}
	t.Transform = tr
	return nil
}

func (a *assembler) pythonCode(val string) string {
	code := val[3 : len(val)-1]
	if strings.HasPrefix(code, " ") || strings.HasPrefix(code, "\t") {
		code = code[1:]
	}
	if a.indent == "" || !strings.Contains(code, "\n") {
		return code
	}
	lines := strings.Split(code, "\n")
	for i := 1; i < len(lines); i++ {
		if len(lines[i]) >= len(a.indent) {
			lines[i] = lines[i][len(a.indent):]
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func number(val string) (int, error) {
	n, err := strconv.Atoi(numberPart.FindString(val))
	if err != nil {
		return 0, errors.Errorf("invalid tabstop number in %q: %w", val, err)
	}
	return n, nil
}
