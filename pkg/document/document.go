// Package document holds the shared line buffer that text objects render into.
package document

import (
	"io"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/position"
)

// Document is a line oriented text buffer. It is not safe for concurrent use.
type Document struct {
	lines []string
}

func New(text string) *Document {
	return &Document{lines: strings.Split(text, "\n")}
}

func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading document %s: %w", path, err)
	}
	return New(string(data)), nil
}

// ReadSource reads path from fs, or all of r when path is empty or "-".
func ReadSource(fs afero.Fs, r io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", errors.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func (d *Document) Save(fs afero.Fs, path string) error {
	if err := afero.WriteFile(fs, path, []byte(d.String()), 0o644); err != nil {
		return errors.Errorf("writing document %s: %w", path, err)
	}
	return nil
}

func (d *Document) String() string {
	return strings.Join(d.lines, "\n")
}

func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line returns the line at index i, or "" when out of range.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// IndentAt returns the leading whitespace of p's line, cut at p's column.
func (d *Document) IndentAt(p position.Position) string {
	line := d.Line(p.Line)
	if p.Col < len(line) {
		line = line[:p.Col]
	}
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func (d *Document) clamp(p position.Position) position.Position {
	if p.Line < 0 {
		return position.Position{}
	}
	if p.Line >= len(d.lines) {
		last := len(d.lines) - 1
		return position.New(last, len(d.lines[last]))
	}
	if p.Col < 0 {
		p.Col = 0
	}
	if p.Col > len(d.lines[p.Line]) {
		p.Col = len(d.lines[p.Line])
	}
	return p
}

// Text returns the text between start and end.
func (d *Document) Text(start, end position.Position) string {
	start, end = d.clamp(start), d.clamp(end)
	if end.Less(start) {
		return ""
	}
	if start.Line == end.Line {
		return d.lines[start.Line][start.Col:end.Col]
	}
	var b strings.Builder
	b.WriteString(d.lines[start.Line][start.Col:])
	for i := start.Line + 1; i < end.Line; i++ {
		b.WriteByte('\n')
		b.WriteString(d.lines[i])
	}
	b.WriteByte('\n')
	b.WriteString(d.lines[end.Line][:end.Col])
	return b.String()
}

// Replace swaps the text between start and end for text and returns the
// position right after the written text.
func (d *Document) Replace(start, end position.Position, text string) position.Position {
	start, end = d.clamp(start), d.clamp(end)
	if end.Less(start) {
		end = start
	}

	before := d.lines[start.Line][:start.Col]
	after := d.lines[end.Line][end.Col:]

	repl := strings.Split(text, "\n")
	repl[0] = before + repl[0]
	repl[len(repl)-1] += after

	lines := make([]string, 0, len(d.lines)-(end.Line-start.Line+1)+len(repl))
	lines = append(lines, d.lines[:start.Line]...)
	lines = append(lines, repl...)
	lines = append(lines, d.lines[end.Line+1:]...)
	d.lines = lines

	return start.Advance(text)
}
