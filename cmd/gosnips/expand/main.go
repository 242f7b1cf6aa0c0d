package expand

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/gosnips/pkg/config"
	"github.com/walteh/gosnips/pkg/diff"
	"github.com/walteh/gosnips/pkg/document"
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/snippet"
)

type Handler struct {
	fs  afero.Fs
	in  io.Reader
	out io.Writer

	source  string
	into    string
	line    int
	col     int
	visual  string
	noFinal bool
	write   bool
	diff    bool
	format  string // text, json, yaml
	columns string // bytes, graphemes
}

func NewExpandCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "expand [snippet-file|-]",
		Short: "expand a snippet body and print the result with its tabstops",
	}

	cmd.Flags().StringVar(&me.into, "into", "", "expand into this document instead of an empty one")
	cmd.Flags().IntVar(&me.line, "line", 1, "line to expand at (1-based)")
	cmd.Flags().IntVar(&me.col, "col", 1, "column to expand at (1-based, bytes)")
	cmd.Flags().StringVar(&me.visual, "visual", "", "text ${VISUAL} expands to")
	cmd.Flags().BoolVar(&me.noFinal, "no-final", false, "do not add an implicit $0 at the end")
	cmd.Flags().BoolVar(&me.write, "write", false, "write the result back to the --into document")
	cmd.Flags().BoolVar(&me.diff, "diff", false, "print a line diff of the --into document instead of its full text")
	cmd.Flags().StringVar(&me.format, "format", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&me.columns, "columns", "", "column unit of reported positions: bytes or graphemes (default from config)")
	cmd.Args = cobra.MaximumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			me.source = args[0]
		}
		me.in = cmd.InOrStdin()
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

// Output is what json and yaml formats print.
type Output struct {
	ID       string            `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Range    position.Range    `json:"range" yaml:"range"`
	Columns  string            `json:"columns" yaml:"columns"`
	TabStops []snippet.TabStop `json:"tabstops" yaml:"tabstops"`
}

func (me *Handler) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	cfg := config.FromContext(ctx)

	switch me.format {
	case "text", "json", "yaml":
	default:
		return errors.Errorf("unknown format %q", me.format)
	}

	columns := me.columns
	if columns == "" {
		columns = cfg.Columns()
	}
	if columns != "bytes" && columns != "graphemes" {
		return errors.Errorf("unknown column unit %q", columns)
	}

	if me.write && me.into == "" {
		return errors.New("--write needs --into")
	}

	body, err := document.ReadSource(me.fs, me.in, me.source)
	if err != nil {
		return err
	}

	engines, err := cfg.Registry()
	if err != nil {
		return errors.Errorf("configuring engines: %w", err)
	}

	doc := document.New("")
	var style snippet.IndentStyle
	if me.into != "" {
		if doc, err = document.Load(me.fs, me.into); err != nil {
			return err
		}
		if style, err = config.IndentFor(me.into); err != nil {
			logger.Warn().Err(err).Str("document", me.into).Msg("ignoring editorconfig")
		}
	}

	before := doc.String()

	at := position.New(me.line-1, me.col-1)
	if at.Line < 0 || at.Line >= doc.LineCount() || at.Col < 0 || at.Col > len(doc.Line(at.Line)) {
		return errors.Errorf("position %d:%d is outside the document", me.line, me.col)
	}

	res, err := snippet.Expand(ctx, doc, at, body, snippet.Options{
		Visual:               me.visual,
		Indent:               doc.IndentAt(at),
		Style:                style,
		Engines:              engines,
		ImplicitFinalTabStop: cfg.ImplicitFinalTabStop() && !me.noFinal,
	})
	if err != nil {
		return errors.Errorf("expanding snippet: %w", err)
	}

	if me.write {
		if err := doc.Save(me.fs, me.into); err != nil {
			return err
		}
		logger.Info().Str("document", me.into).Str("snippet", res.ID.String()).Msg("wrote expanded snippet")
	}

	out, err := me.output(res, columns)
	if err != nil {
		return err
	}

	switch me.format {
	case "json":
		enc := json.NewEncoder(me.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(me.out)
		defer enc.Close()
		return enc.Encode(out)
	}

	text := out.Text
	if me.diff {
		text = diff.Lines(before, out.Text)
	}
	if _, err := io.WriteString(me.out, text); err != nil {
		return errors.Errorf("writing output: %w", err)
	}
	return nil
}

func (me *Handler) output(res *snippet.Result, columns string) (*Output, error) {
	doc := res.Tree.Document()

	convert := func(p position.Position) (position.Position, error) {
		if columns != "graphemes" {
			return p, nil
		}
		col, err := position.GraphemeColumn(doc.Line(p.Line), p.Col)
		if err != nil {
			return p, errors.Errorf("counting graphemes on line %d: %w", p.Line, err)
		}
		return position.New(p.Line, col), nil
	}
	convertRange := func(r position.Range) (position.Range, error) {
		start, err := convert(r.Start)
		if err != nil {
			return r, err
		}
		end, err := convert(r.End)
		if err != nil {
			return r, err
		}
		return position.Range{Start: start, End: end}, nil
	}

	out := &Output{ID: res.ID.String(), Text: res.Text(), Columns: columns}

	var err error
	if out.Range, err = convertRange(res.Range()); err != nil {
		return nil, err
	}

	out.TabStops = res.TabStops()
	for i := range out.TabStops {
		if out.TabStops[i].Range, err = convertRange(out.TabStops[i].Range); err != nil {
			return nil, err
		}
	}
	return out, nil
}
