package tokens

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/gosnips/pkg/document"
	"github.com/walteh/gosnips/pkg/lexer"
	"github.com/walteh/gosnips/pkg/position"
)

type Handler struct {
	fs  afero.Fs
	in  io.Reader
	out io.Writer

	source string
	indent string
}

func NewTokensCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "tokens [snippet-file|-]",
		Short: "print the tokens of a snippet body",
	}

	cmd.Flags().StringVar(&me.indent, "indent", "", "indentation stripped from python code continuation lines")
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

func (me *Handler) Run(ctx context.Context) error {
	body, err := document.ReadSource(me.fs, me.in, me.source)
	if err != nil {
		return err
	}

	toks, err := lexer.Tokenize(body, me.indent, position.New(0, 0))
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Int("tokens", len(toks)).Msg("tokenized snippet")

	w := tabwriter.NewWriter(me.out, 0, 4, 2, ' ', 0)
	for _, tok := range toks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tok.Kind, tok.Range(), detail(tok))
	}
	return w.Flush()
}

func detail(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.KindTabStop:
		return fmt.Sprintf("%d default=%s", tok.Number, strconv.Quote(tok.Text))
	case lexer.KindMirror:
		return strconv.Itoa(tok.Number)
	case lexer.KindTransformation:
		return fmt.Sprintf("%d %s", tok.Number, tok.Transform)
	case lexer.KindEscapeChar:
		return strconv.Quote(tok.Text)
	case lexer.KindVisual:
		if tok.Transform != nil {
			return fmt.Sprintf("alt=%s %s", strconv.Quote(tok.Alternative), tok.Transform)
		}
		return "alt=" + strconv.Quote(tok.Alternative)
	case lexer.KindPythonCode, lexer.KindVimLCode, lexer.KindShellCode:
		return strconv.Quote(tok.Code)
	case lexer.KindEndOfText:
	}
	return ""
}
