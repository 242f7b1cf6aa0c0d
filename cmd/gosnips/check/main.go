package check

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gosnips/pkg/config"
	"github.com/walteh/gosnips/pkg/diagnostic"
	"github.com/walteh/gosnips/pkg/document"
	"github.com/walteh/gosnips/pkg/finder"
	"github.com/walteh/gosnips/pkg/position"
	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/snippet"
)

type Handler struct {
	fs  afero.Fs
	out io.Writer

	root     string
	patterns []string
	engines  bool
	strict   bool
}

func NewCheckCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "check [glob...]",
		Short: "parse every matching snippet file and report the ones that fail",
	}

	cmd.Flags().StringVar(&me.root, "root", ".", "directory the globs are matched against")
	cmd.Flags().BoolVar(&me.engines, "engines", false, "also check that every configured script engine can run")
	cmd.Flags().BoolVar(&me.strict, "strict", false, "fail on warnings too")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.patterns = args
		if len(me.patterns) == 0 {
			me.patterns = []string{"**/*.snip"}
		}
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	var result *multierror.Error

	reg, err := config.FromContext(ctx).Registry()
	if err != nil {
		return errors.Errorf("configuring engines: %w", err)
	}
	if me.engines {
		if err := reg.Validate(); err != nil {
			result = multierror.Append(result, errors.Errorf("engines: %w", err))
		}
	}

	files, err := finder.NewDefaultFinder(me.fs).FindSnippets(ctx, me.root, me.patterns)
	if err != nil {
		return err
	}

	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	severity := map[diagnostic.Severity]func(a ...interface{}) string{
		diagnostic.Error:   fail,
		diagnostic.Warning: color.New(color.FgYellow).SprintFunc(),
		diagnostic.Hint:    color.New(color.FgCyan).SprintFunc(),
	}

	for _, file := range files {
		tabstops, diags, err := me.checkFile(ctx, file, reg)
		switch {
		case err != nil:
			fmt.Fprintf(me.out, "%s %s\n", fail("FAIL"), file)
			result = multierror.Append(result, errors.Errorf("%s: %w", file, err))
		case me.strict && len(diags.Warnings) > 0:
			fmt.Fprintf(me.out, "%s %s\n", fail("FAIL"), file)
			result = multierror.Append(result, errors.Errorf("%s: %d warnings", file, len(diags.Warnings)))
		default:
			fmt.Fprintf(me.out, "%s   %s %s\n", ok("ok"), file, faint(fmt.Sprintf("(%d tabstops)", tabstops)))
		}

		for _, d := range diags.All() {
			fmt.Fprintf(me.out, "    %s:%s %s %s\n", file, d.Range.Start, severity[d.Severity](string(d.Severity)), d.Message)
		}
	}

	if len(files) == 0 {
		logger.Warn().Strs("patterns", me.patterns).Str("root", me.root).Msg("no snippet files matched")
	}

	return result.ErrorOrNil()
}

// checkFile expands a snippet file without running any embedded code. It
// returns how many tabstops the snippet defines and what is wrong with it.
func (me *Handler) checkFile(ctx context.Context, file string, engines *script.Registry) (int, *diagnostic.Diagnostics, error) {
	body, err := document.ReadSource(me.fs, nil, filepath.Join(me.root, filepath.FromSlash(file)))
	if err != nil {
		return 0, diagnostic.FromError(err), err
	}

	res, err := snippet.Expand(ctx, document.New(""), position.New(0, 0), body, snippet.Options{})
	if err != nil {
		return 0, diagnostic.FromError(err), err
	}

	diags, err := diagnostic.NewDefaultGenerator().Generate(ctx, res, engines)
	if err != nil {
		return 0, diagnostic.FromError(err), err
	}
	return len(res.TabStops()), diags, nil
}
