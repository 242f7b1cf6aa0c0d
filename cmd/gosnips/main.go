package main

import (
	"context"
	"os"
	rdebug "runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"

	"github.com/walteh/gosnips/cmd/gosnips/check"
	"github.com/walteh/gosnips/cmd/gosnips/expand"
	"github.com/walteh/gosnips/cmd/gosnips/tokens"
	"github.com/walteh/gosnips/pkg/config"
	"github.com/walteh/gosnips/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	fs := afero.NewOsFs()

	var (
		configPath string
		debugLogs  bool
		quiet      bool
	)

	rootCmd := &cobra.Command{
		Use:           "gosnips",
		Short:         "Expand and check snippet templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.hcl, .yaml or .yml); defaults to .gosnips.* in the working directory")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "log every parse phase")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "only log errors")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))

		logger := debug.NewLogger(os.Stderr, debug.Options{
			Level:  debug.Level(debugLogs, quiet),
			Color:  term.IsTerminal(int(os.Stderr.Fd())),
			Caller: debugLogs,
		})
		ctx := logger.WithContext(cmd.Context())

		cfg, path, err := loadConfig(fs, configPath)
		if err != nil {
			return err
		}
		logger.Debug().Str("config", path).Msg("configured")

		cmd.SetContext(config.WithContext(ctx, cfg))
		return nil
	}

	info, ok := rdebug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(expand.NewExpandCommand(fs))
	rootCmd.AddCommand(check.NewCheckCommand(fs))
	rootCmd.AddCommand(tokens.NewTokensCommand(fs))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}

// loadConfig loads path, or the first default config file found. It returns
// the path actually loaded, empty when the defaults are used.
func loadConfig(fs afero.Fs, path string) (*config.Config, string, error) {
	if path == "" {
		found, err := config.Find(fs, ".")
		if err != nil {
			return nil, "", err
		}
		if found == "" {
			return config.Default(), "", nil
		}
		path = found
	}
	cfg, err := config.Load(fs, path)
	if err != nil {
		return nil, "", errors.Errorf("loading config %s: %w", path, err)
	}
	return cfg, path, nil
}
