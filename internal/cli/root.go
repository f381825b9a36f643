// Package cli implements the forkctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"asset-fork-merge/config"
	"asset-fork-merge/internal/app"
	"asset-fork-merge/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Options lets callers swap configuration loading and dependency assembly.
type Options struct {
	LoadConfig func() (*config.Config, error)
	Open       func(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*app.App, error)
	Out        io.Writer
	Err        io.Writer
}

type session struct {
	opts   Options
	output string
	cfg    *config.Config
	log    *zap.SugaredLogger
}

// NewRootCmd creates the root cobra command
func NewRootCmd(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.NewConfig
	}
	if opts.Open == nil {
		opts.Open = app.New
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	rt := &session{opts: opts}

	rootCmd := &cobra.Command{
		Use:           "forkctl",
		Short:         "forkctl clones projects, inspects pull request diffs and runs merges",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rt.opts.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Logging.Level,
				logger.WithConsole(rt.opts.Err),
				logger.WithFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays),
			)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.log = log.Named("forkctl")
			return nil
		},
	}
	rootCmd.SetOut(opts.Out)
	rootCmd.SetErr(opts.Err)
	rootCmd.PersistentFlags().StringVarP(&rt.output, "output", "o", "", "output format: yaml or json (default yaml on a terminal, json otherwise)")

	rootCmd.AddCommand(newMigrateCmd(rt))
	rootCmd.AddCommand(newCloneCmd(rt))
	rootCmd.AddCommand(newDiffCmd(rt))
	rootCmd.AddCommand(newMergeCmd(rt))
	rootCmd.AddCommand(newPRsCmd(rt))

	return rootCmd
}

// withApp opens the configured dependencies for the duration of fn.
func (rt *session) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := rt.opts.Open(cmd.Context(), rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
