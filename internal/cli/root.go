package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/contesthub/contesthub/internal/app"
	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const loadTimeout = 30 * time.Second

var (
	flagLogLevel string

	cfg    *config.Config
	logger *zap.Logger
)

// NewRootCmd creates the root cobra command for the contesthub CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "contesthub",
		Short: "ContestHub session companion",
		Long:  "contesthub keeps a ContestHub session, gates dashboard routes by role and proxies the ContestHub API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flagLogLevel != "" {
				cfg.LogLevel = flagLogLevel
			}
			logger, err = logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(
		newServeCmd(),
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
	)

	return root
}

// withSession opens the App, restores the stored session and runs fn once it has loaded.
func withSession(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start(ctx)

	loadCtx, loadCancel := context.WithTimeout(ctx, loadTimeout)
	defer loadCancel()
	if err := a.WaitLoaded(loadCtx); err != nil {
		return err
	}

	return fn(ctx, a)
}
