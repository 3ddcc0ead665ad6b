package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/studybuddy/internal/app/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// flags
	verbose bool

	logger *zap.Logger
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// RootCmd is the maintenance CLI. Backends are configured exactly as for
// the server: STUDYBUDDY_* environment variables and config files.
var RootCmd = cobra.Command{
	Use:           "studybuddyctl",
	Short:         "Maintenance tasks for a StudyBuddy deployment",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// withDeps loads the server config, connects every backend, runs fn and
// shuts the backends down again.
func withDeps(ctx context.Context, fn func(ctx context.Context, appCfg bootstrap.AppConfig, deps bootstrap.DBDeps) error) error {
	// The config loader also reads command-line flags; cobra owns those here.
	args := os.Args
	os.Args = os.Args[:1]
	coreCfg, appCfg, err := bootstrap.LoadConfig(logger)
	os.Args = args
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
		return err
	}

	deps, err := bootstrap.ConnectDB(ctx, coreCfg, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = bootstrap.Shutdown(context.Background(), coreCfg, appCfg, deps, logger)
	}()
	return fn(ctx, appCfg, deps)
}
