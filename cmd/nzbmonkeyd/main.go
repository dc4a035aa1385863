package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/daemon"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(services.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var runNow bool

	cmd := &cobra.Command{
		Use:           "nzbmonkeyd",
		Short:         "Crawl configured groups on the schedule in schedule.cron",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireServer(); err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			logStartupChecks(ctx, cfg, logger)

			d, err := daemon.New(cfg, logger, newRunFunc(cfg, logger))
			if err != nil {
				return err
			}
			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("%w: %w", services.ErrTransient, err)
			}
			defer d.Stop()

			if runNow {
				d.RunOnce(ctx)
			}

			<-ctx.Done()
			logger.Info("nzbmonkeyd shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run one crawl immediately instead of waiting for the first tick")
	return cmd
}
