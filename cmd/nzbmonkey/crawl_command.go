package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/indexer"
	"github.com/mbra/nzbmonkey/internal/services"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	var delta int64
	var noPersist bool
	var dryRun bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "crawl [groups...]",
		Short: "Scan groups for new articles and write NZB documents",
		Long: `Scan the configured groups (or the ones given as arguments) for articles
posted since the last run, group them into releases and write one NZB
document per release into output.dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delta") && delta < 0 {
				return fmt.Errorf("%w: --delta must not be negative", services.ErrValidation)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := indexer.Run(runCtx, cfg, logger, indexer.Options{
				Groups:    args,
				Delta:     delta,
				HasDelta:  cmd.Flags().Changed("delta"),
				NoPersist: noPersist,
				DryRun:    dryRun,
			})
			if err != nil {
				if res != nil && res.Report != nil && !quiet {
					printGroupReport(cmd.OutOrStdout(), res.Report, shouldColorize(cmd.OutOrStdout()))
				}
				return err
			}

			out := cmd.OutOrStdout()
			if !quiet {
				colorize := shouldColorize(out)
				printGroupReport(out, res.Report, colorize)
				printDocuments(out, res.Documents, colorize)
			}
			return runOutcome(res)
		},
	}

	cmd.Flags().Int64Var(&delta, "delta", 0, "Scan exactly this many articles back from each group's newest article")
	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "Do not advance stored cursors")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render documents without writing them (implies --no-persist)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report errors")
	return cmd
}
