package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/indexer"
	"github.com/mbra/nzbmonkey/internal/services"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var from string
	var group string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "index --from FILE --group GROUP",
		Short: "Build NZB documents from an overview dump",
		Long: `Read tab-separated overview rows (as returned by XOVER) from FILE, or from
standard input when FILE is "-", and write documents for the releases they
contain. The news server and stored cursors are not used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(from) == "" {
				return fmt.Errorf("%w: --from is required", services.ErrValidation)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			res, err := indexer.IndexFile(cmd.Context(), cfg, logger, indexer.FileOptions{
				Path:   from,
				Group:  group,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printDocuments(out, res.Documents, shouldColorize(out))
			if res.Stats.Discarded > 0 {
				fmt.Fprintf(out, "%d of %d rows did not match the subject pattern\n", res.Stats.Discarded, res.Stats.Seen)
			}
			return runOutcome(res)
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "Overview dump to read (\"-\" for stdin)")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group the dump was taken from")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render documents without writing them")
	return cmd
}
