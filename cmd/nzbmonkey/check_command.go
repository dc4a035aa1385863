package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/preflight"
)

var errChecksFailed = errors.New("checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, server access and configured groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%w: %d of %d", errChecksFailed, len(failed), len(results))
			}
			return nil
		},
	}
}
