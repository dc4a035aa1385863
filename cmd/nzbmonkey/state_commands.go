package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/crawl"
	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/state"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and edit stored group cursors",
	}
	cmd.AddCommand(newStateListCommand(ctx))
	cmd.AddCommand(newStateSetCommand(ctx))
	cmd.AddCommand(newStateResetCommand(ctx))
	return cmd
}

func newStateListCommand(ctx *commandContext) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "list [group]",
		Short: "Show stored cursors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := state.Filter{Field: field}
			if len(args) == 1 {
				filter.Group = args[0]
			}
			return ctx.withStore(func(store *state.Store) error {
				entries, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No cursors stored")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Group,
						e.Field,
						humanize.Comma(e.Value),
						humanize.Time(e.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Group", "Field", "Value", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "Only show this field")
	return cmd
}

func newStateSetCommand(ctx *commandContext) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "set GROUP VALUE",
		Short: "Store a cursor value for a group",
		Long: `Store VALUE as the group's cursor. The next crawl of GROUP resumes at
this article number.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := strings.TrimSpace(args[0])
			if group == "" {
				return fmt.Errorf("%w: group must not be empty", services.ErrValidation)
			}
			value, err := strconv.ParseInt(strings.ReplaceAll(args[1], ",", ""), 10, 64)
			if err != nil || value < 0 {
				return fmt.Errorf("%w: invalid value %q", services.ErrValidation, args[1])
			}
			return ctx.withStore(func(store *state.Store) error {
				if err := store.Set(cmd.Context(), group, field, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", group, field, humanize.Comma(value))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", crawl.FieldLastArticle, "Field to set")
	return cmd
}

func newStateResetCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var field string
	cmd := &cobra.Command{
		Use:   "reset [group]",
		Short: "Forget stored cursors",
		Long: `Remove the stored cursors of GROUP, or of every group with --all. The next
crawl of an affected group starts from crawl.delta articles back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("%w: name a group or pass --all", services.ErrValidation)
			}
			if len(args) == 1 && all {
				return fmt.Errorf("%w: --all cannot be combined with a group", services.ErrValidation)
			}
			filter := state.Filter{Field: field}
			if len(args) == 1 {
				filter.Group = args[0]
			}
			return ctx.withStore(func(store *state.Store) error {
				removed, err := store.Delete(cmd.Context(), filter)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", removed, plural(removed, "entry", "entries"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reset every group")
	cmd.Flags().StringVar(&field, "field", "", "Only remove this field")
	return cmd
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
