package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/subject"
)

var errNoMatch = errors.New("subject did not match")

func newParseCommand(ctx *commandContext) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "parse SUBJECT...",
		Short: "Show how subject lines are parsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pattern") {
				pattern = cfg.Matching.SubjectPattern
			}
			parser, err := subject.NewParser(pattern)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(args))
			misses := 0
			for _, s := range args {
				fields, ok := parser.Parse(s)
				if !ok {
					misses++
					rows = append(rows, []string{s, "-", "-", "-", "-", "no match"})
					continue
				}
				rows = append(rows, []string{
					strings.TrimSpace(fields.Title),
					fields.Name,
					fields.Filename(),
					ratio(fields.PartNumber, fields.PartCount),
					ratio(fields.SegmentNumber, fields.SegmentCount),
					"ok",
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Release", "File", "Part", "Segment", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				nil,
			))
			if misses > 0 {
				return fmt.Errorf("%w: %d of %d", errNoMatch, misses, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Subject pattern to test instead of matching.subject_pattern")
	return cmd
}

func ratio(n, count int) string {
	if count <= 0 {
		if n <= 0 {
			return "-"
		}
		return strconv.Itoa(n) + "/?"
	}
	return fmt.Sprintf("%d/%d", n, count)
}
