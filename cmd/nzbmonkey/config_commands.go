package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(path)
			if target == "" {
				if flag := cmd.Flag("config"); flag != nil {
					target = strings.TrimSpace(flag.Value.String())
				}
			}
			var err error
			if target == "" {
				target, err = config.DefaultConfigPath()
			} else {
				target, err = config.ExpandPath(target)
			}
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(target); statErr == nil && !overwrite {
				return fmt.Errorf("%w: %s already exists (use --overwrite)", services.ErrValidation, target)
			} else if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
				return fmt.Errorf("inspect %s: %w", target, statErr)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), "Set server.host and crawl.groups before the first crawl.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination (defaults to --config or ~/.config/nzbmonkey/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config", statusOK, ctx.configPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config", statusWarn, ctx.configPath+" not found, using defaults", colorize))
			}

			server := statusOK
			serverDetail := cfg.Server.Address()
			if strings.TrimSpace(cfg.Server.Host) == "" {
				server = statusWarn
				serverDetail = "server.host not set (only offline indexing is possible)"
			}
			fmt.Fprintln(out, renderStatusLine("Server", server, serverDetail, colorize))

			groups := statusOK
			groupsDetail := strings.Join(cfg.Crawl.Groups, ", ")
			if len(cfg.Crawl.Groups) == 0 {
				groups = statusWarn
				groupsDetail = "crawl.groups is empty"
			}
			fmt.Fprintln(out, renderStatusLine("Groups", groups, groupsDetail, colorize))
			fmt.Fprintln(out, renderStatusLine("Output", statusInfo, cfg.Output.Dir, colorize))
			fmt.Fprintln(out, renderStatusLine("State", statusInfo, cfg.StatePath(), colorize))
			fmt.Fprintln(out, renderStatusLine("Schedule", statusInfo, cfg.Schedule.Cron, colorize))
			return nil
		},
	}
}
