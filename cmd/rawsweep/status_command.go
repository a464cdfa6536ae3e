package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rawsweep/internal/deps"
	"rawsweep/internal/ledger"
	"rawsweep/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check darktable, directories and recent sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			writeLines(out, renderSectionHeader("Configuration", colorize))
			if ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config", statusOK, ctx.configPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config", statusWarn, "not found, using defaults", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Sweep", statusInfo,
				fmt.Sprintf("%s.%s %g..%g (%d steps)", cfg.Sweep.Stage, cfg.Sweep.Field, cfg.Sweep.Start, cfg.Sweep.Stop, cfg.Sweep.Steps),
				colorize))
			fmt.Fprintln(out)

			writeLines(out, renderSectionHeader("Dependencies", colorize))
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			writeLines(out, dependencyLines(statuses, colorize))
			if len(deps.Missing(statuses)) == 0 {
				client, err := ctx.darktableClient()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, preflightLine(preflight.CheckDarktableVersion(cmd.Context(), client), statusWarn, colorize))
			}
			fmt.Fprintln(out)

			writeLines(out, renderSectionHeader("Directories", colorize))
			for _, result := range preflight.CheckDirectories(cfg) {
				fmt.Fprintln(out, preflightLine(result, statusError, colorize))
			}
			fmt.Fprintln(out)

			writeLines(out, renderSectionHeader("Recent sweeps", colorize))
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.ListRuns(cmd.Context(), recent)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, renderStatusLine("Ledger", statusInfo, "No sweeps recorded", colorize))
					return nil
				}
				fmt.Fprintln(out, renderRunsTable(runs))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&recent, "recent", "n", 5, "Number of recent sweeps to list")
	return cmd
}

// dependencyLines lists each binary, followed by a summary when a required
// one is missing.
func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	for _, s := range statuses {
		switch {
		case s.Available:
			lines = append(lines, renderStatusLine(s.Name, statusOK, s.Resolved, colorize))
		case s.Optional:
			lines = append(lines, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusError, s.Detail, colorize))
		}
	}
	if missing := deps.Missing(statuses); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, s := range missing {
			names = append(names, s.Name)
		}
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(names, ", "), colorize))
	}
	return lines
}

func preflightLine(result preflight.Result, failKind statusKind, colorize bool) string {
	kind := statusOK
	if !result.Passed {
		kind = failKind
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}
