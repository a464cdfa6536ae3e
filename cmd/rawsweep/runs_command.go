package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"rawsweep/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded sweeps, or the renders of one sweep",
		Long:  "Without arguments, lists recent sweeps from the ledger. Given a run id (or a unique prefix of one), lists that sweep's renders.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					runs, err := store.ListRuns(cmd.Context(), limit)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd, runs)
					}
					if len(runs) == 0 {
						fmt.Fprintln(out, "No sweeps recorded")
						return nil
					}
					fmt.Fprintln(out, renderRunsTable(runs))
					return nil
				}

				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				renders, err := store.Renders(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, struct {
						Run     *ledger.Run      `json:"run"`
						Renders []*ledger.Render `json:"renders"`
					}{run, renders})
				}
				fmt.Fprintf(out, "Run %s: %s.%s from %s (%s)\n", run.ID, run.Stage, run.Field, run.SourceDir, run.Status)
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
				}
				fmt.Fprintln(out, renderRendersTable(renders))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sweeps to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderRunsTable(runs []*ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Stage + "." + r.Field,
			strconv.Itoa(len(r.Values)),
			string(r.Status),
			strconv.Itoa(r.Rendered),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
		})
	}
	return renderTable(
		[]string{"ID", "Started", "Field", "Values", "Status", "Rendered", "Skipped", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}

func renderRendersTable(renders []*ledger.Render) string {
	rows := make([][]string, 0, len(renders))
	for _, r := range renders {
		detail := filepath.Base(r.OutputPath)
		if r.ErrorMessage != "" {
			detail = r.ErrorMessage
		}
		rows = append(rows, []string{
			filepath.Base(r.SourcePath),
			strconv.FormatFloat(r.Value, 'f', 3, 64),
			string(r.Status),
			formatDuration(r.Duration),
			detail,
		})
	}
	return renderTable(
		[]string{"Source", "Value", "Status", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
