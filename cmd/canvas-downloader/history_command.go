package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Flynatol/canvas-downloader/internal/ledger"
)

func newHistoryCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent mirror runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return errors.New("run history is disabled (set ledger.enabled in the config)")
			}

			store, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Status", "Courses", "Files", "Failed", "Size", "Duration", "Destination"},
				buildHistoryRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func buildHistoryRows(runs []*ledger.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := run.Duration().Round(time.Second).String()
		if run.FinishedAt == nil {
			duration = "running"
		}
		rows = append(rows, []string{
			humanize.Time(run.StartedAt),
			string(run.Status),
			fmt.Sprintf("%d", run.Courses),
			fmt.Sprintf("%d", run.Downloaded),
			fmt.Sprintf("%d", run.Failed),
			humanize.Bytes(uint64(max(run.Bytes, 0))),
			duration,
			run.Destination,
		})
	}
	return rows
}
