package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"articast/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List converted and failed items recorded in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var statuses []ledger.Status
			if value := strings.TrimSpace(statusFlag); value != "" {
				status, err := ledger.ParseStatus(value)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}

			store, err := ledger.Open(cmd.Context(), cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if limitFlag > 0 && len(entries) > limitFlag {
				entries = entries[:limitFlag]
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "Ledger is empty")
			} else {
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					detail := e.Artifact
					if e.Status == ledger.StatusFailed {
						detail = e.Error
					}
					rows = append(rows, []string{
						e.Key.String(),
						string(e.Status),
						e.Category,
						e.Title,
						e.Engine,
						strconv.Itoa(e.Attempts),
						humanize.Time(e.UpdatedAt),
						detail,
					})
				}
				headers := []string{"Item", "Status", "Category", "Title", "Engine", "Attempts", "Updated", "Artifact / Error"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
			}
			fmt.Fprintf(out, "Converted: %d  Failed: %d\n", counts[ledger.StatusConverted], counts[ledger.StatusFailed])
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only show entries with this status (converted, failed)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 50, "Maximum entries to show (0 for all)")
	return cmd
}
