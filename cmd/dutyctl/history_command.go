package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dutyroster/internal/storage"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent roster changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.ErrOrStderr(), func(s storage.Store) error {
				entries, err := s.RecentAudit(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "no changes recorded yet")
					return nil
				}
				_, err = io.WriteString(out, renderHistory(out, entries))
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")
	return cmd
}

func renderHistory(w io.Writer, entries []storage.AuditEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Action,
			fmt.Sprintf("#%d/#%d", e.Before1, e.Before2),
			fmt.Sprintf("#%d/#%d", e.After1, e.After2),
			e.Date,
			e.Actor,
		})
	}
	return renderTable(w,
		[]string{"When", "Action", "Before", "After", "Date", "Actor"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}
