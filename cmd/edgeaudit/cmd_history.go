package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jask/edgeaudit/internal/history"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show submission history",
	}
	cmd.AddCommand(newHistoryLocalCmd(c), newHistoryRemoteCmd(c))
	return cmd
}

func newHistoryLocalCmd(c *cli) *cobra.Command {
	var f history.Filter
	cmd := &cobra.Command{
		Use:   "local",
		Short: "List submissions made from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := c.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("history is disabled (history.enabled = false)")
			}
			entries, err := j.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), entries, func() *table.Table {
				t := newTable("WHEN", "STRATEGY", "ASSET", "RESULT", "AUDIT", "SCORE")
				for _, e := range entries {
					result, score := "ok", fmt.Sprintf("%.1f", e.EdgeScore)
					if !e.Succeeded {
						result, score = "failed: "+e.Reason, ""
					}
					t.Row(e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Template, orAll(e.Qualifier), result, e.AuditID, score)
				}
				return t
			})
		},
	}
	cmd.Flags().StringVar(&f.Template, "strategy", "", "only this strategy")
	cmd.Flags().BoolVar(&f.FailedOnly, "failed", false, "only failed submissions")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum entries")
	return cmd
}

func newHistoryRemoteCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "remote <strategy>",
		Short: "List recent audits of one strategy from the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			h, err := c.client.StrategyHistory(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), h, func() *table.Table { return summaryTable(h.Audits) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of audits")
	return cmd
}
