package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jask/edgeaudit/internal/api"
)

func newStrategiesCmd(c *cli) *cobra.Command {
	var catalog bool
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List audited strategies, or the submission catalog with --catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			out := cmd.OutOrStdout()

			if catalog {
				templates, err := c.client.AvailableStrategies(ctx)
				if err != nil {
					return err
				}
				return c.render(out, templates, func() *table.Table {
					t := newTable("NAME", "SHARPE", "ASSETS", "DESCRIPTION")
					for _, tmpl := range templates {
						t.Row(tmpl.Name, fmt.Sprintf("%.2f", tmpl.BacktestSharpe), fmt.Sprint(len(tmpl.Assets)), tmpl.Description)
					}
					return t
				})
			}

			list, err := c.client.ListStrategies(ctx)
			if err != nil {
				return err
			}
			return c.render(out, list, func() *table.Table {
				t := newTable("NAME", "LATEST SCORE", "AUDITS", "LAST AUDITED")
				for _, s := range list {
					t.Row(s.Name, fmt.Sprintf("%.1f", s.LatestScore), fmt.Sprint(s.AuditCount), s.LastAuditedAt.Local().Format("2006-01-02 15:04"))
				}
				return t
			})
		},
	}
	cmd.Flags().BoolVar(&catalog, "catalog", false, "list templates available for submission")
	cmd.AddCommand(newCompareCmd(c))
	return cmd
}

func newCompareCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <strategy> <strategy>",
		Short: "Compare the latest audits of two strategies side by side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			audits, err := c.client.CompareStrategies(ctx, args)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), audits, func() *table.Table {
				return comparisonTable(args, audits)
			})
		},
	}
}

// comparisonTable puts one strategy per column. Strategies without audits
// show "no audits".
func comparisonTable(names []string, audits []*api.AuditDetail) *table.Table {
	headers := append([]string{""}, names...)
	t := newTable(headers...)
	fields := []struct {
		label string
		value func(*api.AuditDetail) string
	}{
		{"audit", func(d *api.AuditDetail) string { return d.AuditID }},
		{"asset", func(d *api.AuditDetail) string { return orAll(d.SelectedAsset) }},
		{"submitted", func(d *api.AuditDetail) string { return d.CreatedAt.Local().Format("2006-01-02 15:04") }},
		{"edge score", func(d *api.AuditDetail) string { return fmt.Sprintf("%.1f", d.EdgeScore.EdgeScore) }},
		{"overfit", func(d *api.AuditDetail) string {
			return fmt.Sprintf("%.0f%% (%s)", d.OverfitScore.Probability*100, d.OverfitScore.Label)
		}},
		{"regime", func(d *api.AuditDetail) string { return d.RegimeAnalysis.CurrentRegime }},
		{"p-value", func(d *api.AuditDetail) string { return fmt.Sprintf("%.3f", d.MonteCarlo.PValue) }},
	}
	for _, f := range fields {
		row := []string{f.label}
		for i := range names {
			if i < len(audits) && audits[i] != nil {
				row = append(row, f.value(audits[i]))
			} else {
				row = append(row, "no audits")
			}
		}
		t.Row(row...)
	}
	return t
}

func newLeaderboardCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the best audits by edge score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			rows, err := c.client.Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), rows, func() *table.Table { return summaryTable(rows) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries")
	return cmd
}
