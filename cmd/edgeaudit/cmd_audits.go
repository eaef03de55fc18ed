package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jask/edgeaudit/internal/api"
)

func newAuditsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audits",
		Short: "List and inspect audits",
	}
	cmd.AddCommand(newAuditsListCmd(c), newAuditsGetCmd(c))
	return cmd
}

func newAuditsListCmd(c *cli) *cobra.Command {
	var flags struct {
		filter   string
		sort     string
		order    string
		page     int
		pageSize int
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of audits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			size := flags.pageSize
			if size <= 0 {
				size = c.cfg.UI.PageSize
			}
			sortSpec := flags.sort
			if sortSpec == "" {
				sortSpec = c.cfg.UI.DefaultSort
			}
			key, err := api.ParseSortKey(sortSpec)
			if err != nil {
				return err
			}
			order, err := api.ParseSortOrder(flags.order)
			if err != nil {
				return err
			}
			q := api.DefaultQuery(size).
				WithNameFilter(strings.TrimSpace(flags.filter)).
				WithSort(key, order).
				WithPage(flags.page)

			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			page, err := c.client.ListAudits(ctx, q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := c.render(out, page, func() *table.Table { return summaryTable(page.Audits) }); err != nil {
				return err
			}
			if f, _ := parseFormat(c.output); f == formatTable {
				fmt.Fprintf(out, "page %d of %d · %d audits\n", page.Page, page.TotalPages(), page.Total)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.filter, "filter", "", "strategy name contains")
	f.StringVar(&flags.sort, "sort", "", "sort key: created_at, edge_score or overfit_probability")
	f.StringVar(&flags.order, "order", "desc", "sort order: asc or desc")
	f.IntVar(&flags.page, "page", 1, "page number")
	f.IntVar(&flags.pageSize, "page-size", 0, "rows per page (default ui.page_size)")
	return cmd
}

func newAuditsGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <audit-id>",
		Short: "Show one audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			d, err := c.client.GetAudit(ctx, args[0])
			if api.IsNotFound(err) {
				return fmt.Errorf("audit %q not found", args[0])
			}
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), d, func() *table.Table {
				e, o := d.EdgeScore, d.OverfitScore
				return newTable("", "").Rows(
					[]string{"audit", d.AuditID},
					[]string{"strategy", d.StrategyName},
					[]string{"asset", orAll(d.SelectedAsset)},
					[]string{"submitted", d.CreatedAt.Local().Format("2006-01-02 15:04")},
					[]string{"edge score", fmt.Sprintf("%.1f", e.EdgeScore)},
					[]string{"overfit", fmt.Sprintf("%.0f%% (%s)", o.Probability*100, o.Label)},
					[]string{"regime", d.RegimeAnalysis.CurrentRegime},
					[]string{"narrative", d.Narrative},
				)
			})
		},
	}
}

func summaryTable(rows []api.AuditSummary) *table.Table {
	t := newTable("ID", "STRATEGY", "ASSET", "SCORE", "RISK", "SUBMITTED")
	for _, a := range rows {
		t.Row(a.AuditID, a.StrategyName, orAll(a.SelectedAsset),
			fmt.Sprintf("%.1f", a.EdgeScore),
			fmt.Sprintf("%.0f%%", a.OverfitProbability*100),
			a.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return t
}
