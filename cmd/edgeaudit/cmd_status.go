package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jask/edgeaudit/internal/api"
)

type statusReport struct {
	BaseURL string       `json:"base_url"`
	Health  *api.Health  `json:"health"`
	Summary *api.Summary `json:"summary"`
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service health and audit totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.call(cmd.Context())
			defer cancel()

			report := statusReport{BaseURL: c.client.BaseURL()}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				h, err := c.client.Health(gctx)
				report.Health = h
				return err
			})
			g.Go(func() error {
				s, err := c.client.Summary(gctx)
				report.Summary = s
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			return c.render(cmd.OutOrStdout(), report, func() *table.Table {
				h, s := report.Health, report.Summary
				return newTable("", "").Rows(
					[]string{"service", report.BaseURL},
					[]string{"status", h.Status},
					[]string{"snowflake", yesNo(h.SnowflakeConnected)},
					[]string{"gemini", yesNo(h.GeminiConfigured)},
					[]string{"backboard", yesNo(h.BackboardConfigured)},
					[]string{"audits", fmt.Sprint(s.TotalAudits)},
					[]string{"strategies", fmt.Sprint(s.UniqueStrategies)},
					[]string{"avg edge score", fmt.Sprintf("%.1f", s.AverageEdgeScore)},
					[]string{"avg overfit", fmt.Sprintf("%.0f%%", s.AverageOverfitProbability*100)},
					[]string{"high risk", fmt.Sprint(s.HighRiskCount)},
				)
			})
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
