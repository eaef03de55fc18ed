package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/logging"
	"github.com/jask/edgeaudit/internal/wizard"
)

type submitResult struct {
	AuditID   string  `json:"audit_id"`
	Strategy  string  `json:"strategy"`
	Asset     string  `json:"selected_asset,omitempty"`
	EdgeScore float64 `json:"edge_score"`
}

func newSubmitCmd(c *cli) *cobra.Command {
	var asset string
	cmd := &cobra.Command{
		Use:   "submit <strategy>",
		Short: "Submit a catalog strategy for auditing",
		Long: `Submit runs the same steps as the interactive wizard: it fetches the
catalog, picks the named strategy, optionally narrows it to one asset and
submits the full strategy record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []wizard.Option{
				wizard.WithLogger(logging.Named("wizard")),
				wizard.WithSuccessDelay(0),
			}
			journal, err := c.openJournal()
			if err != nil {
				c.logger.Warn("submission journal unavailable", zap.Error(err))
			} else if journal != nil {
				opts = append(opts, wizard.OnOutcome(journal.Recorder(cmd.Context())))
			}
			ctx, cancel := c.call(cmd.Context())
			defer cancel()
			m := wizard.New(ctx, c.client, opts...)

			res, err := submitHeadless(m, args[0], asset)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), res, func() *table.Table {
				return newTable("", "").Rows(
					[]string{"audit", res.AuditID},
					[]string{"strategy", res.Strategy},
					[]string{"asset", orAll(res.Asset)},
					[]string{"edge score", fmt.Sprintf("%.1f", res.EdgeScore)},
				)
			})
		},
	}
	cmd.Flags().StringVar(&asset, "asset", "", "audit only this asset of the strategy's universe")
	return cmd
}

// submitHeadless drives m from ChoosingMode to a terminal step.
func submitHeadless(m *wizard.Machine, name, asset string) (submitResult, error) {
	cmd, err := m.SelectCatalogMode()
	if err != nil {
		return submitResult{}, err
	}
	m.Drive(cmd)

	selecting, ok := m.Step().(wizard.SelectingTemplate)
	if !ok {
		if mode, isMode := m.Step().(wizard.ChoosingMode); isMode && mode.Notice != nil {
			return submitResult{}, fmt.Errorf("fetch catalog: %s", api.Reason(mode.Notice))
		}
		return submitResult{}, fmt.Errorf("catalog unavailable (wizard at %s)", m.Step().Name())
	}
	tmpl, err := findTemplate(selecting.Catalog, name)
	if err != nil {
		return submitResult{}, err
	}
	if err := m.PickTemplate(tmpl); err != nil {
		return submitResult{}, err
	}
	if asset == "" {
		err = m.SkipQualifier()
	} else {
		err = m.PickQualifier(asset)
	}
	if err != nil {
		if errors.Is(err, wizard.ErrUnknownQualifier) {
			return submitResult{}, fmt.Errorf("%w (choose from %s)", err, strings.Join(tmpl.Assets, ", "))
		}
		return submitResult{}, err
	}

	if cmd, err = m.Submit(); err != nil {
		return submitResult{}, err
	}
	m.Drive(cmd)

	switch step := m.Step().(type) {
	case wizard.Succeeded:
		return submitResult{
			AuditID:   step.AuditID,
			Strategy:  step.Request.Template.Name,
			Asset:     step.Request.Qualifier,
			EdgeScore: step.Score,
		}, nil
	case wizard.Failed:
		return submitResult{}, fmt.Errorf("submission failed: %s", step.Reason)
	}
	return submitResult{}, fmt.Errorf("submission did not finish (wizard at %s)", m.Step().Name())
}

// findTemplate matches name case-insensitively and suggests the closest
// catalog entry when nothing matches.
func findTemplate(catalog []api.Template, name string) (api.Template, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	best, bestDist := "", len(want)/2+1
	for _, t := range catalog {
		lower := strings.ToLower(t.Name)
		if lower == want {
			return t, nil
		}
		if d := levenshtein.ComputeDistance(want, lower); d < bestDist {
			best, bestDist = t.Name, d
		}
	}
	if best != "" {
		return api.Template{}, fmt.Errorf("%w: %s (did you mean %q?)", wizard.ErrUnknownTemplate, name, best)
	}
	return api.Template{}, fmt.Errorf("%w: %s", wizard.ErrUnknownTemplate, name)
}
