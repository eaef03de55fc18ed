package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/loader"
)

// detailScreen shows one audit. An empty or unknown id renders the
// not-found view.
type detailScreen struct {
	id       string
	loader   *loader.Detail
	keys     *KeyRegistry
	viewport viewport.Model
	spinner  spinner.Model
}

func newDetailScreen(ctx context.Context, id string, fetch loader.FetchFunc[string, *api.AuditDetail], keys *KeyRegistry, logger *zap.Logger, width, height int) *detailScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	return &detailScreen{
		id:       id,
		loader:   loader.NewDetail(ctx, fetch, loader.WithLogger[string, *api.AuditDetail](logger)),
		keys:     keys,
		viewport: viewport.New(width, max(1, height)),
		spinner:  sp,
	}
}

func (s *detailScreen) Init() tea.Cmd {
	cmd := s.loader.Load(s.id)
	if err := s.loader.State().Err(); err != nil {
		return ErrorCmd(err)
	}
	return tea.Batch(cmd, s.spinner.Tick)
}

func (s *detailScreen) Title() string {
	if s.id == "" {
		return "Audit"
	}
	return "Audit " + s.id
}

func (s *detailScreen) Scope() string { return scopeDetail }

func (s *detailScreen) Close() { s.loader.Close() }

func (s *detailScreen) Update(msg tea.Msg) (Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.viewport.Width = msg.Width
		s.viewport.Height = max(1, msg.Height)
		s.syncContent()
		return s, nil, false
	case tea.KeyMsg:
		switch {
		case s.keys.IsAction(msg, "back", scopeDetail):
			return s, nil, true
		case s.keys.IsAction(msg, "refresh", scopeDetail):
			return s, s.loader.Refetch(), false
		case s.keys.IsAction(msg, "new-audit", scopeDetail):
			return s, openWizard, false
		}
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return s, cmd, false
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd, false
	}
	if s.loader.Handle(msg) {
		s.syncContent()
		if err := s.loader.State().Err(); err != nil {
			return s, ErrorCmd(err), false
		}
	}
	return s, nil, false
}

func (s *detailScreen) syncContent() {
	if d, ok := s.loader.State().Value(); ok {
		s.viewport.SetContent(renderAuditDetail(d, s.viewport.Width))
	}
}

func (s *detailScreen) View(width, height int) string {
	state := s.loader.State()
	switch {
	case state.IsFailed() && loader.IsNotFound(state.Err()):
		return renderNotFound(s.id)
	case state.IsFailed():
		return errorStyle.Render("Could not load audit: "+state.Reason()) + "\n" + mutedStyle.Render("r to retry · esc back")
	case state.IsLoaded():
		return s.viewport.View()
	}
	return s.spinner.View() + " Loading audit…"
}

func renderNotFound(id string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Audit not found"))
	b.WriteString("\n\n")
	if id == "" {
		b.WriteString(mutedStyle.Render("No audit id was given."))
	} else {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No audit with id %q exists.", id)))
	}
	b.WriteString("\n" + mutedStyle.Render("esc back to the list"))
	return b.String()
}

func renderAuditDetail(d *api.AuditDetail, width int) string {
	var b strings.Builder
	target := d.SelectedAsset
	if target == "" {
		target = "entire strategy"
	}
	b.WriteString(titleStyle.Render(d.StrategyName))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s · %s", target, d.CreatedAt.Local().Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")

	e := d.EdgeScore
	b.WriteString(row("Edge score", scoreStyle(e.EdgeScore).Render(fmt.Sprintf("%.1f / 100", e.EdgeScore))))
	b.WriteString(row("  overfit", fmt.Sprintf("%.1f", e.OverfitSubScore)))
	b.WriteString(row("  regime", fmt.Sprintf("%.1f", e.RegimeSubScore)))
	b.WriteString(row("  significance", fmt.Sprintf("%.1f", e.StatSigSubScore)))
	b.WriteString(row("  data leakage", fmt.Sprintf("%.1f", e.DataLeakageSubScore)))
	b.WriteString(row("  explainability", fmt.Sprintf("%.1f", e.ExplainabilitySubScore)))
	b.WriteString("\n")

	o := d.OverfitScore
	b.WriteString(row("Overfit probability", riskStyle(o.Probability).Render(fmt.Sprintf("%.0f%% (%s)", o.Probability*100, o.Label))))
	b.WriteString(row("Confidence", fmt.Sprintf("%.0f%%", o.Confidence*100)))

	r := d.RegimeAnalysis
	if r.CurrentRegime != "" {
		b.WriteString(row("Current regime", r.CurrentRegime))
		b.WriteString(row("Regime sensitivity", fmt.Sprintf("%.2f", r.RegimeSensitivity)))
		if len(r.RegimesTested) > 0 {
			b.WriteString(row("Regimes tested", strings.Join(r.RegimesTested, ", ")))
		}
	}

	if mc := d.MonteCarlo; mc.NumSimulations > 0 {
		b.WriteString(row("Monte Carlo", fmt.Sprintf("%d runs, sharpe %.2f ± %.2f, p=%.3f",
			mc.NumSimulations, mc.SimulatedSharpeMean, mc.SimulatedSharpeStd, mc.PValue)))
	}

	if d.Narrative != "" {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Narrative"))
		b.WriteString("\n")
		b.WriteString(renderMarkdown(d.Narrative, width))
		b.WriteString("\n")
	}
	if len(d.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Recommendations"))
		b.WriteString("\n")
		for _, rec := range d.Recommendations {
			b.WriteString(wrap("• "+rec, width))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}
