package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/filter"
	"github.com/jask/edgeaudit/internal/loader"
)

// listScreen is the paginated audit collection with a debounced name
// filter and immediate sort changes.
type listScreen struct {
	filter  *filter.Controller
	loader  *loader.Collection
	keys    *KeyRegistry
	input   textinput.Model
	table   table.Model
	spinner spinner.Model
	rows    []api.AuditSummary
	editing bool
	width   int
}

func newListScreen(ctx context.Context, fetch loader.FetchFunc[api.CollectionQuery, *api.Page], initial api.CollectionQuery, debounce time.Duration, keys *KeyRegistry, logger *zap.Logger) *listScreen {
	ti := textinput.New()
	ti.Placeholder = "filter by strategy name"
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Width = 40

	t := table.New(
		table.WithColumns(listColumns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return &listScreen{
		filter:  filter.New(initial, debounce),
		loader:  loader.NewCollection(ctx, fetch, loader.WithLogger[api.CollectionQuery, *api.Page](logger)),
		keys:    keys,
		input:   ti,
		table:   t,
		spinner: sp,
		width:   100,
	}
}

func listColumns(width int) []table.Column {
	fixed := 10 + 8 + 8 + 17 + 12
	name := max(16, width-fixed)
	return []table.Column{
		{Title: "Strategy", Width: name},
		{Title: "Asset", Width: 10},
		{Title: "Score", Width: 8},
		{Title: "Risk", Width: 8},
		{Title: "Submitted", Width: 17},
	}
}

func (s *listScreen) Init() tea.Cmd {
	return tea.Batch(s.loader.Load(s.filter.Query()), s.spinner.Tick)
}

func (s *listScreen) Title() string { return "Audits" }

func (s *listScreen) Scope() string {
	if s.editing {
		return scopeListFilter
	}
	return scopeList
}

func (s *listScreen) Close() { s.loader.Close() }

func (s *listScreen) refetch() tea.Cmd { return s.loader.Refetch() }

// Query returns the query the list is showing or loading.
func (s *listScreen) Query() api.CollectionQuery { return s.filter.Query() }

func (s *listScreen) Update(msg tea.Msg) (Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.table.SetColumns(listColumns(msg.Width))
		s.table.SetWidth(msg.Width)
		s.table.SetHeight(max(3, msg.Height-4))
		s.syncRows()
		return s, nil, false
	case tea.KeyMsg:
		return s, s.handleKey(msg), false
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd, false
	}

	if q, changed := s.filter.Update(msg); changed {
		return s, s.loader.Load(q), false
	}
	if s.loader.Handle(msg) {
		s.syncRows()
	}
	return s, nil, false
}

func (s *listScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	scope := s.Scope()
	if s.editing {
		switch {
		case s.keys.IsAction(msg, "blur-filter", scope):
			s.editing = false
			s.input.Blur()
			return nil
		case s.keys.IsAction(msg, "clear-filter", scope):
			s.input.SetValue("")
			return s.loader.Load(s.filter.Clear())
		}
		var cmd tea.Cmd
		before := s.input.Value()
		s.input, cmd = s.input.Update(msg)
		if s.input.Value() != before {
			return tea.Batch(cmd, s.filter.SetText(s.input.Value()))
		}
		return cmd
	}

	switch {
	case s.keys.IsAction(msg, "focus-filter", scope):
		s.editing = true
		return s.input.Focus()
	case s.keys.IsAction(msg, "clear-filter", scope):
		if s.filter.Query().NameFilter == "" && s.filter.Text() == "" {
			return nil
		}
		s.input.SetValue("")
		return s.loader.Load(s.filter.Clear())
	case s.keys.IsAction(msg, "cycle-sort", scope):
		return s.loader.Load(s.filter.CycleSort())
	case s.keys.IsAction(msg, "toggle-order", scope):
		return s.loader.Load(s.filter.ToggleOrder())
	case s.keys.IsAction(msg, "next-page", scope):
		page, ok := s.loader.State().Value()
		if !ok || page.IsLast() {
			return nil
		}
		return s.loader.Load(s.filter.SetPage(s.filter.Query().Page + 1))
	case s.keys.IsAction(msg, "prev-page", scope):
		if s.filter.Query().Page <= 1 {
			return nil
		}
		return s.loader.Load(s.filter.SetPage(s.filter.Query().Page - 1))
	case s.keys.IsAction(msg, "refresh", scope):
		return s.loader.Refetch()
	case s.keys.IsAction(msg, "new-audit", scope):
		return openWizard
	case s.keys.IsAction(msg, "open", scope):
		if row, ok := s.selected(); ok {
			return openAudit(row.AuditID)
		}
		return nil
	}
	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)
	return cmd
}

func (s *listScreen) selected() (api.AuditSummary, bool) {
	i := s.table.Cursor()
	if i < 0 || i >= len(s.rows) {
		return api.AuditSummary{}, false
	}
	return s.rows[i], true
}

// syncRows rebuilds table rows from the loaded page. Rows stay as they
// are while a new page loads.
func (s *listScreen) syncRows() {
	page, ok := s.loader.State().Value()
	if !ok {
		if s.loader.State().IsFailed() {
			s.rows = nil
			s.table.SetRows(nil)
		}
		return
	}
	nameWidth := listColumns(s.width)[0].Width
	s.rows = page.Audits
	rows := make([]table.Row, 0, len(page.Audits))
	for _, a := range page.Audits {
		asset := a.SelectedAsset
		if asset == "" {
			asset = "all"
		}
		rows = append(rows, table.Row{
			TrimToWidth(a.StrategyName, nameWidth),
			asset,
			fmt.Sprintf("%.1f", a.EdgeScore),
			fmt.Sprintf("%.0f%%", a.OverfitProbability*100),
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	s.table.SetRows(rows)
	if s.table.Cursor() >= len(rows) {
		s.table.SetCursor(max(0, len(rows)-1))
	}
}

func (s *listScreen) View(width, height int) string {
	q := s.filter.Query()
	var b strings.Builder

	filterLine := mutedStyle.Render("/ filter by strategy name")
	if s.editing || s.filter.Text() != "" {
		filterLine = s.input.View()
	}
	if s.filter.Pending() {
		filterLine += "  " + mutedStyle.Render("…")
	}
	sortLine := mutedStyle.Render(fmt.Sprintf("sort: %s %s", q.SortKey.Label(), q.SortOrder))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, filterLine, "   ", sortLine))
	b.WriteString("\n\n")

	state := s.loader.State()
	switch {
	case state.IsFailed():
		b.WriteString(errorStyle.Render("Could not load audits: " + state.Reason()))
		b.WriteString("\n" + mutedStyle.Render("r to retry"))
		return b.String()
	case state.IsLoaded() && len(s.rows) == 0:
		if q.NameFilter != "" {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("No audits match %q.", q.NameFilter)))
		} else {
			b.WriteString(mutedStyle.Render("No audits yet. Press a to submit one."))
		}
		return b.String()
	case state.IsLoading() && len(s.rows) == 0:
		b.WriteString(s.spinner.View() + " Loading audits…")
		return b.String()
	}

	b.WriteString(s.table.View())
	b.WriteString("\n")
	b.WriteString(s.pagination(state))
	return b.String()
}

func (s *listScreen) pagination(state loader.State[*api.Page]) string {
	q := s.filter.Query()
	if state.IsLoading() {
		return s.spinner.View() + mutedStyle.Render(fmt.Sprintf(" loading page %d…", q.Page))
	}
	page, ok := state.Value()
	if !ok {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("page %d of %d · %d audits", page.Page, page.TotalPages(), page.Total))
}
