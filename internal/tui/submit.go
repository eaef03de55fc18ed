package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/wizard"
)

const (
	modeCatalog = "catalog"
	modeManual  = "manual"
)

// submitScreen renders the wizard and turns keys into wizard events.
type submitScreen struct {
	machine *wizard.Machine
	keys    *KeyRegistry
	picker  *Picker
	spinner spinner.Model
	// pickerFor is the step the picker was built for.
	pickerFor string
	notice    string
}

func newSubmitScreen(m *wizard.Machine, keys *KeyRegistry) *submitScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	s := &submitScreen{machine: m, keys: keys, spinner: sp}
	s.syncPicker()
	return s
}

func (s *submitScreen) Init() tea.Cmd { return s.spinner.Tick }

func (s *submitScreen) Title() string { return "New audit" }

func (s *submitScreen) Scope() string {
	switch s.machine.Step().(type) {
	case wizard.SelectingTemplate, wizard.SelectingQualifier:
		return scopeWizardPick
	case wizard.Confirming:
		return scopeWizardFinal
	}
	return scopeWizard
}

// Close resets the machine so results still in flight are ignored.
func (s *submitScreen) Close() { s.machine.Reset() }

func (s *submitScreen) Update(msg tea.Msg) (Screen, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, pop := s.handleKey(msg)
		s.syncPicker()
		return s, cmd, pop
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd, false
	}
	cmd, ok := s.machine.Update(msg)
	if !ok {
		return s, nil, false
	}
	s.syncPicker()
	switch step := s.machine.Step().(type) {
	case wizard.ChoosingMode:
		if step.Notice != nil {
			return s, ErrorCmd(step.Notice), false
		}
	case wizard.Failed:
		return s, tea.Batch(cmd, ErrorCmd(step.Err)), false
	case wizard.Succeeded:
		return s, tea.Batch(cmd, StatusCmd("Audit "+step.AuditID+" created")), false
	}
	return s, cmd, false
}

func (s *submitScreen) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	scope := s.Scope()
	s.notice = ""
	if s.keys.IsAction(msg, "back", scope) {
		if _, ok := s.machine.Step().(wizard.ChoosingMode); ok {
			return nil, true
		}
		if _, ok := s.machine.Step().(wizard.Succeeded); ok {
			return nil, true
		}
		if err := s.machine.Back(); err != nil {
			s.notice = err.Error()
		}
		return nil, false
	}

	switch step := s.machine.Step().(type) {
	case wizard.ChoosingMode:
		return s.pick(msg, scope, func(item PickerItem) tea.Cmd {
			if item.ID == modeManual {
				_ = s.machine.SelectManualEntry()
				return ErrorCmd(wizard.ErrManualEntryUnavailable)
			}
			cmd, err := s.machine.SelectCatalogMode()
			if err != nil {
				return ErrorCmd(err)
			}
			return cmd
		}), false
	case wizard.SelectingTemplate:
		if step.Loading {
			return nil, false
		}
		return s.pick(msg, scope, func(item PickerItem) tea.Cmd {
			for _, t := range step.Catalog {
				if t.Name == item.ID {
					return ErrorCmd(s.machine.PickTemplate(t))
				}
			}
			return nil
		}), false
	case wizard.SelectingQualifier:
		if s.keys.IsAction(msg, "skip", scope) {
			return ErrorCmd(s.machine.SkipQualifier()), false
		}
		return s.pick(msg, scope, func(item PickerItem) tea.Cmd {
			if item.ID == "" {
				return ErrorCmd(s.machine.SkipQualifier())
			}
			return ErrorCmd(s.machine.PickQualifier(item.ID))
		}), false
	case wizard.Confirming:
		if s.keys.IsAction(msg, "submit", scope) {
			cmd, err := s.machine.Submit()
			if err != nil {
				s.notice = err.Error()
				return nil, false
			}
			return cmd, false
		}
	case wizard.Submitting:
		if s.keys.IsAction(msg, "submit", scopeWizardFinal) {
			s.notice = wizard.ErrSubmitInFlight.Error()
		}
	}
	return nil, false
}

func (s *submitScreen) pick(msg tea.KeyMsg, scope string, selected func(PickerItem) tea.Cmd) tea.Cmd {
	if s.picker == nil {
		return nil
	}
	if s.keys.IsAction(msg, "select", scope) {
		if item, ok := s.picker.CurrentItem(); ok {
			return selected(item)
		}
		return nil
	}
	s.picker.HandleKey(msg.String())
	return nil
}

// syncPicker rebuilds the picker when the wizard enters a new step.
func (s *submitScreen) syncPicker() {
	step := s.machine.Step()
	key := step.Name()
	if st, ok := step.(wizard.SelectingTemplate); ok && st.Loading {
		key += ":loading"
	}
	if key == s.pickerFor {
		return
	}
	s.pickerFor = key

	switch st := step.(type) {
	case wizard.ChoosingMode:
		s.picker = NewPicker([]PickerItem{
			{ID: modeCatalog, Label: "From catalog", Meta: "start from a prebuilt strategy"},
			{ID: modeManual, Label: "Manual entry", Meta: "describe a strategy yourself"},
		})
	case wizard.SelectingTemplate:
		items := make([]PickerItem, 0, len(st.Catalog))
		for _, t := range st.Catalog {
			items = append(items, PickerItem{
				ID:    t.Name,
				Label: t.Name,
				Meta:  fmt.Sprintf("sharpe %.2f · %d assets · %s", t.BacktestSharpe, len(t.Assets), t.Description),
			})
		}
		s.picker = NewPicker(items)
		s.picker.Focus(st.Previous)
	case wizard.SelectingQualifier:
		items := []PickerItem{{ID: "", Label: "Entire strategy", Meta: "audit every asset in the universe"}}
		for _, a := range st.Template.Assets {
			items = append(items, PickerItem{ID: a, Label: a})
		}
		s.picker = NewPicker(items)
	default:
		s.picker = nil
	}
}

func (s *submitScreen) View(width, height int) string {
	var b strings.Builder
	step := s.machine.Step()
	b.WriteString(titleStyle.Render(stepHeading(step)))
	b.WriteString("\n\n")

	switch st := step.(type) {
	case wizard.ChoosingMode:
		if st.Notice != nil {
			b.WriteString(errorStyle.Render(api.Reason(st.Notice)))
			b.WriteString("\n\n")
		}
		b.WriteString(s.renderPicker(width))
	case wizard.SelectingTemplate:
		if st.Loading {
			b.WriteString(s.spinner.View() + " Loading strategies…")
			break
		}
		if len(st.Catalog) == 0 {
			b.WriteString(mutedStyle.Render("The catalog is empty."))
			break
		}
		b.WriteString(s.renderPicker(width))
	case wizard.SelectingQualifier:
		b.WriteString(mutedStyle.Render(st.Template.Description))
		b.WriteString("\n\n")
		b.WriteString(s.renderPicker(width))
	case wizard.Confirming:
		b.WriteString(renderRequest(st.Request))
		b.WriteString("\n" + mutedStyle.Render("enter to submit · esc to change"))
	case wizard.Submitting:
		b.WriteString(renderRequest(st.Request))
		b.WriteString("\n" + s.spinner.View() + " Submitting…")
	case wizard.Succeeded:
		b.WriteString(successStyle.Render("Audit created"))
		b.WriteString(fmt.Sprintf("\n%s  %s\n", labelStyle.Render("Audit"), st.AuditID))
		b.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render("Edge score"), scoreStyle(st.Score).Render(fmt.Sprintf("%.1f", st.Score))))
		b.WriteString(mutedStyle.Render("opening the audit…"))
	case wizard.Failed:
		b.WriteString(renderRequest(st.Request))
		b.WriteString("\n" + errorStyle.Render("Submission failed: "+st.Reason))
		b.WriteString("\n" + mutedStyle.Render("esc to review and resubmit"))
	}
	if s.notice != "" {
		b.WriteString("\n\n" + warningStyle.Render(s.notice))
	}
	return b.String()
}

func stepHeading(step wizard.Step) string {
	switch step.(type) {
	case wizard.ChoosingMode:
		return "How do you want to start?"
	case wizard.SelectingTemplate:
		return "Choose a strategy"
	case wizard.SelectingQualifier:
		return "Narrow to one asset?"
	case wizard.Confirming, wizard.Submitting:
		return "Confirm submission"
	case wizard.Succeeded:
		return "Submitted"
	case wizard.Failed:
		return "Submission failed"
	}
	return ""
}

func renderRequest(r wizard.Request) string {
	target := r.Qualifier
	if r.WholeTemplate() {
		target = "entire strategy"
	}
	var b strings.Builder
	b.WriteString(row("Strategy", r.Template.Name))
	b.WriteString(row("Target", target))
	b.WriteString(row("Backtest sharpe", fmt.Sprintf("%.2f", r.Template.BacktestSharpe)))
	return b.String()
}

func (s *submitScreen) renderPicker(width int) string {
	if s.picker == nil {
		return ""
	}
	var b strings.Builder
	if q := s.picker.Query(); q != "" {
		b.WriteString(mutedStyle.Render("filter: ") + q + "\n")
	}
	items := s.picker.Items()
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("nothing matches"))
		if hint := s.picker.Suggestion(); hint != "" {
			b.WriteString(mutedStyle.Render(fmt.Sprintf(", did you mean %q?", hint)))
		}
		return b.String()
	}
	for i, item := range items {
		line := "  " + item.Label
		if i == s.picker.Cursor() {
			line = cursorStyle.Render("> " + item.Label)
		}
		if item.Meta != "" {
			line += "  " + mutedStyle.Render(item.Meta)
		}
		b.WriteString(TrimToWidth(line, width))
		b.WriteString("\n")
	}
	return b.String()
}
