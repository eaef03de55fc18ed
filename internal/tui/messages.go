package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/edgeaudit/internal/api"
)

// StatusMsg replaces the status line. Errors are dismissed by the next
// key press.
type StatusMsg struct {
	Text  string
	IsErr bool
}

type openAuditMsg struct {
	ID string
}

type openWizardMsg struct{}

type healthMsg struct {
	health *api.Health
	err    error
}

type summaryMsg struct {
	summary *api.Summary
	err     error
}

func StatusCmd(text string) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text} }
}

func ErrorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		if err == nil {
			return StatusMsg{}
		}
		if api.IsNotFound(err) {
			return StatusMsg{Text: "not found", IsErr: true}
		}
		return StatusMsg{Text: api.Reason(err), IsErr: true}
	}
}

func openAudit(id string) tea.Cmd {
	return func() tea.Msg { return openAuditMsg{ID: id} }
}

func openWizard() tea.Msg { return openWizardMsg{} }
