package wizard

import tea "github.com/charmbracelet/bubbletea"

// Drive runs cmd, and every command its results produce, on the calling
// goroutine until the chain is exhausted. It is the headless counterpart of
// the bubbletea runtime. The returned id is non-empty once a NavigateMsg was
// produced.
func (m *Machine) Drive(cmd tea.Cmd) (navigateTo string) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case NavigateMsg:
			navigateTo = msg.AuditID
		default:
			follow, _ := m.Update(msg)
			queue = append(queue, follow)
		}
	}
	return navigateTo
}
