package tui

import tea "github.com/charmbracelet/bubbletea"

// Screen is one entry of the navigation stack. Update reports true when
// the screen asks to be popped.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd, bool)
	View(width, height int) string
	Scope() string
	Title() string
}

// closer is implemented by screens that own in-flight work. Close is
// called once when the screen leaves the stack.
type closer interface {
	Close()
}

type ScreenStack struct {
	items []Screen
}

func (s *ScreenStack) Push(screen Screen) {
	if screen == nil {
		return
	}
	s.items = append(s.items, screen)
}

// Pop removes the top screen and closes it.
func (s *ScreenStack) Pop() Screen {
	if len(s.items) == 0 {
		return nil
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	if c, ok := last.(closer); ok {
		c.Close()
	}
	return last
}

// Replace swaps the top screen, closing the old one.
func (s *ScreenStack) Replace(screen Screen) {
	s.Pop()
	s.Push(screen)
}

// CloseAll tears down every screen, top first.
func (s *ScreenStack) CloseAll() {
	for s.Len() > 0 {
		s.Pop()
	}
}

func (s ScreenStack) Top() Screen {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

func (s ScreenStack) Len() int {
	return len(s.items)
}

// each visits screens bottom to top, replacing each with what fn returns.
func (s *ScreenStack) each(fn func(Screen) Screen) {
	for i, item := range s.items {
		s.items[i] = fn(item)
	}
}
