package filter

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultWindow is the quiescence window for text filters.
const DefaultWindow = 500 * time.Millisecond

var nextDebouncerID atomic.Uint64

// firedMsg is delivered when a debounce window elapses.
type firedMsg struct {
	id  uint64
	seq uint64
}

// Debouncer coalesces rapid triggers into one trailing emission. Each Trigger
// schedules a tick tagged with a sequence number; only the tick matching the
// latest sequence counts, so an earlier tick is cancelled simply by issuing a
// newer one.
type Debouncer struct {
	id     uint64
	window time.Duration
	seq    uint64
}

// NewDebouncer returns a Debouncer with the given window. Non-positive
// windows fall back to DefaultWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{id: nextDebouncerID.Add(1), window: window}
}

// Window returns the quiescence duration.
func (d *Debouncer) Window() time.Duration { return d.window }

// Trigger restarts the window and returns the delayed command.
func (d *Debouncer) Trigger() tea.Cmd {
	d.seq++
	id, seq := d.id, d.seq
	return tea.Tick(d.window, func(time.Time) tea.Msg {
		return firedMsg{id: id, seq: seq}
	})
}

// Cancel invalidates any pending emission.
func (d *Debouncer) Cancel() {
	d.seq++
}

// Fired reports whether msg is this debouncer's tick and, if so, whether it is
// the one that should emit.
func (d *Debouncer) Fired(msg tea.Msg) (mine, current bool) {
	f, ok := msg.(firedMsg)
	if !ok || f.id != d.id {
		return false, false
	}
	return true, f.seq == d.seq
}
