// Package filter turns free-text and sort input into CollectionQuery values.
package filter

import (
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/edgeaudit/internal/api"
)

// Controller owns the current CollectionQuery for a list view. Text changes
// are debounced; sort changes apply immediately. Any change to the filter or
// sort returns the query to page 1.
type Controller struct {
	text     string
	query    api.CollectionQuery
	debounce *Debouncer
}

// New starts from initial with the given text quiescence window.
func New(initial api.CollectionQuery, window time.Duration) *Controller {
	if initial.Page < 1 {
		initial.Page = 1
	}
	return &Controller{
		text:     initial.NameFilter,
		query:    initial,
		debounce: NewDebouncer(window),
	}
}

// Query returns the current query.
func (c *Controller) Query() api.CollectionQuery { return c.query }

// Text returns the raw filter input, which may be ahead of Query().NameFilter
// while a debounce window is open.
func (c *Controller) Text() string { return c.text }

// Pending reports whether typed text has not been applied yet.
func (c *Controller) Pending() bool {
	return strings.TrimSpace(c.text) != c.query.NameFilter
}

// SetText records new input and restarts the quiescence window.
func (c *Controller) SetText(text string) tea.Cmd {
	c.text = text
	if !c.Pending() {
		c.debounce.Cancel()
		return nil
	}
	return c.debounce.Trigger()
}

// Update consumes debounce ticks. It returns the new query and true when the
// window closed on changed text.
func (c *Controller) Update(msg tea.Msg) (api.CollectionQuery, bool) {
	mine, current := c.debounce.Fired(msg)
	if !mine || !current || !c.Pending() {
		return c.query, false
	}
	c.query = c.query.WithNameFilter(strings.TrimSpace(c.text))
	return c.query, true
}

// SetSort applies key and order immediately.
func (c *Controller) SetSort(key api.SortKey, order api.SortOrder) api.CollectionQuery {
	c.query = c.query.WithSort(key, order)
	return c.query
}

// CycleSort moves to the next sort key, keeping the order.
func (c *Controller) CycleSort() api.CollectionQuery {
	idx := slices.Index(api.SortKeys, c.query.SortKey)
	next := api.SortKeys[(idx+1)%len(api.SortKeys)]
	return c.SetSort(next, c.query.SortOrder)
}

// ToggleOrder flips ascending/descending.
func (c *Controller) ToggleOrder() api.CollectionQuery {
	return c.SetSort(c.query.SortKey, c.query.SortOrder.Reverse())
}

// SetPage moves within the current result set; it is the only change that
// keeps the filter and sort.
func (c *Controller) SetPage(page int) api.CollectionQuery {
	c.query = c.query.WithPage(page)
	return c.query
}

// Clear drops the text filter immediately.
func (c *Controller) Clear() api.CollectionQuery {
	c.text = ""
	c.debounce.Cancel()
	c.query = c.query.WithNameFilter("")
	return c.query
}
