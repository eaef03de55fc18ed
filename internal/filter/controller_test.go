package filter

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/edgeaudit/internal/api"
)

const testWindow = 15 * time.Millisecond

func TestRapidTypingEmitsOnce(t *testing.T) {
	c := New(api.DefaultQuery(20), testWindow)

	first := c.SetText("me")
	second := c.SetText("mean")
	require.NotNil(t, first)
	require.NotNil(t, second)

	var emitted []api.CollectionQuery
	for _, msg := range []tea.Msg{first(), second()} {
		if q, changed := c.Update(msg); changed {
			emitted = append(emitted, q)
		}
	}
	require.Len(t, emitted, 1)
	require.Equal(t, "mean", emitted[0].NameFilter)
	require.Equal(t, 1, emitted[0].Page)
	require.False(t, c.Pending())
}

func TestFilterChangeResetsPage(t *testing.T) {
	c := New(api.DefaultQuery(20), testWindow)
	c.SetPage(5)
	require.Equal(t, 5, c.Query().Page)

	q, changed := c.Update(c.SetText("carry")())
	require.True(t, changed)
	require.Equal(t, 1, q.Page)
	require.Equal(t, "carry", q.NameFilter)
}

func TestSortChangesApplyImmediatelyAndResetPage(t *testing.T) {
	c := New(api.DefaultQuery(20), testWindow)
	c.SetPage(3)

	q := c.CycleSort()
	require.Equal(t, api.SortScore, q.SortKey)
	require.Equal(t, 1, q.Page)

	c.SetPage(2)
	q = c.ToggleOrder()
	require.Equal(t, api.Ascending, q.SortOrder)
	require.Equal(t, 1, q.Page)

	c.SetPage(4)
	q = c.SetSort(api.SortRisk, api.Descending)
	require.Equal(t, 1, q.Page)
	require.Equal(t, api.SortSubmittedAt, c.CycleSort().SortKey)
}

func TestReturningToAppliedTextCancelsPendingEmission(t *testing.T) {
	c := New(api.DefaultQuery(20), testWindow)
	cmd := c.SetText("x")
	require.Nil(t, c.SetText(""))

	_, changed := c.Update(cmd())
	require.False(t, changed)
	require.Equal(t, "", c.Query().NameFilter)
}

func TestClearIsImmediate(t *testing.T) {
	c := New(api.DefaultQuery(20).WithNameFilter("mean").WithPage(3), testWindow)
	pending := c.SetText("meant")
	q := c.Clear()
	require.Empty(t, q.NameFilter)
	require.Equal(t, 1, q.Page)

	_, changed := c.Update(pending())
	require.False(t, changed)
}

func TestTicksFromOtherDebouncersAreIgnored(t *testing.T) {
	a := New(api.DefaultQuery(20), testWindow)
	b := New(api.DefaultQuery(20), testWindow)
	msg := a.SetText("alpha")()
	b.SetText("beta")

	_, changed := b.Update(msg)
	require.False(t, changed)
	_, changed = a.Update(msg)
	require.True(t, changed)
}

func TestDebouncerDefaultsWindow(t *testing.T) {
	require.Equal(t, DefaultWindow, NewDebouncer(0).Window())
}
