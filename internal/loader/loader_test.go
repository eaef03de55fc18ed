package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jask/edgeaudit/internal/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pageFor fabricates a page whose single row names the query that produced it.
func pageFor(_ context.Context, q api.CollectionQuery) (*api.Page, error) {
	if q.NameFilter == "boom" {
		return nil, errors.New("backend exploded")
	}
	return &api.Page{
		Audits:   []api.AuditSummary{{StrategyName: q.NameFilter}},
		Total:    1,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func TestLoadTransitionsThroughLoading(t *testing.T) {
	var seen []Status
	l := NewCollection(context.Background(), pageFor,
		WithObserver[api.CollectionQuery, *api.Page](func(s State[*api.Page]) { seen = append(seen, s.Status()) }))
	require.True(t, l.State().IsIdle())

	cmd := l.Load(api.DefaultQuery(20).WithNameFilter("mean"))
	require.True(t, l.State().IsLoading())

	require.True(t, l.Handle(run(t, cmd)))
	page, ok := l.State().Value()
	require.True(t, ok)
	require.Equal(t, "mean", page.Audits[0].StrategyName)
	require.NoError(t, l.State().Err())
	require.Equal(t, []Status{Loading, Loaded}, seen)
}

func TestLatestIssuedQueryWinsRegardlessOfArrival(t *testing.T) {
	l := NewCollection(context.Background(), pageFor)
	q1 := api.DefaultQuery(20).WithNameFilter("first")
	q2 := api.DefaultQuery(20).WithNameFilter("second")

	cmd1 := l.Load(q1)
	cmd2 := l.Load(q2)

	// q2 resolves first, q1 arrives late.
	require.True(t, l.Handle(run(t, cmd2)))
	require.True(t, l.Handle(run(t, cmd1)))

	page, ok := l.State().Value()
	require.True(t, ok)
	require.Equal(t, "second", page.Audits[0].StrategyName)

	key, _ := l.Key()
	require.Equal(t, q2, key)
}

func TestEarlierResponseArrivingFirstIsDiscarded(t *testing.T) {
	l := NewCollection(context.Background(), pageFor)
	cmd1 := l.Load(api.DefaultQuery(20).WithNameFilter("first"))
	cmd2 := l.Load(api.DefaultQuery(20).WithNameFilter("boom"))

	l.Handle(run(t, cmd1))
	require.True(t, l.State().IsLoading(), "stale result must not end the newer load")

	l.Handle(run(t, cmd2))
	require.True(t, l.State().IsFailed())
	require.Equal(t, "backend exploded", l.State().Reason())
	_, ok := l.State().Value()
	require.False(t, ok)
}

func TestNoTransitionAfterClose(t *testing.T) {
	transitions := 0
	l := NewCollection(context.Background(), pageFor,
		WithObserver[api.CollectionQuery, *api.Page](func(State[*api.Page]) { transitions++ }))

	cmd := l.Load(api.DefaultQuery(20))
	require.Equal(t, 1, transitions)
	l.Close()

	require.True(t, l.Handle(run(t, cmd)))
	require.Equal(t, 1, transitions)
	require.True(t, l.State().IsLoading())
	require.Nil(t, l.Load(api.DefaultQuery(20)))
	require.Nil(t, l.Refetch())
	require.Equal(t, 1, transitions)
}

func TestRefetchReissuesLastQuery(t *testing.T) {
	calls := 0
	l := NewCollection(context.Background(), func(ctx context.Context, q api.CollectionQuery) (*api.Page, error) {
		calls++
		return pageFor(ctx, q)
	})
	require.Nil(t, l.Refetch())

	q := api.DefaultQuery(10).WithNameFilter("carry").WithPage(3)
	l.Handle(run(t, l.Load(q)))
	l.Handle(run(t, l.Refetch()))
	require.Equal(t, 2, calls)
	page, _ := l.State().Value()
	require.Equal(t, 3, page.Page)
}

func TestForeignMessagesAreIgnored(t *testing.T) {
	a := NewCollection(context.Background(), pageFor)
	b := NewCollection(context.Background(), pageFor)
	msg := run(t, a.Load(api.DefaultQuery(20)))

	require.False(t, b.Handle(msg))
	require.False(t, a.Handle("not a result"))
	require.True(t, a.Handle(msg))
}

func TestDetailBlankIDShortCircuits(t *testing.T) {
	calls := 0
	d := NewDetail(context.Background(), func(ctx context.Context, id string) (*api.AuditDetail, error) {
		calls++
		return &api.AuditDetail{AuditID: id}, nil
	})

	require.Nil(t, d.Load("   "))
	require.True(t, d.State().IsFailed())
	require.ErrorIs(t, d.State().Err(), ErrMissingID)
	require.True(t, IsNotFound(d.State().Err()))
	require.Zero(t, calls)

	d.Handle(run(t, d.Load("aud-1")))
	detail, ok := d.State().Value()
	require.True(t, ok)
	require.Equal(t, "aud-1", detail.AuditID)
}

func TestDetailIdentifierChangeSupersedes(t *testing.T) {
	d := NewDetail(context.Background(), func(ctx context.Context, id string) (*api.AuditDetail, error) {
		if id == "gone" {
			return nil, fmt.Errorf("wrapped: %w", api.ErrNotFound)
		}
		return &api.AuditDetail{AuditID: id}, nil
	})
	old := d.Load("aud-1")
	latest := d.Load("gone")
	d.Handle(run(t, latest))
	d.Handle(run(t, old))
	require.True(t, d.State().IsFailed())
	require.True(t, IsNotFound(d.State().Err()))
}

func TestBoundedAppliesDeadline(t *testing.T) {
	slow := func(ctx context.Context, id string) (*api.AuditDetail, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := Bounded(slow, 10*time.Millisecond)(context.Background(), "x")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	same := Bounded[string, *api.AuditDetail](nil, 0)
	require.Nil(t, same)
}

func TestFailedStateRequiresError(t *testing.T) {
	require.Panics(t, func() { FailedState[int](nil) })
	s := LoadedState(5)
	v, ok := s.Value()
	require.True(t, ok)
	require.Equal(t, 5, v)
	require.Equal(t, "loaded", s.Status().String())
}
