package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/wizard"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "history.db")
	j, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func outcome(t *testing.T, name, qualifier string, at time.Time, err error) wizard.Outcome {
	t.Helper()
	req, rerr := wizard.NewRequest(api.Template{Name: name, Assets: []string{"AAPL", "SPY"}}, qualifier)
	require.NoError(t, rerr)
	o := wizard.Outcome{Request: req, At: at, Err: err}
	if err != nil {
		o.Reason = api.Reason(err)
	} else {
		o.AuditID = "aud-" + name
		o.Score = 71.5
	}
	return o
}

func TestRecordAndList(t *testing.T) {
	j, _ := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := j.Record(ctx, outcome(t, "alpha", "", base, nil))
	require.NoError(t, err)
	_, err = j.Record(ctx, outcome(t, "beta", "SPY", base.Add(time.Minute), errors.New("asset not in universe")))
	require.NoError(t, err)

	all, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "beta", all[0].Template)
	require.False(t, all[0].Succeeded)
	require.Equal(t, "asset not in universe", all[0].Reason)
	require.Equal(t, "SPY", all[0].Qualifier)
	require.Equal(t, "alpha", all[1].Template)
	require.True(t, all[1].Succeeded)
	require.Equal(t, "aud-alpha", all[1].AuditID)
	require.InDelta(t, 71.5, all[1].EdgeScore, 1e-9)
	require.True(t, base.Equal(all[1].CreatedAt))

	failed, err := j.List(ctx, Filter{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)

	byName, err := j.List(ctx, Filter{Template: "alpha", Limit: 5})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	limited, err := j.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "beta", limited[0].Template)
}

func TestReopenKeepsEntries(t *testing.T) {
	j, path := openTemp(t)
	ctx := context.Background()
	recorder := j.Recorder(ctx)
	recorder(outcome(t, "alpha", "AAPL", time.Time{}, nil))
	require.NoError(t, j.Close())

	again, err := Open(path, nil)
	require.NoError(t, err)
	defer again.Close()
	entries, err := again.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotEmpty(t, entries[0].ID)
	require.False(t, entries[0].CreatedAt.IsZero())
}
