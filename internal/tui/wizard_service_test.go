package tui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/wizard"
)

type deadlineRecorder struct {
	calls []string
	left  []time.Duration
}

func (d *deadlineRecorder) record(ctx context.Context, call string) {
	d.calls = append(d.calls, call)
	if dl, ok := ctx.Deadline(); ok {
		d.left = append(d.left, time.Until(dl))
	}
}

func (d *deadlineRecorder) AvailableStrategies(ctx context.Context) ([]api.Template, error) {
	d.record(ctx, "catalog")
	return nil, nil
}

func (d *deadlineRecorder) GetStrategy(ctx context.Context, name string) (*api.Strategy, error) {
	d.record(ctx, "strategy")
	return &api.Strategy{Name: name}, nil
}

func (d *deadlineRecorder) SubmitAudit(ctx context.Context, req api.SubmitRequest) (*api.AuditDetail, error) {
	d.record(ctx, "submit")
	return &api.AuditDetail{AuditID: "aud-1"}, nil
}

func TestWizardCallsGetRequestTimeout(t *testing.T) {
	rec := &deadlineRecorder{}
	svc := boundWizard(rec, time.Minute)
	ctx := context.Background()

	_, err := svc.AvailableStrategies(ctx)
	require.NoError(t, err)
	_, err = svc.GetStrategy(ctx, "alpha")
	require.NoError(t, err)
	_, err = svc.SubmitAudit(ctx, api.SubmitRequest{})
	require.NoError(t, err)

	require.Equal(t, []string{"catalog", "strategy", "submit"}, rec.calls)
	require.Len(t, rec.left, 3)
	for _, left := range rec.left {
		require.LessOrEqual(t, left, time.Minute)
		require.Greater(t, left, 50*time.Second)
	}
}

func TestWizardCallsUnboundedWithoutTimeout(t *testing.T) {
	rec := &deadlineRecorder{}
	require.Equal(t, wizard.Service(rec), boundWizard(rec, 0))

	_, err := boundWizard(rec, 0).AvailableStrategies(context.Background())
	require.NoError(t, err)
	require.Empty(t, rec.left)
}
