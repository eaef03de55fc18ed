package wizard_test

import (
	"context"
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/api/apitest"
	"github.com/jask/edgeaudit/internal/wizard"
)

func newFixture(t *testing.T, opts ...wizard.Option) (*apitest.Server, *wizard.Machine) {
	t.Helper()
	fake := apitest.New(t)
	fake.AddTemplate("alpha", "momentum", 1.5, "AAPL", "MSFT")
	fake.AddTemplate("beta", "mean reversion", 0.8, "SPY")
	opts = append([]wizard.Option{wizard.WithSuccessDelay(0)}, opts...)
	return fake, wizard.New(context.Background(), fake.Client(t), opts...)
}

func loadCatalog(t *testing.T, m *wizard.Machine) []api.Template {
	t.Helper()
	cmd, err := m.SelectCatalogMode()
	require.NoError(t, err)
	require.Equal(t, wizard.SelectingTemplate{Loading: true}, m.Step())
	m.Drive(cmd)
	step, ok := m.Step().(wizard.SelectingTemplate)
	require.True(t, ok, "step is %s", m.Step().Name())
	require.False(t, step.Loading)
	return step.Catalog
}

func pick(t *testing.T, catalog []api.Template, name string) api.Template {
	t.Helper()
	for _, tpl := range catalog {
		if tpl.Name == name {
			return tpl
		}
	}
	t.Fatalf("template %q not in catalog", name)
	return api.Template{}
}

func TestWholeTemplateSubmissionSucceeds(t *testing.T) {
	fake, m := newFixture(t)
	catalog := loadCatalog(t, m)
	require.Len(t, catalog, 2)

	require.NoError(t, m.PickTemplate(pick(t, catalog, "alpha")))
	require.NoError(t, m.SkipQualifier())

	confirming, ok := m.Step().(wizard.Confirming)
	require.True(t, ok)
	require.True(t, confirming.Request.WholeTemplate())

	cmd, err := m.Submit()
	require.NoError(t, err)
	require.True(t, m.Busy())

	navigateTo := m.Drive(cmd)
	done, ok := m.Step().(wizard.Succeeded)
	require.True(t, ok, "step is %s", m.Step().Name())
	require.NotEmpty(t, done.AuditID)
	require.Equal(t, done.AuditID, navigateTo)
	require.InDelta(t, 65.0, done.Score, 1e-9)

	bodies := fake.SubmitBodies()
	require.Len(t, bodies, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(bodies[0], &sent))
	require.Equal(t, "alpha", sent["name"])
	require.NotContains(t, sent, "selected_asset")
}

func TestQualifiedSubmissionCarriesAsset(t *testing.T) {
	fake, m := newFixture(t)
	catalog := loadCatalog(t, m)

	require.NoError(t, m.PickTemplate(pick(t, catalog, "alpha")))
	require.ErrorIs(t, m.PickQualifier("TSLA"), wizard.ErrUnknownQualifier)
	require.NoError(t, m.PickQualifier("MSFT"))

	cmd, err := m.Submit()
	require.NoError(t, err)
	m.Drive(cmd)
	require.IsType(t, wizard.Succeeded{}, m.Step())

	var sent api.SubmitRequest
	require.NoError(t, json.Unmarshal(fake.SubmitBodies()[0], &sent))
	require.Equal(t, "MSFT", sent.SelectedAsset)
	require.Equal(t, []string{"AAPL", "MSFT"}, sent.TickerUniverse)
}

func TestRejectedSubmissionKeepsSelections(t *testing.T) {
	fake, m := newFixture(t)
	fake.FailSubmits("asset not in universe")
	catalog := loadCatalog(t, m)

	require.NoError(t, m.PickTemplate(pick(t, catalog, "alpha")))
	require.NoError(t, m.PickQualifier("AAPL"))
	cmd, err := m.Submit()
	require.NoError(t, err)
	require.Empty(t, m.Drive(cmd))

	failed, ok := m.Step().(wizard.Failed)
	require.True(t, ok, "step is %s", m.Step().Name())
	require.Equal(t, "asset not in universe", failed.Reason)
	require.Equal(t, "alpha", failed.Request.Template.Name)
	require.Equal(t, "AAPL", failed.Request.Qualifier)

	_, err = m.Submit()
	require.ErrorIs(t, err, wizard.ErrInvalidTransition)

	require.NoError(t, m.Back())
	confirming, ok := m.Step().(wizard.Confirming)
	require.True(t, ok)
	require.Equal(t, failed.Request, confirming.Request)

	fake.FailSubmits("")
	cmd, err = m.Submit()
	require.NoError(t, err)
	require.NotEmpty(t, m.Drive(cmd))
	require.Len(t, fake.SubmitBodies(), 2)
}

func TestUnreachableServiceAtSubmitFails(t *testing.T) {
	fake, m := newFixture(t)
	catalog := loadCatalog(t, m)
	require.NoError(t, m.PickTemplate(pick(t, catalog, "alpha")))
	require.NoError(t, m.SkipQualifier())

	fake.Close()
	cmd, err := m.Submit()
	require.NoError(t, err)
	m.Drive(cmd)

	failed, ok := m.Step().(wizard.Failed)
	require.True(t, ok)
	require.NotEmpty(t, failed.Reason)
}

func TestBackClearsOnlyTheLeftStep(t *testing.T) {
	_, m := newFixture(t)
	catalog := loadCatalog(t, m)

	require.NoError(t, m.PickTemplate(pick(t, catalog, "alpha")))
	require.NoError(t, m.PickQualifier("AAPL"))

	require.NoError(t, m.Back())
	q, ok := m.Step().(wizard.SelectingQualifier)
	require.True(t, ok)
	require.Equal(t, "alpha", q.Template.Name)

	require.NoError(t, m.Back())
	sel, ok := m.Step().(wizard.SelectingTemplate)
	require.True(t, ok)
	require.Equal(t, "alpha", sel.Previous)
	require.Len(t, sel.Catalog, 2)

	require.NoError(t, m.Back())
	require.Equal(t, wizard.ChoosingMode{}, m.Step())

	require.ErrorIs(t, m.Back(), wizard.ErrInvalidTransition)
}

func TestManualEntryIsUnavailable(t *testing.T) {
	_, m := newFixture(t)
	err := m.SelectManualEntry()
	require.ErrorIs(t, err, wizard.ErrManualEntryUnavailable)

	mode, ok := m.Step().(wizard.ChoosingMode)
	require.True(t, ok)
	require.ErrorIs(t, mode.Notice, wizard.ErrManualEntryUnavailable)

	// the wizard stays usable
	require.NotEmpty(t, loadCatalog(t, m))
}

func TestDoubleSubmitIsRejected(t *testing.T) {
	fake, m := newFixture(t)
	catalog := loadCatalog(t, m)
	require.NoError(t, m.PickTemplate(pick(t, catalog, "beta")))
	require.NoError(t, m.SkipQualifier())

	cmd, err := m.Submit()
	require.NoError(t, err)
	second, err := m.Submit()
	require.ErrorIs(t, err, wizard.ErrSubmitInFlight)
	require.Nil(t, second)
	require.ErrorIs(t, m.Back(), wizard.ErrSubmitInFlight)

	m.Drive(cmd)
	require.Len(t, fake.SubmitBodies(), 1)
}

func TestCatalogResultAfterResetIsIgnored(t *testing.T) {
	_, m := newFixture(t)
	cmd, err := m.SelectCatalogMode()
	require.NoError(t, err)

	m.Reset()
	msg := cmd()
	_, handled := m.Update(msg)
	require.True(t, handled)
	require.Equal(t, wizard.ChoosingMode{}, m.Step())
}

func TestSubmitResultAfterResetIsIgnored(t *testing.T) {
	var outcomes []wizard.Outcome
	_, m := newFixture(t, wizard.OnOutcome(func(o wizard.Outcome) { outcomes = append(outcomes, o) }))
	catalog := loadCatalog(t, m)
	require.NoError(t, m.PickTemplate(pick(t, catalog, "alpha")))
	require.NoError(t, m.SkipQualifier())
	cmd, err := m.Submit()
	require.NoError(t, err)

	m.Reset()
	follow, handled := m.Update(cmd())
	require.True(t, handled)
	require.Nil(t, follow)
	require.Equal(t, wizard.ChoosingMode{}, m.Step())
	require.Empty(t, outcomes)
}

func TestOutcomeHookSeesEveryAttempt(t *testing.T) {
	var outcomes []wizard.Outcome
	fake, m := newFixture(t, wizard.OnOutcome(func(o wizard.Outcome) { outcomes = append(outcomes, o) }))
	catalog := loadCatalog(t, m)
	require.NoError(t, m.PickTemplate(pick(t, catalog, "beta")))
	require.NoError(t, m.SkipQualifier())

	fake.FailSubmits("service busy")
	cmd, _ := m.Submit()
	m.Drive(cmd)
	require.NoError(t, m.Back())
	fake.FailSubmits("")
	cmd, _ = m.Submit()
	m.Drive(cmd)

	require.Len(t, outcomes, 2)
	require.False(t, outcomes[0].Succeeded())
	require.Equal(t, "service busy", outcomes[0].Reason)
	require.True(t, outcomes[1].Succeeded())
	require.NotEmpty(t, outcomes[1].AuditID)
}

func TestForeignMessagesAreNotHandled(t *testing.T) {
	_, a := newFixture(t)
	_, b := newFixture(t)
	cmd, err := a.SelectCatalogMode()
	require.NoError(t, err)
	msg := cmd()

	_, handled := b.Update(msg)
	require.False(t, handled)
	_, handled = b.Update(tea.KeyMsg{})
	require.False(t, handled)

	_, handled = a.Update(msg)
	require.True(t, handled)
}

func TestPickTemplateOutsideCatalog(t *testing.T) {
	_, m := newFixture(t)
	loadCatalog(t, m)
	err := m.PickTemplate(api.Template{Name: "gamma"})
	require.ErrorIs(t, err, wizard.ErrUnknownTemplate)
	require.IsType(t, wizard.SelectingTemplate{}, m.Step())
}
