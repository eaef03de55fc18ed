package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/api/apitest"
	"github.com/jask/edgeaudit/internal/history"
)

type harness struct {
	t    *testing.T
	fake *apitest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("EDGEAUDIT_CONFIG", filepath.Join(dir, "config.toml"))
	return &harness{t: t, fake: apitest.New(t)}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	c := &cli{}
	root := newRootCmd(c)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--base-url", h.fake.URL}, args...))
	err := root.Execute()
	c.teardown()
	return out.String(), err
}

func seed(fake *apitest.Server, n int, name string) {
	for i := 0; i < n; i++ {
		fake.AddAudit(api.AuditDetail{
			StrategyName: fmt.Sprintf("%s_%02d", name, i),
			EdgeScore:    api.EdgeScore{EdgeScore: float64(50 + i)},
			OverfitScore: api.OverfitScore{Probability: 0.25, Label: "low"},
		})
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	seed(h.fake, 2, "Momentum")

	out, err := h.run("status")
	require.NoError(t, err)
	require.Contains(t, out, "ok")
	require.Contains(t, out, "strategies")

	out, err = h.run("status", "-o", "json")
	require.NoError(t, err)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, 2, report.Summary.TotalAudits)
	require.True(t, report.Health.OK())
}

func TestAuditsListFirstPage(t *testing.T) {
	h := newHarness(t)
	seed(h.fake, 25, "MeanReversion")
	seed(h.fake, 3, "Momentum")

	out, err := h.run("audits", "list", "--filter", "mean", "-o", "json")
	require.NoError(t, err)
	var page api.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Audits, 20)
	require.Equal(t, 25, page.Total)

	reqs := h.fake.Requests()
	require.Equal(t, "GET /audits?page=1&page_size=20&sort_by=created_at&sort_order=desc&strategy_name=mean", reqs[len(reqs)-1])

	out, err = h.run("audits", "list", "--filter", "mean", "--page", "2", "--sort", "score", "--order", "asc")
	require.NoError(t, err)
	require.Contains(t, out, "page 2 of 2")
	require.Contains(t, out, "MeanReversion_")
}

func TestAuditsGet(t *testing.T) {
	h := newHarness(t)
	seed(h.fake, 1, "Breakout")

	out, err := h.run("audits", "get", "aud-0001")
	require.NoError(t, err)
	require.Contains(t, out, "Breakout_00")

	_, err = h.run("audits", "get", "aud-4040")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestSubmitRecordsHistory(t *testing.T) {
	h := newHarness(t)
	h.fake.AddTemplate("alpha", "trend following", 1.5, "SPY", "QQQ")
	h.fake.AddTemplate("beta", "carry", 0.5, "TLT")

	out, err := h.run("submit", "alpha", "-o", "json")
	require.NoError(t, err)
	var res submitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.AuditID)
	require.Equal(t, "alpha", res.Strategy)
	require.Empty(t, res.Asset)

	h.fake.FailSubmits("asset not in universe")
	_, err = h.run("submit", "beta", "--asset", "TLT")
	require.Error(t, err)
	require.Contains(t, err.Error(), "asset not in universe")

	out, err = h.run("history", "local", "-o", "json")
	require.NoError(t, err)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	var failed, succeeded int
	for _, e := range entries {
		if e.Succeeded {
			succeeded++
			require.Equal(t, res.AuditID, e.AuditID)
		} else {
			failed++
			require.Equal(t, "asset not in universe", e.Reason)
		}
	}
	require.Equal(t, 1, failed)
	require.Equal(t, 1, succeeded)
}

func TestSubmitRejectsBadSelections(t *testing.T) {
	h := newHarness(t)
	h.fake.AddTemplate("alpha", "trend following", 1.5, "SPY", "QQQ")

	_, err := h.run("submit", "alpah")
	require.Error(t, err)
	require.Contains(t, err.Error(), `did you mean "alpha"`)

	_, err = h.run("submit", "alpha", "--asset", "TSLA")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SPY, QQQ")
	require.Empty(t, h.fake.SubmitBodies())
}

func TestLeaderboardYAML(t *testing.T) {
	h := newHarness(t)
	seed(h.fake, 3, "Momentum")

	out, err := h.run("leaderboard", "--limit", "2", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "strategy_name: Momentum_02")
	require.Equal(t, 2, strings.Count(out, "audit_id:"))
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("status", "-o", "xml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown output format")
}

func TestStrategiesCompare(t *testing.T) {
	h := newHarness(t)
	seed(h.fake, 2, "Carry")

	out, err := h.run("strategies", "compare", "Carry_01", "Missing")
	require.NoError(t, err)
	require.Contains(t, out, "aud-0002")
	require.Contains(t, out, "no audits")

	out, err = h.run("strategies", "compare", "Carry_01", "Missing", "-o", "json")
	require.NoError(t, err)
	var audits []*api.AuditDetail
	require.NoError(t, json.Unmarshal([]byte(out), &audits))
	require.Len(t, audits, 2)
	require.Equal(t, "Carry_01", audits[0].StrategyName)
	require.Nil(t, audits[1])

	out, err = h.run("strategies", "compare", "Carry_00", "Carry_01", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "strategy_name: Carry_00")
	require.Contains(t, out, "strategy_name: Carry_01")

	_, err = h.run("strategies", "compare", "Carry_00")
	require.Error(t, err)
}

func TestSubmitLogsUnavailableJournal(t *testing.T) {
	h := newHarness(t)
	h.fake.AddTemplate("alpha", "trend following", 1.5, "SPY")
	home := os.Getenv("HOME")
	blocker := filepath.Join(home, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	t.Setenv("EDGEAUDIT_HISTORY_PATH", filepath.Join(blocker, "history.db"))

	_, err := h.run("submit", "alpha")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(home, ".local", "state", "edgeaudit", "edgeaudit.log"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "submission journal unavailable")
	require.Contains(t, string(raw), "open history")
}
