package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("EDGEAUDIT_CONFIG", filepath.Join(dir, "config.toml"))
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	require.Zero(t, cfg.API.RequestTimeout)
	require.Equal(t, 20, cfg.UI.PageSize)
	require.Equal(t, 500*time.Millisecond, cfg.UI.FilterDebounce)
	require.Equal(t, 1500*time.Millisecond, cfg.UI.SuccessDelay)
	require.Equal(t, "created_at", cfg.UI.DefaultSort)
	require.True(t, cfg.History.Enabled)
	require.Equal(t, filepath.Join(dir, ".local", "share", "edgeaudit", "history.db"), cfg.History.Path)
	require.Empty(t, cfg.Metrics.Addr)
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := isolate(t)
	body := `
[api]
base_url = "https://audits.example.com"
request_timeout = "20s"

[ui]
page_size = 50
default_sort = "edge_score"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o600))
	t.Setenv("EDGEAUDIT_UI_PAGE_SIZE", "10")
	t.Setenv("EDGEAUDIT_METRICS_ADDR", "127.0.0.1:9102")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://audits.example.com", cfg.API.BaseURL)
	require.Equal(t, 20*time.Second, cfg.API.RequestTimeout)
	require.Equal(t, 10, cfg.UI.PageSize)
	require.Equal(t, "edge_score", cfg.UI.DefaultSort)
	require.Equal(t, "127.0.0.1:9102", cfg.Metrics.Addr)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	isolate(t)
	t.Setenv("EDGEAUDIT_API_BASE_URL", "localhost:8000")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "default", mutate: func(*Config) {}, ok: true},
		{name: "relative url", mutate: func(c *Config) { c.API.BaseURL = "/api" }},
		{name: "zero page size", mutate: func(c *Config) { c.UI.PageSize = 0 }},
		{name: "negative timeout", mutate: func(c *Config) { c.API.RequestTimeout = -time.Second }},
		{name: "unknown sort", mutate: func(c *Config) { c.UI.DefaultSort = "name" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if tc.ok {
				require.NoError(t, cfg.Validate())
			} else {
				require.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.API.BaseURL = "https://audits.example.com"
	cfg.UI.PageSize = 40
	cfg.UI.FilterDebounce = 250 * time.Millisecond
	cfg.History.Enabled = false

	require.NoError(t, Save(cfg))
	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}
