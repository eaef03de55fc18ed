package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "edgeaudit.log")
	logger, err := Build(Options{Level: "debug", Path: path, JSON: true})
	require.NoError(t, err)

	logger.Debug("loaded page", zap.Int("page", 2))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"msg":"loaded page"`)
	require.Contains(t, string(raw), `"page":2`)
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	_, err := Build(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNamedCarriesComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edgeaudit.log")
	_, err := Init(Options{Level: "info", Path: path, JSON: true})
	require.NoError(t, err)
	t.Cleanup(func() { Set(nil) })

	Named("wizard").Info("submission succeeded")
	Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"component":"wizard"`)
	require.Contains(t, string(raw), `"logger":"wizard"`)
}

func TestSetNilRestoresNop(t *testing.T) {
	Set(nil)
	require.NotNil(t, L())
	Named("loader").Info("dropped")
}
