package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg := m.Current()
	require.Equal(t, 3, cfg.MaxAutoRetries)
	require.Equal(t, 40000, cfg.ContextBudgetDefault)
	require.Equal(t, "gemini", string(cfg.Tiers[TierHaikuClass].Provider))
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_auto_retries: 7\n"), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, m.Current().MaxAutoRetries)
}

func TestWatchHotReloadsMaxAutoRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_auto_retries: 3\n"), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	stop, err := m.Watch()
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("max_auto_retries: 9\n"), 0644))

	require.Eventually(t, func() bool {
		return m.Current().MaxAutoRetries == 9
	}, 2*time.Second, 20*time.Millisecond)
}
