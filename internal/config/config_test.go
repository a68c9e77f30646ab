package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "margin.db", cfg.DatabasePath)
	assert.Equal(t, 500, cfg.SyncBatchSize)
	assert.True(t, cfg.FragmentsEnabled)
}

func Test_parseJson_OverlaysOnlyPresentFields(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"remote_base_url": "https://margin.example.net",
		"sync_batch_size": 100,
	})
	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "https://margin.example.net", cfg.RemoteBaseURL)
	assert.Equal(t, 100, cfg.SyncBatchSize)
	// untouched by the partial file
	assert.Equal(t, "margin.db", cfg.DatabasePath)
	assert.True(t, cfg.FragmentsEnabled)
}

func Test_parseJson_NoFlag_NoChanges(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := &Config{RemoteBaseURL: "keep-me", SyncBatchSize: 7}
	parseJson(cfg)

	assert.Equal(t, "keep-me", cfg.RemoteBaseURL)
	assert.Equal(t, 7, cfg.SyncBatchSize)
}

func Test_parseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-f", "other.db", "-b", "25"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "other.db", cfg.DatabasePath)
	assert.Equal(t, 25, cfg.SyncBatchSize)
}
