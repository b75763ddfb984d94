package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/pvault/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	t.Setenv(flagx.ConfigEnvName, "")
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"api_url":             "http://www.example:9000/api",
		"request_timeout":     "10s",
		"requests_per_second": 0,
		"burst":               3,
		"s3_access_key":       "minioadmin",
		"s3_secret_key":       "minioadmin",
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{RequestsPerSecond: 5, DataDir: "keep"}
		require.NoError(t, parseJson(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, "http://www.example:9000/api", cfg.APIBaseURL)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 0.0, cfg.RequestsPerSecond, "explicit zero disables pacing")
		assert.Equal(t, 3, cfg.Burst)
		assert.Equal(t, "minioadmin", cfg.S3AccessKey)
		assert.Equal(t, "keep", cfg.DataDir, "absent keys keep their value")
	})

	t.Run("loads from env", func(t *testing.T) {
		t.Setenv(flagx.ConfigEnvName, pathFlag)
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "http://www.example:9000/api", cfg.APIBaseURL)
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		cfg := &Config{APIBaseURL: "defaults", RequestTimeout: 42 * time.Second}
		require.NoError(t, parseJson(cfg, []string{"-a", "x"}))

		assert.Equal(t, "defaults", cfg.APIBaseURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("nanosecond timeout", func(t *testing.T) {
		p := writeTempJSON(t, dir, "ns.json", map[string]any{"request_timeout": 1500000000})
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-c", p}))
		assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Error(t, parseJson(&Config{}, []string{"-c", bad}))
	})
}
