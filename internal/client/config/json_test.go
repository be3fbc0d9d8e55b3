package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

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
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"api_base_url":      "https://flag.example",
		"request_timeout":   "10s",
		"log_backend":       "zap",
		"search_rate_limit": 1.5,
		"search_burst":      4,
		"ephemeral":         true,
	})
	pathEnv := writeTempJSON(t, dir, "env.json", map[string]any{
		"api_base_url":    "https://env.example",
		"request_timeout": 2000000000,
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}
		t.Setenv("WRITEDESK_CONFIG", pathEnv)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "https://flag.example", cfg.APIBaseURL)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "zap", cfg.LogBackend)
		assert.Equal(t, 1.5, cfg.SearchRateLimit)
		assert.Equal(t, 4, cfg.SearchBurst)
		assert.True(t, cfg.Ephemeral)
		assert.Equal(t, DefaultLogLevel, cfg.LogLevel, "keys missing from the file keep their value")
	})

	t.Run("falls back to env", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("WRITEDESK_CONFIG", pathEnv)

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "https://env.example", cfg.APIBaseURL)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	})

	t.Run("no file → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("WRITEDESK_CONFIG", "")

		cfg := &Config{
			APIBaseURL:     "http://defaults:1234",
			RequestTimeout: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "http://defaults:1234", cfg.APIBaseURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
