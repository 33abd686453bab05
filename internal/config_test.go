package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/harness-session/testutil"
)

// isolateConfig points HOME at an empty dir and clears config env vars
func isolateConfig(t *testing.T) string {
	t.Helper()
	home := testutil.CreateTempDir(t)
	t.Setenv("HOME", home)
	for _, key := range []string{EnvDatabaseURL, EnvCacheDir, EnvPollInterval, EnvLogLevel, EnvTable} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateConfig(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".harness-session", "events.db"), cfg.DatabaseURL)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultTable, cfg.Table)
	assert.Equal(t, []string{"defaults"}, cfg.Source)
}

func TestLoadConfig_Precedence(t *testing.T) {
	home := isolateConfig(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"),
		[]byte("HARNESS_SESSION_DB=/from/dotenv.db\nHARNESS_SESSION_LOG_LEVEL=debug\nHARNESS_SESSION_TABLE=dotenv_events\n"), 0644))

	configPath := filepath.Join(home, "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
	// file beats .env
	"database_url": "/from/file.db",
	"poll_interval": "250ms",
	/* trailing commas are fine */
	"cache_dir": "/from/file-cache",
}`), 0644))

	t.Setenv(EnvCacheDir, "/from/env-cache")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.DatabaseURL)
	assert.Equal(t, "/from/env-cache", cfg.CacheDir)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "dotenv_events", cfg.Table)
	assert.Equal(t, []string{"defaults", ".env", configPath, "environment"}, cfg.Source)
}

func TestLoadConfig_Errors(t *testing.T) {
	home := isolateConfig(t)

	_, err := LoadConfig(filepath.Join(home, "missing.jsonc"))
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr, "explicit config path must exist")

	bad := filepath.Join(home, "bad.jsonc")
	require.NoError(t, os.WriteFile(bad, []byte(`{"poll_interval": "soon"}`), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorAs(t, err, &cfgErr)

	t.Setenv(EnvTable, "drop table;")
	_, err = LoadConfig("")
	assert.ErrorAs(t, err, &cfgErr)
}

func TestClampPollInterval(t *testing.T) {
	assert.Equal(t, MinPollInterval, ClampPollInterval(0))
	assert.Equal(t, MinPollInterval, ClampPollInterval(time.Millisecond))
	assert.Equal(t, time.Second, ClampPollInterval(time.Second))
}
