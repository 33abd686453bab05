package cmd

import (
	"path/filepath"
	"testing"

	"github.com/iksnae/harness-session/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthcheckCommand(t *testing.T) {
	env := newTestEnv(t).withFixture(t)

	out, err := env.run(t, "healthcheck")
	require.NoError(t, err)
	assert.Contains(t, out, "Event store reachable")
	assert.Contains(t, out, "Table session_events present")
	assert.Contains(t, out, "Found 2 session(s), 7 row(s)")
	assert.Contains(t, out, "Health check passed!")
	assert.NotContains(t, out, "Sources:")
}

func TestHealthcheckCommand_Details(t *testing.T) {
	env := newTestEnv(t).withFixture(t)

	out, err := env.run(t, "healthcheck", "--details")
	require.NoError(t, err)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "Database: "+env.dbPath)
	assert.Contains(t, out, "session-a")
}

func TestHealthcheckCommand_Failures(t *testing.T) {
	t.Run("missing database", func(t *testing.T) {
		env := newTestEnv(t)
		env.dbPath = filepath.Join(env.dir, "missing.db")

		out, err := env.run(t, "healthcheck")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event store unreachable")
		assert.Contains(t, out, "Health check failed")
	})

	t.Run("missing table", func(t *testing.T) {
		env := newTestEnv(t)
		testutil.CreateEmptySQLiteFile(t, env.dbPath)

		out, err := env.run(t, "healthcheck")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "events table missing")
		assert.Contains(t, out, "harness-session ingest")
	})
}

func TestHealthcheckCommand_EmptyStore(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "ingest", "-")
	require.NoError(t, err)

	out, err := env.run(t, "healthcheck")
	require.NoError(t, err)
	assert.Contains(t, out, "Event store available but empty")
}
