package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommand_File(t *testing.T) {
	env := newTestEnv(t)
	path := env.jsonlFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, err := env.runContext(t, ctx, "watch", "session-j", "--file", path, "--interval", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "session-j")
	assert.Contains(t, out, "run_tests")
	assert.Equal(t, 1, strings.Count(out, "📡"), "unchanged file is drawn once")
}

func TestWatchCommand_Database(t *testing.T) {
	env := newTestEnv(t).withFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	out, err := env.runContext(t, ctx, "watch", "session-b", "--interval", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "running")
}

func TestWatchCommand_MissingSession(t *testing.T) {
	env := newTestEnv(t).withFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// an unknown session replays to an empty snapshot rather than failing,
	// since its events may not have been written yet
	out, err := env.runContext(t, ctx, "watch", "nope", "--interval", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "idle")
}
