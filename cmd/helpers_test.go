package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/harness-session/internal"
	"github.com/iksnae/harness-session/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// testEnv isolates a command run from the user's home, working directory
// and environment
type testEnv struct {
	dir      string
	dbPath   string
	cacheDir string
	stdin    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	for _, key := range []string{internal.EnvDatabaseURL, internal.EnvPollInterval, internal.EnvLogLevel, internal.EnvTable} {
		t.Setenv(key, "")
	}
	env := &testEnv{
		dir:      dir,
		dbPath:   filepath.Join(dir, "events.db"),
		cacheDir: filepath.Join(dir, "cache"),
	}
	t.Setenv(internal.EnvCacheDir, env.cacheDir)
	return env
}

// withFixture seeds the environment's database with testutil.SampleRows
func (e *testEnv) withFixture(t *testing.T) *testEnv {
	t.Helper()
	testutil.CreateSQLiteFixture(t, e.dbPath)
	return e
}

// jsonlFixture writes testutil.SampleJSONL into the environment
func (e *testEnv) jsonlFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(e.dir, "events.jsonl")
	testutil.CreateJSONLFixture(t, path)
	return path
}

// run executes the root command with --db pointing at the environment's
// database and returns what was written to stdout
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runContext(t, context.Background(), args...)
}

func (e *testEnv) runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { internal.SetVerbose(false) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(e.stdin))
	rootCmd.SetArgs(append([]string{"--db", e.dbPath}, args...))

	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), err
}

// resetFlags restores every flag to its default so runs do not leak state
// into each other through the shared command tree
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	c.SetContext(nil) //nolint:staticcheck // cobra only inherits the root context when nil
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
