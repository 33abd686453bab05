package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/harness-session/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport(t *testing.T) (*SessionReport, string) {
	t.Helper()
	events := CreateTestConversation()
	fingerprint, err := Fingerprint(events)
	require.NoError(t, err)
	return ReplayEnvelopes(events), fingerprint
}

func TestCacheManager_Paths(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)

	assert.Equal(t, cacheDir, cm.GetCacheDir())
	assert.Equal(t, filepath.Join(cacheDir, "sessions.yaml"), cm.GetIndexPath())

	tests := []struct {
		sessionID string
		want      string
	}{
		{"session-1", "session_session-1.json.zst"},
		{"a/b", "session_a_b-"},
		{"../x y", "session_.._x_y-"},
	}
	for _, tt := range tests {
		t.Run(tt.sessionID, func(t *testing.T) {
			got := cm.GetSessionPath(tt.sessionID)
			assert.Equal(t, cacheDir, filepath.Dir(got))
			assert.True(t, strings.HasPrefix(filepath.Base(got), tt.want), "got %s", got)
			assert.True(t, strings.HasSuffix(got, ".json.zst"))
		})
	}

	assert.NotEqual(t, cm.GetSessionPath("a/b"), cm.GetSessionPath("a_b"))
	assert.NotEqual(t, cm.GetSessionPath("a/b"), cm.GetSessionPath("a?b"))
	assert.Equal(t, cm.GetSessionPath("a/b"), cm.GetSessionPath("a/b"))
}

func TestCacheManager_SanitizedIDsDoNotCollide(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	first, fpFirst := testReport(t)
	first.SessionID = "a/b"
	second := &SessionReport{SessionID: "a_b", RowsIn: first.RowsIn, RowsValid: first.RowsValid, Flat: NewFlatState()}

	require.NoError(t, cm.SaveReport(first, fpFirst, "events.db"))
	require.NoError(t, cm.SaveReport(second, "other-fingerprint", "events.db"))

	loaded, ok, err := cm.LoadReport("a/b", fpFirst)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a/b", loaded.SessionID)

	loaded, ok, err = cm.LoadReport("a_b", "other-fingerprint")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a_b", loaded.SessionID)
}

func TestCacheManager_ReportForAnotherSessionIsAMiss(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	report, fingerprint := testReport(t)
	require.NoError(t, cm.SaveReport(report, fingerprint, "events.db"))

	other := *report
	other.SessionID = "someone-else"
	data, err := json.Marshal(&other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cm.GetSessionPath(TestSessionID), reportEncoder.EncodeAll(data, nil), 0644))

	_, ok, err := cm.LoadReport(TestSessionID, fingerprint)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheManager_SaveAndLoadReport(t *testing.T) {
	cm := NewCacheManager(filepath.Join(testutil.CreateTempDir(t), "cache"))
	report, fingerprint := testReport(t)

	require.NoError(t, cm.SaveReport(report, fingerprint, "events.db"))

	loaded, ok, err := cm.LoadReport(TestSessionID, fingerprint)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, report.SessionID, loaded.SessionID)
	assert.Equal(t, report.RowsIn, loaded.RowsIn)
	assert.Equal(t, report.Flat.Epoch, loaded.Flat.Epoch)
	assert.Equal(t, report.Flat.Messages, loaded.Flat.Messages)
	assert.Equal(t, report.Flat.Usage, loaded.Flat.Usage)
	assert.Equal(t, report.Display.TokenUsage, loaded.Display.TokenUsage)
	assert.Equal(t, report.Display.IsRunning, loaded.Display.IsRunning)

	index, err := cm.LoadIndex()
	require.NoError(t, err)
	require.Len(t, index.Sessions, 1)
	entry := index.Sessions[0]
	assert.Equal(t, TestSessionID, entry.SessionID)
	assert.Equal(t, fingerprint, entry.Fingerprint)
	assert.Equal(t, len(report.Flat.Messages), entry.MessageCount)
	assert.Equal(t, 1, entry.Epoch)
	assert.Equal(t, CacheVersion, index.Metadata.CacheVersion)
	assert.Equal(t, "events.db", index.Metadata.DatabasePath)
}

func TestCacheManager_StaleFingerprint(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	report, fingerprint := testReport(t)
	require.NoError(t, cm.SaveReport(report, fingerprint, "events.db"))

	loaded, ok, err := cm.LoadReport(TestSessionID, "different")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loaded)

	assert.False(t, cm.IsCacheValid("unknown-session", fingerprint))
	assert.True(t, cm.IsCacheValid(TestSessionID, fingerprint))
}

func TestCacheManager_UpdatesExistingEntry(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	report, fingerprint := testReport(t)

	require.NoError(t, cm.SaveReport(report, "old", "events.db"))
	require.NoError(t, cm.SaveReport(report, fingerprint, "events.db"))

	index, err := cm.LoadIndex()
	require.NoError(t, err)
	require.Len(t, index.Sessions, 1)
	assert.Equal(t, fingerprint, index.Sessions[0].Fingerprint)
}

func TestCacheManager_DatabaseChangeResetsIndex(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	report, fingerprint := testReport(t)
	require.NoError(t, cm.SaveReport(report, fingerprint, "a.db"))

	other := *report
	other.SessionID = "session-2"
	require.NoError(t, cm.SaveReport(&other, fingerprint, "b.db"))

	index, err := cm.LoadIndex()
	require.NoError(t, err)
	require.Len(t, index.Sessions, 1)
	assert.Equal(t, "session-2", index.Sessions[0].SessionID)
	assert.Equal(t, "b.db", index.Metadata.DatabasePath)
}

func TestCacheManager_CorruptReport(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	report, fingerprint := testReport(t)
	require.NoError(t, cm.SaveReport(report, fingerprint, "events.db"))

	require.NoError(t, os.WriteFile(cm.GetSessionPath(TestSessionID), []byte("not zstd"), 0644))

	_, ok, err := cm.LoadReport(TestSessionID, fingerprint)
	assert.False(t, ok)
	var cacheErr *CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, "load", cacheErr.Op)
}

func TestCacheManager_ClearCache(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	report, fingerprint := testReport(t)
	require.NoError(t, cm.SaveReport(report, fingerprint, "events.db"))

	require.NoError(t, cm.ClearCache())

	_, err := os.Stat(cm.GetIndexPath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cm.GetSessionPath(TestSessionID))
	assert.True(t, os.IsNotExist(err))

	// clearing an empty cache is fine
	require.NoError(t, cm.ClearCache())
}

func TestCacheManager_LoadIndexMissing(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	_, err := cm.LoadIndex()
	assert.Error(t, err)
	assert.False(t, cm.IsCacheValid(TestSessionID, "x"))
}
