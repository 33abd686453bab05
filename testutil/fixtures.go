package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateSQLiteFixture creates a SQLite file at dbPath holding SampleRows
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(createEventsTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	InsertRows(t, db, SampleRows())
}

// CreateEmptySQLiteFile creates a SQLite file without the events table
func CreateEmptySQLiteFile(t *testing.T, dbPath string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(`CREATE TABLE unrelated (x INTEGER)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
}

// SampleJSONL is an event log in the ingest format: one envelope per line,
// a comment-like junk line, and one line without an id.
var SampleJSONL = strings.Join([]string{
	`{"id":"j-1","kind":"submit","sessionId":"session-j","timestamp":"2026-02-01T10:00:00.000Z","sequenceHint":0,"payload":{"type":"user_message_submitted","data":{"clientMessageId":"u-1","content":"Run the tests"}}}`,
	`{"id":"j-2","kind":"harness","sessionId":"session-j","timestamp":"2026-02-01T10:00:01.000Z","sequenceHint":1,"payload":{"type":"agent_start"}}`,
	`this line is not json`,
	``,
	`{"kind":"harness","sessionId":"session-j","timestamp":"2026-02-01T10:00:02.000Z","sequenceHint":2,"payload":{"type":"tool_start","toolCallId":"t-1","toolName":"run_tests","args":{"pkg":"./..."}}}`,
	`{"id":"j-4","kind":"harness","sessionId":"session-j","timestamp":"2026-02-01T10:00:03.000Z","sequenceHint":3,"payload":{"type":"message_update","message":{"id":"m-1","role":"assistant","content":[{"type":"text","text":"Running"}]}}}`,
}, "\n") + "\n"

// CreateJSONLFixture writes SampleJSONL to path
func CreateJSONLFixture(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(SampleJSONL), 0644); err != nil {
		t.Fatalf("Failed to write JSONL fixture: %v", err)
	}
}
