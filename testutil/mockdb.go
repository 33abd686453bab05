package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// EventsTable is the table the fixtures write to
const EventsTable = "session_events"

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	session_id TEXT,
	kind TEXT,
	timestamp TEXT,
	sequence_hint BIGINT,
	payload TEXT
)`

// EventRow is one raw row of the events table. Nil fields are stored as NULL.
type EventRow struct {
	ID           string
	SessionID    any
	Kind         any
	Timestamp    any
	SequenceHint any
	Payload      any
}

// CreateInMemoryDB creates an in-memory SQLite database with the events table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// every connection to :memory: is a fresh database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createEventsTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create session_events table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SampleRows returns two sessions worth of rows: session-a has a user
// message, an agent run and a reply; session-b has one malformed row and one
// row with NULL columns next to a valid agent_start.
func SampleRows() []EventRow {
	return []EventRow{
		{ID: "a-1", SessionID: "session-a", Kind: "submit", Timestamp: "2026-01-01T00:00:00.000Z", SequenceHint: 0,
			Payload: `{"type":"user_message_submitted","data":{"clientMessageId":"u-1","content":"Hello"}}`},
		{ID: "a-2", SessionID: "session-a", Kind: "harness", Timestamp: "2026-01-01T00:00:01.000Z", SequenceHint: 1,
			Payload: `{"type":"agent_start"}`},
		{ID: "a-3", SessionID: "session-a", Kind: "harness", Timestamp: "2026-01-01T00:00:02.000Z", SequenceHint: 2,
			Payload: `{"type":"message_end","message":{"id":"m-1","role":"assistant","content":[{"type":"text","text":"Hi there"}]}}`},
		{ID: "a-4", SessionID: "session-a", Kind: "harness", Timestamp: "2026-01-01T00:00:03.000Z", SequenceHint: 3,
			Payload: `{"type":"agent_end","reason":"complete"}`},
		{ID: "b-1", SessionID: "session-b", Kind: "harness", Timestamp: "2026-01-02T00:00:00.000Z", SequenceHint: 0,
			Payload: `{"type":"agent_start"}`},
		{ID: "b-2", SessionID: "session-b", Kind: "harness", Timestamp: "2026-01-02T00:00:01.000Z", SequenceHint: 1,
			Payload: `not json`},
		{ID: "b-3", SessionID: "session-b", Kind: nil, Timestamp: "2026-01-02T00:00:02.000Z", SequenceHint: nil,
			Payload: nil},
	}
}

// InsertRows inserts raw rows into the events table
func InsertRows(t *testing.T, db *sql.DB, rows []EventRow) {
	t.Helper()
	stmt, err := db.Prepare(`INSERT INTO session_events (id, session_id, kind, timestamp, sequence_hint, payload) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		t.Fatalf("Failed to prepare insert statement: %v", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.ID, r.SessionID, r.Kind, r.Timestamp, r.SequenceHint, r.Payload); err != nil {
			t.Fatalf("Failed to insert row %s: %v", r.ID, err)
		}
	}
}

// CreateTestDB creates an in-memory database holding SampleRows
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)
	InsertRows(t, db, SampleRows())
	return db
}
