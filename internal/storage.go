package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SessionSummary describes one session in the event store
type SessionSummary struct {
	SessionID  string `json:"sessionId" yaml:"session_id"`
	EventCount int    `json:"eventCount" yaml:"event_count"`
	FirstEvent string `json:"firstEvent" yaml:"first_event"`
	LastEvent  string `json:"lastEvent" yaml:"last_event"`
}

// Storage reads and appends session event rows
type Storage struct {
	db    *Database
	table string
}

// NewStorage creates a new Storage over table. An invalid table name falls
// back to DefaultTable.
func NewStorage(db *Database, table string) *Storage {
	if ValidateTableName(table) != nil {
		LogWarn("Invalid table name %q, using %s", table, DefaultTable)
		table = DefaultTable
	}
	return &Storage{db: db, table: table}
}

// Table returns the table the storage reads from
func (s *Storage) Table() string {
	return s.table
}

// EnsureSchema creates the storage's table when missing
func (s *Storage) EnsureSchema(ctx context.Context) error {
	return s.db.EnsureSchema(ctx, s.table)
}

// TableExists reports whether the storage's table is present
func (s *Storage) TableExists(ctx context.Context) (bool, error) {
	return s.db.TableExists(ctx, s.table)
}

// LoadRows loads the candidate rows of one session, untyped, the way the
// validator expects them. Rows are not validated here.
func (s *Storage) LoadRows(ctx context.Context, sessionID string) ([]any, error) {
	query := fmt.Sprintf(`SELECT id, session_id, kind, timestamp, sequence_hint, payload
FROM %s WHERE session_id = ? ORDER BY timestamp, sequence_hint, id`, s.table)
	return s.queryRows(ctx, s.db.Rebind(query), sessionID)
}

// LoadAllRows loads every row in the store
func (s *Storage) LoadAllRows(ctx context.Context) ([]any, error) {
	query := fmt.Sprintf(`SELECT id, session_id, kind, timestamp, sequence_hint, payload
FROM %s ORDER BY timestamp, sequence_hint, id`, s.table)
	return s.queryRows(ctx, query)
}

func (s *Storage) queryRows(ctx context.Context, query string, args ...any) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Path: s.db.Path, Op: "query", Err: err}
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var id, sessionID, kind, timestamp, seq, payload any
		if err := rows.Scan(&id, &sessionID, &kind, &timestamp, &seq, &payload); err != nil {
			return nil, &StorageError{Path: s.db.Path, Op: "scan", Err: err}
		}
		out = append(out, candidateRow(id, sessionID, kind, timestamp, seq, payload))
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.db.Path, Op: "scan", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return out, nil
}

// candidateRow maps scanned columns to a row object. NULL columns are left
// out so that the validator drops the row.
func candidateRow(id, sessionID, kind, timestamp, seq, payload any) map[string]any {
	row := make(map[string]any, 6)
	set := func(key string, v any) {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if v != nil {
			row[key] = v
		}
	}
	set("id", id)
	set("sessionId", sessionID)
	set("kind", kind)
	set("timestamp", timestamp)
	set("sequenceHint", seq)

	if b, ok := payload.([]byte); ok {
		payload = string(b)
	}
	if text, ok := payload.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			row["payload"] = decoded
		} else {
			LogDebug("Row %v has undecodable payload: %v", id, err)
			row["payload"] = text
		}
	} else if payload != nil {
		row["payload"] = payload
	}
	return row
}

// ListSessions summarizes every session, most recently active first
func (s *Storage) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	query := fmt.Sprintf(`SELECT session_id, COUNT(*), MIN(timestamp), MAX(timestamp)
FROM %s WHERE session_id IS NOT NULL AND session_id <> ''
GROUP BY session_id ORDER BY MAX(timestamp) DESC, session_id`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StorageError{Path: s.db.Path, Op: "query", Err: err}
	}
	defer rows.Close()

	sessions := make([]SessionSummary, 0)
	for rows.Next() {
		var summary SessionSummary
		var first, last sql.NullString
		if err := rows.Scan(&summary.SessionID, &summary.EventCount, &first, &last); err != nil {
			return nil, &StorageError{Path: s.db.Path, Op: "scan", Err: err}
		}
		summary.FirstEvent = first.String
		summary.LastEvent = last.String
		sessions = append(sessions, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.db.Path, Op: "scan", Err: err}
	}
	return sessions, nil
}

// CountRows returns the number of stored rows
func (s *Storage) CountRows(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &StorageError{Path: s.db.Path, Op: "query", Err: err}
	}
	return n, nil
}

// AppendRows inserts rows in one transaction. Rows whose id is already
// stored are skipped, so appending the same rows twice is harmless. It
// returns the number of rows actually inserted.
func (s *Storage) AppendRows(ctx context.Context, rows []Row) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Path: s.db.Path, Op: "insert", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	query := s.db.Rebind(fmt.Sprintf(`INSERT INTO %s (id, session_id, kind, timestamp, sequence_hint, payload)
VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`, s.table))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, &StorageError{Path: s.db.Path, Op: "insert", Err: err}
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		payload, err := json.Marshal(row.Payload)
		if err != nil {
			return inserted, &ParseError{Source: "payload", Key: row.ID, Err: err}
		}
		res, err := stmt.ExecContext(ctx, row.ID, row.SessionID, string(row.Kind), row.Timestamp, row.SequenceHint, string(payload))
		if err != nil {
			return inserted, &StorageError{Path: s.db.Path, Op: "insert", Err: err}
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Path: s.db.Path, Op: "insert", Err: err}
	}
	return inserted, nil
}
