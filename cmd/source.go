package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/iksnae/harness-session/internal"
)

// openStorage opens the configured event store. Read-only opens honour
// --copy. The returned cleanup closes the database and removes any copy.
func openStorage(readOnly bool) (*internal.Storage, func(), error) {
	url := cfg.DatabaseURL
	removeCopy := func() error { return nil }

	if copyDB && readOnly {
		copied, cleanup, err := internal.CopyDatabase(url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to copy database files: %w", err)
		}
		url, removeCopy = copied, cleanup
	}

	db, err := internal.OpenDatabase(url, readOnly)
	if err != nil {
		_ = removeCopy()
		return nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			internal.LogWarn("Failed to close database: %v", err)
		}
		if err := removeCopy(); err != nil {
			internal.LogWarn("Failed to cleanup temporary files: %v", err)
		}
	}
	return internal.NewStorage(db, cfg.Table), cleanup, nil
}

// loadSessionRows returns the candidate rows of one session, from a JSONL
// file when file is set and from the event store otherwise.
func loadSessionRows(ctx context.Context, sessionID, file string) ([]any, error) {
	if file != "" {
		return readSessionFile(ctx, sessionID, file)
	}

	storage, cleanup, err := openStorage(true)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return storage.LoadRows(ctx, sessionID)
}

func readSessionFile(ctx context.Context, sessionID, file string) ([]any, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := internal.ReadRowsJSONL(ctx, f)
	if err != nil {
		return nil, err
	}
	return filterSession(rows, sessionID), nil
}

// filterSession keeps the candidate rows whose sessionId matches. Rows that
// are not objects are kept so the validator can count them as dropped.
func filterSession(rows []any, sessionID string) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			out = append(out, row)
			continue
		}
		if id, _ := m["sessionId"].(string); id == sessionID {
			out = append(out, row)
		}
	}
	return out
}

// replaySession loads and replays one session, failing when it has no rows
func replaySession(ctx context.Context, sessionID, file string) (*internal.SessionReport, error) {
	rows, err := loadSessionRows(ctx, sessionID, file)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("session not found: %s (use 'harness-session list' to see available sessions)", sessionID)
	}
	report := internal.Replay(rows)
	if report.RowsDropped() > 0 {
		internal.LogWarn("Dropped %d malformed row(s) of %d", report.RowsDropped(), report.RowsIn)
	}
	if report.SessionID == "" {
		report.SessionID = sessionID
	}
	return report, nil
}
