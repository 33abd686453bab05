package internal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const maxJSONLLine = 1024 * 1024

// ReadRowsJSONL reads one candidate row per line. Blank and non-JSON lines
// are skipped with a warning. Objects with no id key get a name-based uuid
// derived from the line, so reading the same file twice yields the same ids.
// Rows are returned untyped for the validator.
func ReadRowsJSONL(ctx context.Context, r io.Reader) ([]any, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)

	var rows []any
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var candidate any
		if err := json.Unmarshal([]byte(text), &candidate); err != nil {
			LogWarn("Skipping line %d: %v", line, err)
			continue
		}
		if m, ok := asObject(candidate); ok {
			if _, present := m["id"]; !present {
				m["id"] = uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()
			}
		}
		rows = append(rows, candidate)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Source: "jsonl", Key: fmt.Sprintf("line %d", line+1), Err: err}
	}
	return rows, nil
}

// WriteRowsJSONL writes rows one per line, the format ReadRowsJSONL reads
func WriteRowsJSONL(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return &ParseError{Source: "jsonl", Key: row.ID, Err: err}
		}
	}
	return nil
}
