package internal

import (
	"sort"
	"strings"
)

// ValidateRow checks one untyped candidate row. Candidates are usually
// freshly decoded JSON objects; typed Row values are accepted as well.
// A row is valid when id, timestamp and sessionId are non-empty strings,
// kind is submit or harness, and sequenceHint is an integer >= 0.
func ValidateRow(candidate any) (Row, bool) {
	switch r := candidate.(type) {
	case Row:
		return r, rowValid(r)
	case *Row:
		if r == nil {
			return Row{}, false
		}
		return *r, rowValid(*r)
	}

	m, ok := asObject(candidate)
	if !ok {
		return Row{}, false
	}
	id, ok := stringField(m, "id")
	if !ok {
		return Row{}, false
	}
	timestamp, ok := stringField(m, "timestamp")
	if !ok {
		return Row{}, false
	}
	sessionID, ok := stringField(m, "sessionId")
	if !ok {
		return Row{}, false
	}
	kind, _ := m["kind"].(string)
	if !EventKind(kind).Valid() {
		return Row{}, false
	}
	seq, ok := asNonNegativeInt(m["sequenceHint"])
	if !ok {
		return Row{}, false
	}

	return Row{
		ID: id,
		Envelope: Envelope{
			Kind:         EventKind(kind),
			SessionID:    sessionID,
			Timestamp:    timestamp,
			SequenceHint: seq,
			Payload:      m["payload"],
		},
	}, true
}

func rowValid(r Row) bool {
	return r.ID != "" && r.Timestamp != "" && r.SessionID != "" && r.Kind.Valid() && r.SequenceHint >= 0
}

// ValidateRows keeps the valid candidates, in input order. Invalid
// candidates are dropped without error.
func ValidateRows(candidates []any) []Row {
	rows := make([]Row, 0, len(candidates))
	for _, c := range candidates {
		if row, ok := ValidateRow(c); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// CompareRows orders rows by timestamp, then sequenceHint, then id.
// Timestamps are ISO8601 so lexicographic order is chronological.
func CompareRows(a, b Row) int {
	if c := strings.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if a.SequenceHint != b.SequenceHint {
		if a.SequenceHint < b.SequenceHint {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// SortRows returns a sorted copy of rows
func SortRows(rows []Row) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareRows(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// OrderRows sorts rows and strips their ids
func OrderRows(rows []Row) []Envelope {
	sorted := SortRows(rows)
	envelopes := make([]Envelope, len(sorted))
	for i, r := range sorted {
		envelopes[i] = r.Envelope
	}
	return envelopes
}

// OrderedEnvelopes validates and orders untyped candidate rows in one step
func OrderedEnvelopes(candidates []any) []Envelope {
	return OrderRows(ValidateRows(candidates))
}
