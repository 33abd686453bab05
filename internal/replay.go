package internal

// SessionReport bundles both projections of one session with the row counts
// they were built from.
type SessionReport struct {
	SessionID string          `json:"sessionId" yaml:"session_id"`
	RowsIn    int             `json:"rowsIn" yaml:"rows_in"`
	RowsValid int             `json:"rowsValid" yaml:"rows_valid"`
	Flat      *FlatState      `json:"flat" yaml:"flat"`
	Display   DisplaySnapshot `json:"display" yaml:"display"`
}

// RowsDropped is the number of candidate rows the validator rejected
func (r *SessionReport) RowsDropped() int {
	return r.RowsIn - r.RowsValid
}

// Replay validates, orders and folds untyped candidate rows
func Replay(candidates []any) *SessionReport {
	rows := ValidateRows(candidates)
	report := ReplayEnvelopes(OrderRows(rows))
	report.RowsIn = len(candidates)
	report.RowsValid = len(rows)
	return report
}

// ReplayEnvelopes folds events that are already validated and ordered
func ReplayEnvelopes(events []Envelope) *SessionReport {
	flat := MaterializeFlat(events)
	report := &SessionReport{
		RowsIn:    len(events),
		RowsValid: len(events),
		Flat:      flat,
		Display:   SerializeDisplay(MaterializeDisplay(events)),
	}
	if flat.SessionID != nil {
		report.SessionID = *flat.SessionID
	}
	return report
}
