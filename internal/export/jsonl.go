package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/harness-session/internal"
)

// JSONLExporter exports the flat transcript, one message per line
type JSONLExporter struct{}

type jsonlMessage struct {
	SessionID string                 `json:"sessionId"`
	ID        string                 `json:"id"`
	Role      internal.Role          `json:"role"`
	Text      string                 `json:"text"`
	CreatedAt string                 `json:"createdAt,omitempty"`
	Status    internal.MessageStatus `json:"status"`
	Source    internal.EventKind     `json:"source"`
}

// Export exports a session report to JSONL format
func (e *JSONLExporter) Export(report *internal.SessionReport, w io.Writer) error {
	if report.Flat == nil {
		return nil
	}
	enc := json.NewEncoder(w)

	for _, msg := range report.Flat.Messages {
		line := jsonlMessage{
			SessionID: report.SessionID,
			ID:        msg.ID,
			Role:      msg.Role,
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt,
			Status:    msg.Status,
			Source:    msg.Source,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message %s: %w", msg.ID, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
