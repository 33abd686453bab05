package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/harness-session/internal"
)

// JSONExporter exports the whole session report as pretty-printed JSON
type JSONExporter struct{}

// Export exports a session report to JSON format
func (e *JSONExporter) Export(report *internal.SessionReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
