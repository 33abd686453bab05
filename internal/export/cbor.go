package export

import (
	"io"

	"github.com/iksnae/harness-session/internal"
)

// CBORExporter writes the session report as deterministic CBOR, the same
// encoding its digest is computed over
type CBORExporter struct{}

// Export exports a session report to CBOR
func (e *CBORExporter) Export(report *internal.SessionReport, w io.Writer) error {
	data, err := internal.CanonicalCBOR(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Extension returns the file extension for this format
func (e *CBORExporter) Extension() string {
	return "cbor"
}
