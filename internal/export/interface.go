package export

import (
	"fmt"
	"io"

	"github.com/iksnae/harness-session/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(report *internal.SessionReport, w io.Writer) error
	Extension() string
}

// Formats lists the accepted --format values
var Formats = []string{"jsonl", "md", "yaml", "json", "cbor"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "cbor":
		return &CBORExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json, cbor)", format)
	}
}
