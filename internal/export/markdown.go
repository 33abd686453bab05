package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/harness-session/internal"
)

// MarkdownExporter exports the flat transcript in Markdown format
type MarkdownExporter struct{}

// Export exports a session report to Markdown format
func (e *MarkdownExporter) Export(report *internal.SessionReport, w io.Writer) error {
	flat := report.Flat
	if flat == nil {
		flat = internal.NewFlatState()
	}

	_, _ = fmt.Fprintf(w, "# Session %s\n\n", report.SessionID)
	_, _ = fmt.Fprintf(w, "**Epoch:** %d  \n", flat.Epoch)
	_, _ = fmt.Fprintf(w, "**Messages:** %d  \n", len(flat.Messages))
	_, _ = fmt.Fprintf(w, "**Rows:** %d valid of %d\n\n", report.RowsValid, report.RowsIn)

	if flat.Usage != nil {
		_, _ = fmt.Fprintf(w, "**Tokens:** %d prompt, %d completion, %d total\n\n",
			flat.Usage.PromptTokens, flat.Usage.CompletionTokens, flat.Usage.TotalTokens)
	}
	if flat.LastAgentEndReason != nil {
		_, _ = fmt.Fprintf(w, "**Last run ended:** %s\n\n", *flat.LastAgentEndReason)
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range flat.Messages {
		timestamp := ""
		if msg.CreatedAt != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.CreatedAt)
		}
		status := ""
		if msg.Status == internal.MessageStreaming {
			status = " _streaming_"
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s%s\n\n%s\n\n", msg.Role, timestamp, status, escapeMarkdown(msg.Text))

		if i < len(flat.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	if len(flat.Controls) > 0 {
		_, _ = fmt.Fprintf(w, "## Controls\n\n")
		for _, c := range flat.Controls {
			running := ""
			if c.WasRunning {
				running = " while running"
			}
			_, _ = fmt.Fprintf(w, "- `%s` at %s%s\n", c.Action, c.SubmittedAt, running)
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	if len(flat.Errors) > 0 {
		_, _ = fmt.Fprintf(w, "## Errors\n\n")
		for _, e := range flat.Errors {
			_, _ = fmt.Fprintf(w, "- %s: %s\n", e.Timestamp, escapeMarkdown(e.Message))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
