package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var (
	limit    int
	since    string
	showFile string
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the transcript of a session",
	Long: `Replay a session and print its flat projection: the message transcript,
control submissions, harness errors and sequence resets.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sinceTime time.Time
		if since != "" {
			t, err := time.Parse(time.RFC3339Nano, since)
			if err != nil {
				return fmt.Errorf("invalid --since %q: expected an RFC 3339 timestamp", since)
			}
			sinceTime = t
		}

		report, err := replaySession(cmd.Context(), args[0], showFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, report)

		messages := filterMessages(report.Flat.Messages, sinceTime, limit)
		for i, msg := range messages {
			displayMessage(out, i+1, msg, len(messages))
		}

		displayControls(out, report.Flat.Controls)
		displayErrors(out, report.Flat.Errors)
		if n := len(report.Flat.AuxiliaryEvents); n > 0 {
			_, _ = fmt.Fprintln(out, sessionMetaStyle.Render(fmt.Sprintf("%d auxiliary event(s) not shown", n)))
		}
		return nil
	},
}

// filterMessages keeps messages created at or after since, then the last
// limit of them when limit is positive
func filterMessages(messages []internal.Message, since time.Time, limit int) []internal.Message {
	out := messages
	if !since.IsZero() {
		out = make([]internal.Message, 0, len(messages))
		for _, msg := range messages {
			t, err := time.Parse(time.RFC3339Nano, msg.CreatedAt)
			if err != nil || !t.Before(since) {
				out = append(out, msg)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func displaySessionHeader(out io.Writer, report *internal.SessionReport) {
	if report == nil || report.Flat == nil {
		return
	}
	flat := report.Flat
	_, _ = fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", report.SessionID)))

	metaParts := []string{
		fmt.Sprintf("Epoch: %d", flat.Epoch),
		fmt.Sprintf("Messages: %d", len(flat.Messages)),
		fmt.Sprintf("Rows: %d/%d", report.RowsValid, report.RowsIn),
	}
	if flat.SequenceResetCount > 0 {
		metaParts = append(metaParts, fmt.Sprintf("Resets: %d", flat.SequenceResetCount))
	}
	if flat.IsRunning {
		metaParts = append(metaParts, "Running")
	} else if flat.LastAgentEndReason != nil {
		metaParts = append(metaParts, fmt.Sprintf("Ended: %s", *flat.LastAgentEndReason))
	}
	if flat.Usage != nil {
		metaParts = append(metaParts, fmt.Sprintf("Tokens: %d", flat.Usage.TotalTokens))
	}

	_, _ = fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(out)
}

func displayMessage(out io.Writer, index int, msg internal.Message, total int) {
	var roleStyle lipgloss.Style
	var roleLabel string

	switch msg.Role {
	case internal.RoleUser:
		roleStyle = userMessageStyle
		roleLabel = "👤 User"
	case internal.RoleAssistant:
		roleStyle = assistantMessageStyle
		roleLabel = "🤖 Assistant"
	default:
		roleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		roleLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := roleStyle.Render(roleLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, msg.CreatedAt); err == nil {
			header += " " + timestampStyle.Render(t.Format("15:04:05"))
		} else {
			header += " " + timestampStyle.Render(msg.CreatedAt)
		}
	}
	if msg.Status == internal.MessageStreaming {
		header += " " + timestampStyle.Render("(streaming)")
	}
	_, _ = fmt.Fprintln(out, header)

	content := strings.TrimSpace(msg.Text)
	if content != "" {
		_, _ = fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		_, _ = fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	_, _ = fmt.Fprintln(out)
}

func displayControls(out io.Writer, controls []internal.ControlSubmission) {
	if len(controls) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, sessionHeaderStyle.Render("⏹ Controls"))
	for _, c := range controls {
		line := fmt.Sprintf("  %s at %s", c.Action, c.SubmittedAt)
		if c.WasRunning {
			line += " (while running)"
		}
		_, _ = fmt.Fprintln(out, line)
	}
	_, _ = fmt.Fprintln(out)
}

func displayErrors(out io.Writer, errs []internal.SessionError) {
	if len(errs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, sessionHeaderStyle.Render("⚠ Errors"))
	for _, e := range errs {
		_, _ = fmt.Fprintf(out, "  %s %s\n", timestampStyle.Render(e.Timestamp), e.Message)
	}
	_, _ = fmt.Fprintln(out)
}

// wrapText wraps lines longer than width at word boundaries
func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last N messages")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages created at or after this RFC 3339 timestamp")
	showCmd.Flags().StringVarP(&showFile, "file", "f", "", "Read events from a JSONL file instead of the event store")
}
