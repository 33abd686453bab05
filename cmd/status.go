package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var (
	statusJSON bool
	statusFile string
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show the live display state of a session",
	Long: `Replay a session and print what a client would currently display: the
streaming message, active tools, pending approvals and questions, subagents,
observational memory progress, tasks and modified files.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := replaySession(cmd.Context(), args[0], statusFile)
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report.Display)
		}
		renderStatus(cmd.OutOrStdout(), report)
		return nil
	},
}

func renderStatus(out io.Writer, report *internal.SessionReport) {
	d := report.Display

	state := idleStyle.Render("idle")
	if d.IsRunning {
		state = runningStyle.Render("running")
	}
	_, _ = fmt.Fprintf(out, "%s %s  %s\n", sessionHeaderStyle.Render("📡 "+report.SessionID), state,
		sessionMetaStyle.Render(fmt.Sprintf("tokens %d prompt / %d completion / %d total",
			d.TokenUsage.PromptTokens, d.TokenUsage.CompletionTokens, d.TokenUsage.TotalTokens)))

	if d.CurrentMessage != nil {
		_, _ = fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Message"), timestampStyle.Render(d.CurrentMessage.ID))
		if text := strings.TrimSpace(d.CurrentMessage.Text); text != "" {
			_, _ = fmt.Fprintln(out, messageContentStyle.Render(wrapText(text, 80)))
		}
	}

	if len(d.ActiveTools) > 0 {
		_, _ = fmt.Fprintln(out, labelStyle.Render("Tools"))
		for _, e := range d.ActiveTools {
			_, _ = fmt.Fprintf(out, "  %s %s %s\n", e.Key, e.Value.Name, idleStyle.Render(string(e.Value.Status)))
		}
	}
	if len(d.ToolInputBuffers) > 0 {
		_, _ = fmt.Fprintln(out, labelStyle.Render("Streaming input"))
		for _, e := range d.ToolInputBuffers {
			_, _ = fmt.Fprintf(out, "  %s %s (%d bytes)\n", e.Key, e.Value.ToolName, len(e.Value.Text))
		}
	}

	if p := d.PendingApproval; p != nil {
		_, _ = fmt.Fprintf(out, "%s %s %s\n", pendingStyle.Render("Approval needed"), p.ToolName, timestampStyle.Render(p.ToolCallID))
	}
	if q := d.PendingQuestion; q != nil {
		_, _ = fmt.Fprintf(out, "%s %s\n", pendingStyle.Render("Question"), q.Question)
		for _, opt := range q.Options {
			line := "  • " + opt.Label
			if opt.Description != nil {
				line += " " + idleStyle.Render(*opt.Description)
			}
			_, _ = fmt.Fprintln(out, line)
		}
	}
	if p := d.PendingPlanApproval; p != nil {
		_, _ = fmt.Fprintf(out, "%s %s\n", pendingStyle.Render("Plan review"), p.Title)
	}

	if len(d.ActiveSubagents) > 0 {
		_, _ = fmt.Fprintln(out, labelStyle.Render("Subagents"))
		for _, e := range d.ActiveSubagents {
			_, _ = fmt.Fprintf(out, "  %s %s: %s (%d tool call(s))\n", e.Key, e.Value.AgentType, e.Value.Task, len(e.Value.ToolCalls))
		}
	}

	om := d.OMProgress
	_, _ = fmt.Fprintf(out, "%s %s  observe %.0f%% (%d/%d)  reflect %.0f%% (%d/%d)\n",
		labelStyle.Render("Memory"), om.Status,
		om.ThresholdPercent, om.PendingTokens, om.Threshold,
		om.ReflectionThresholdPercent, om.ObservationTokens, om.ReflectionThreshold)
	if d.BufferingMessages || d.BufferingObservations {
		_, _ = fmt.Fprintf(out, "  buffering messages=%t observations=%t\n", d.BufferingMessages, d.BufferingObservations)
	}

	if len(d.Tasks) > 0 {
		_, _ = fmt.Fprintln(out, labelStyle.Render("Tasks"))
		for _, task := range d.Tasks {
			_, _ = fmt.Fprintf(out, "  %s %s\n", taskMarker(task.Status), task.Content)
		}
	}

	if len(d.ModifiedFiles) > 0 {
		_, _ = fmt.Fprintln(out, labelStyle.Render("Modified files"))
		for _, e := range d.ModifiedFiles {
			_, _ = fmt.Fprintf(out, "  %s %s\n", e.Key, idleStyle.Render(strings.Join(e.Value.Operations, ", ")))
		}
	}
}

func taskMarker(status internal.TaskStatus) string {
	switch status {
	case internal.TaskCompleted:
		return "[x]"
	case internal.TaskInProgress:
		return "[~]"
	default:
		return "[ ]"
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the display snapshot as JSON")
	statusCmd.Flags().StringVarP(&statusFile, "file", "f", "", "Read events from a JSONL file instead of the event store")
}
