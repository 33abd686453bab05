package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that harness-session can reach and read the event store",
	Long: `Check the health of harness-session by verifying:
  • Configuration sources
  • Event store reachability
  • Events table presence
  • Session and row counts

This command is useful for debugging storage issues, especially in CI/CD environments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 Harness Session Health Check"))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Resolving configuration..."))
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if healthcheckVerbose {
			_, _ = fmt.Fprintf(out, "   Sources: %s\n", strings.Join(cfg.Source, " → "))
			_, _ = fmt.Fprintf(out, "   Database: %s (%s)\n", cfg.DatabaseURL, internal.DetectDialect(cfg.DatabaseURL))
			_, _ = fmt.Fprintf(out, "   Table: %s\n", cfg.Table)
			_, _ = fmt.Fprintf(out, "   Cache: %s\n", cfg.CacheDir)
			_, _ = fmt.Fprintf(out, "   Poll interval: %s\n", cfg.PollInterval)
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Connecting to the event store..."))
		storage, cleanup, err := openStorage(true)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to open event store"))
			_, _ = fmt.Fprintf(out, "   %v\n", err)
			return healthFailed(out, "event store unreachable")
		}
		defer cleanup()
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Event store reachable"))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Checking the events table..."))
		exists, err := storage.TableExists(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to inspect schema:"), err)
			return healthFailed(out, "schema check failed")
		}
		if !exists {
			_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Table %s not found", storage.Table())))
			_, _ = fmt.Fprintln(out, "   Run 'harness-session ingest <file.jsonl>' to create it")
			return healthFailed(out, "events table missing")
		}
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Table %s present", storage.Table())))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 4: Loading sessions..."))
		rowCount, err := storage.CountRows(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to count rows:"), err)
			return healthFailed(out, "row count failed")
		}
		sessions, err := storage.ListSessions(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to list sessions:"), err)
			return healthFailed(out, "session listing failed")
		}
		if len(sessions) > 0 {
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d session(s), %d row(s)", len(sessions), rowCount)))
			if healthcheckVerbose {
				for i, s := range sessions {
					if i == 5 {
						_, _ = fmt.Fprintf(out, "   ... and %d more\n", len(sessions)-5)
						break
					}
					_, _ = fmt.Fprintf(out, "   [%d] %s (%d events)\n", i+1, s.SessionID, s.EventCount)
				}
			}
		} else {
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  No sessions found"))
		}
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		_, _ = fmt.Fprintln(out)
		if len(sessions) == 0 {
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  Event store available but empty"))
			return nil
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Sessions: %d found", len(sessions))))
		return nil
	},
}

func healthFailed(out io.Writer, reason string) error {
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
	return fmt.Errorf("health check failed: %s", reason)
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckVerbose, "details", false, "Show detailed diagnostic information")
}
