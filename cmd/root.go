package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	dbURL      string
	configPath string
	copyDB     bool
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// cfg is resolved once per invocation by the root PersistentPreRunE
	cfg = internal.DefaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "harness-session",
	Short: "Replay and inspect agent harness session event logs",
	Long: `Replay the append-only event log of an agent harness session into the
views a client would show.

Events are read from a SQLite file (default ~/.harness-session/events.db) or a
postgres:// URL and folded into two projections:
  • the flat transcript: messages, controls, errors and sequence resets
  • the live display: streaming message, tools, pending prompts, subagents,
    observational memory progress and tasks

Quick Start:
  harness-session ingest events.jsonl       # Load events into the database
  harness-session list                      # List sessions
  harness-session show <session-id>         # Transcript of a session
  harness-session status <session-id>       # Live display state
  harness-session watch <session-id>        # Follow a running session
  harness-session export --format md        # Export every session
  harness-session dump > backup.jsonl       # Stored events as JSONL`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if dbURL != "" {
			loaded.DatabaseURL = dbURL
			loaded.Source = append(loaded.Source, "flags")
		}
		if err := internal.SetLogLevelName(loaded.LogLevel); err != nil {
			internal.LogWarn("%v", err)
		}
		if verbose {
			internal.SetVerbose(true)
		}
		cfg = loaded
		internal.LogDebug("Configuration from %v", cfg.Source)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Event store: SQLite file path or postgres:// URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.harness-session/config.jsonc)")
	rootCmd.PersistentFlags().BoolVar(&copyDB, "copy", false, "Copy the SQLite database to a temporary location to avoid locking issues")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
