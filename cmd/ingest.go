package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl>",
	Short: "Append events from a JSONL file to the event store",
	Long: `Read one event row per line from a JSONL file (or - for stdin), validate
each row and append the valid ones to the event store. The table is created
when missing. Rows whose id is already stored are skipped, so ingesting the
same file twice is harmless.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		candidates, err := internal.ReadRowsJSONL(cmd.Context(), in)
		if err != nil {
			return err
		}
		rows := internal.ValidateRows(candidates)
		if dropped := len(candidates) - len(rows); dropped > 0 {
			internal.LogWarn("Skipping %d invalid row(s)", dropped)
		}

		if internal.DetectDialect(cfg.DatabaseURL) == internal.DialectSQLite {
			dir := filepath.Dir(strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		storage, cleanup, err := openStorage(false)
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		defer cleanup()

		if err := storage.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		inserted, err := storage.AppendRows(cmd.Context(), rows)
		if err != nil {
			return fmt.Errorf("failed to append rows: %w", err)
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Ingested %d row(s), %d already stored, %d invalid",
			inserted, len(rows)-inserted, len(candidates)-len(rows)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
