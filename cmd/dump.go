package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var (
	dumpSessionID string
	dumpOut       string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write stored events as JSONL",
	Long: `Write the valid rows of the event store, in replay order, as JSONL: the
format 'harness-session ingest' reads. Invalid rows are left out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, cleanup, err := openStorage(true)
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		defer cleanup()

		var candidates []any
		if dumpSessionID != "" {
			candidates, err = storage.LoadRows(cmd.Context(), dumpSessionID)
		} else {
			candidates, err = storage.LoadAllRows(cmd.Context())
		}
		if err != nil {
			return err
		}
		rows := internal.SortRows(internal.ValidateRows(candidates))
		if dropped := len(candidates) - len(rows); dropped > 0 {
			internal.LogWarn("Skipping %d invalid row(s)", dropped)
		}

		var w io.Writer = cmd.OutOrStdout()
		if dumpOut != "" && dumpOut != "-" {
			f, err := os.Create(dumpOut)
			if err != nil {
				return &internal.ExportError{Format: "jsonl", Path: dumpOut, Err: err}
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		if err := internal.WriteRowsJSONL(w, rows); err != nil {
			return err
		}
		if w != cmd.OutOrStdout() {
			internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Wrote %d row(s) to %s", len(rows), dumpOut))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVar(&dumpSessionID, "session-id", "", "Dump only this session")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "", "Output file (default stdout)")
}
