package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/iksnae/harness-session/internal"
	"github.com/iksnae/harness-session/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	format     string
	outputDir  string
	sessionID  string
	clearCache bool
	exportJobs int
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to files",
	Long: `Replay sessions and write them in one of: jsonl, md, yaml, json, cbor.

All sessions are exported unless --session-id is given. Replayed sessions are
cached and reused while their events are unchanged.
Use 'harness-session list' to see available session IDs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportJobs < 1 {
			return fmt.Errorf("--jobs must be at least 1, got %d", exportJobs)
		}
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		storage, cleanup, err := openStorage(true)
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		defer cleanup()

		cacheManager := internal.NewCacheManager(cfg.CacheDir)
		if clearCache {
			if err := cacheManager.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		ctx := cmd.Context()
		var ids []string
		if sessionID != "" {
			ids = []string{sessionID}
		} else {
			sessions, err := storage.ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			for _, s := range sessions {
				ids = append(ids, s.SessionID)
			}
		}
		if len(ids) == 0 {
			internal.PrintWarning(cmd.ErrOrStderr(), "No sessions to export")
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		var (
			mu      sync.Mutex
			written []string
		)
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(ids), outputDir), func() error {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(exportJobs)
			for _, id := range ids {
				g.Go(func() error {
					report, err := loadReport(gctx, storage, cacheManager, id)
					if err != nil {
						return err
					}
					path, err := writeExport(exporter, report, outputDir)
					if err != nil {
						return err
					}
					mu.Lock()
					written = append(written, path)
					mu.Unlock()
					return nil
				})
			}
			return g.Wait()
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Exported %d session(s) to %s", len(written), outputDir))
		return nil
	},
}

// loadReport replays one session, reusing the cached report while the
// session's ordered events are unchanged
func loadReport(ctx context.Context, storage *internal.Storage, cache *internal.CacheManager, id string) (*internal.SessionReport, error) {
	rows, err := storage.LoadRows(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("session not found: %s (use 'harness-session list' to see available sessions)", id)
	}

	events := internal.OrderedEnvelopes(rows)
	fingerprint, err := internal.Fingerprint(events)
	if err != nil {
		return nil, err
	}

	cached, ok, err := cache.LoadReport(id, fingerprint)
	if err != nil {
		internal.LogWarn("Ignoring cached report for %s: %v", id, err)
	}
	if ok && cached.RowsIn == len(rows) {
		internal.LogDebug("Cache hit for %s", id)
		return cached, nil
	}

	report := internal.Replay(rows)
	if report.SessionID == "" {
		report.SessionID = id
	}
	if err := cache.SaveReport(report, fingerprint, cfg.DatabaseURL); err != nil {
		internal.LogWarn("Failed to save cache: %v", err)
	}
	return report, nil
}

func writeExport(exporter export.Exporter, report *internal.SessionReport, dir string) (string, error) {
	path := filepath.Join(dir, internal.SessionFileStem(report.SessionID)+"."+exporter.Extension())

	file, err := os.Create(path)
	if err != nil {
		return "", &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(report, file); err != nil {
		_ = file.Close()
		return "", &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return "", &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json, cbor)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export only this session")
	exportCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Clear the cache before exporting")
	exportCmd.Flags().IntVarP(&exportJobs, "jobs", "j", 4, "Sessions replayed in parallel")
}
