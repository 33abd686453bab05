package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/harness-session/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	watchInterval    time.Duration
	watchMetricsAddr string
	watchFile        string
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a session and redraw its display state on change",
	Long: `Poll the event store and redraw the session's display state whenever it
changes. The interval never goes below 16ms. With --metrics-addr, poller
metrics are served at /metrics on that address.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interval := cfg.PollInterval
		if cmd.Flags().Changed("interval") {
			interval = watchInterval
		}

		load := func(ctx context.Context) ([]any, error) {
			return loadSessionRows(ctx, id, watchFile)
		}
		out := cmd.OutOrStdout()
		poller := internal.NewPoller(interval, load, func(report *internal.SessionReport) {
			_, _ = fmt.Fprintln(out, timestampStyle.Render(time.Now().Format("15:04:05.000")))
			renderStatus(out, report)
			_, _ = fmt.Fprintln(out)
		})

		if watchMetricsAddr != "" {
			reg := prometheus.NewRegistry()
			poller.Metrics = internal.NewMetrics(id, reg)
			srv := serveMetrics(watchMetricsAddr, poller.Metrics.Handler())
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		internal.LogInfo("Watching %s every %s", id, internal.ClampPollInterval(interval))
		return poller.Run(ctx)
	},
}

func serveMetrics(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			internal.LogError("Metrics server failed: %v", err)
		}
	}()
	internal.LogInfo("Serving metrics on http://%s/metrics", addr)
	return srv
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", internal.DefaultPollInterval, "Poll interval (minimum 16ms)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	watchCmd.Flags().StringVarP(&watchFile, "file", "f", "", "Poll a JSONL file instead of the event store")
}
