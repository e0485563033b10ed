package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driving/watcher"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var (
	watchFormats  string
	watchDebounce time.Duration
	watchScan     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest documents dropped into a directory",
	Long: `Watches a directory laid out as <directory>/<subject>/<file> and
ingests files as they are created or changed. Each first-level directory
is a subject.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFormats, "formats", "pdf,txt", "comma separated file extensions to ingest")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a file is ingested")
	watchCmd.Flags().BoolVar(&watchScan, "scan", true, "ingest files already present on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		w, err := watcher.New(watcher.Config{
			Root:        args[0],
			Ingestion:   app.Ingestion,
			Formats:     strings.Split(watchFormats, ","),
			Debounce:    watchDebounce,
			InitialScan: watchScan,
			Logger:      app.Logger,
		})
		if err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
		cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
		return w.Run(ctx)
	})
}
