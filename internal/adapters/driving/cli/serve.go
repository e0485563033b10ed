package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/runtime"
	"github.com/custodia-labs/sercha-edu/internal/worker"
)

const (
	modeAPI    = "api"
	modeWorker = "worker"
	modeAll    = "all"
)

var serveMode string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and ingestion workers",
	Long: `Runs the service until interrupted.

Modes:
  api     HTTP server only
  worker  background ingestion workers only
  all     both in one process (default)

Workers need a task queue, provided by REDIS_URL or DATABASE_URL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMode, "mode", getenvDefault("RUN_MODE", modeAll), "run mode: api, worker or all")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	switch serveMode {
	case modeAPI, modeWorker, modeAll:
	default:
		return fmt.Errorf("unknown mode %q (use: api, worker or all)", serveMode)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, app *runtime.App) error {
		app.Logger.Info("sercha-edu starting", "version", version, "mode", serveMode)

		g, ctx := errgroup.WithContext(ctx)
		if serveMode == modeWorker || serveMode == modeAll {
			if app.Queue == nil {
				if serveMode == modeWorker {
					return fmt.Errorf("worker mode needs a task queue: set REDIS_URL or DATABASE_URL")
				}
				app.Logger.Warn("no task queue configured, workers not started")
			} else {
				g.Go(func() error { return runWorker(ctx, app) })
			}
		}
		if serveMode == modeAPI || serveMode == modeAll {
			g.Go(func() error { return newServer(app).Start(ctx) })
		}
		return g.Wait()
	})
}

func newServer(app *runtime.App) *http.Server {
	cfg := http.DefaultConfig()
	cfg.Port = app.Config.Port
	cfg.Version = version
	cfg.UploadDir = app.Config.UploadDir
	cfg.CORSOrigins = app.Config.CORSOrigins

	// a nil *auth.Adapter must stay a nil interface
	var authAdapter driven.AuthAdapter
	if app.Auth != nil {
		authAdapter = app.Auth
	}

	return http.NewServer(cfg, http.Services{
		Ingestion: app.Ingestion,
		Retrieval: app.Retrieval,
		Grammar:   app.Grammar,
		Answer:    app.Answer,
		Questions: app.Questions,
		Tasks:     app.Tasks,
	}, authAdapter, app.Services, app.Logger)
}

func runWorker(ctx context.Context, app *runtime.App) error {
	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:   app.Queue,
		Ingestion:   app.Ingestion,
		Logger:      app.Logger,
		Concurrency: app.Config.WorkerConcurrency,
	})
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	app.Logger.Info("stopping worker")
	w.Stop()
	w.Wait()
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
