// Package cli is the sercha-edu command line: it serves the API, runs
// workers and talks to the core services directly for one-off commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-edu/internal/runtime"
)

var version = "dev"

// appFactory builds the wired application. Tests replace it.
var appFactory = func(ctx context.Context) (*runtime.App, error) {
	cfg, err := runtime.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := runtime.NewLogger(cfg.LogLevel, cfg.LogFormat, nil)
	slog.SetDefault(logger)
	return runtime.NewApp(ctx, cfg, logger)
}

var rootCmd = &cobra.Command{
	Use:   "sercha-edu",
	Short: "Study material search and learning assistant",
	Long: `sercha-edu ingests study documents into a vector index organised by
subject and answers semantic searches, grammar checks, answer validation
and question generation over them.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute(v string) error {
	if v != "" {
		version = v
	}
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// withApp builds the application for the duration of fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *runtime.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := appFactory(ctx)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() { _ = app.Close() }()
	return fn(ctx, app)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
